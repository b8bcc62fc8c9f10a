package models

// TransactionRequest is the payload for creating a payment transaction
type TransactionRequest struct {
	UserID int64 `json:"userId"`
	BarID  int64 `json:"barId"`
	Amount int64 `json:"amount"`
}

// Transaction is the server's record of a completed payment.
// NewBalance is only present on some backend revisions; the authoritative
// balance arrives over the realtime channel either way.
type Transaction struct {
	ID           int64  `json:"id"`
	Amount       int64  `json:"amount"`
	Status       string `json:"status"`
	PointsEarned int64  `json:"pointsEarned"`
	QRCodeHash   string `json:"qrCodeHash,omitempty"`
	QRCodeImage  string `json:"qrCodeImage,omitempty"`
	NewBalance   *int64 `json:"newBalance,omitempty"`
}
