package models

// Session holds the identity material persisted across runs. It is owned by
// the session store; everything else receives it as a value.
//
// CredentialSecret backs the Basic scheme, Token the Bearer scheme. If Token
// is absent, CredentialSecret must be present for authenticated calls to
// succeed; neither being present still produces a well-formed (unauthenticated)
// request.
type Session struct {
	UserID           int64  `json:"userId"`
	Username         string `json:"username"`
	CredentialSecret string `json:"credentialSecret,omitempty"`
	Token            string `json:"token,omitempty"`

	// CachedBalance is the last balance this client saw, used to seed the
	// sync engine before the first profile fetch completes.
	CachedBalance int64 `json:"cachedBalance"`
}
