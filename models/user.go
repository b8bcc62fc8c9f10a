package models

// User represents a loyalty-program member as returned by the profile endpoint
type User struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	PointsBalance int64  `json:"pointsBalance"`
}
