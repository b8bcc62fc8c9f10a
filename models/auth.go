package models

// LoginRequest is the payload for the login endpoint
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the successful login payload
type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// RegisterRequest is the payload for the registration endpoint
type RegisterRequest struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}
