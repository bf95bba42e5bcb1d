package models

// Session is the server-side record behind a session cookie.
type Session struct {
	Token     string `json:"session_token"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at"`
	Remember  bool   `json:"remember"`
}
