package domain

import "time"

// Session is what a successful login hands back: a bearer access token, the
// refresh token used to mint new ones, and the account it belongs to.
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string // "Bearer"
	ExpiresIn    time.Duration
	User         User
}
