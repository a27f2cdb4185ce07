package model

// LoginParams identifies a user by username or email.
type LoginParams struct {
	Identifier string
	Password   string
}

// LoginResult is returned on successful login.
type LoginResult struct {
	User   Profile
	Tokens TokenPair
}

// RegisterParams carries a new account and its media. Avatar is required.
type RegisterParams struct {
	Username   string
	FullName   string
	Email      string
	Password   string
	Avatar     Upload
	CoverImage *Upload
}
