package sdk

// Principal is the external shape of an authenticated principal.
type Principal struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"is_admin"`
}

// TokenPair is the access/refresh pair minted at login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LoginResult is the response to a successful login or refresh.
type LoginResult struct {
	Principal Principal `json:"principal"`
	Tokens    TokenPair `json:"tokens"`
}

// Identity is the response to a Me call.
type Identity struct {
	Authenticated bool       `json:"authenticated"`
	Principal     *Principal `json:"principal,omitempty"`
}
