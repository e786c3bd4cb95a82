package auth

// TokenRequest is the form body of the token endpoint
type TokenRequest struct {
	GrantType    string `form:"grant_type" validate:"required"`
	ClientID     string `form:"client_id" validate:"required,max=100"`
	ClientSecret string `form:"client_secret" validate:"required"`
	Scope        string `form:"scope"`
}
