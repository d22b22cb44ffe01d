package credentials

import (
	"time"

	"golang.org/x/oauth2"
)

// Credential is the stored OAuth2 token material for one external
// calendar provider. There is at most one credential per provider.
type Credential struct {
	Provider     string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
	Scope        string
}

// Expired reports whether the access token has passed its expiry.
// A zero expiry means the provider issued no expiry and the token is
// treated as still valid.
func (c *Credential) Expired(now time.Time) bool {
	return !c.Expiry.IsZero() && !now.Before(c.Expiry)
}

// Token converts the credential to an oauth2 token.
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}
