package models

import "github.com/golang-jwt/jwt/v5"

// SupabaseClaims is the claim set Supabase Auth embeds in its access
// tokens, on top of the registered JWT claims.
type SupabaseClaims struct {
	jwt.RegisteredClaims
	Email       string `json:"email"`
	Role        string `json:"role"` // "authenticated" or "anon"
	SessionID   string `json:"session_id"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// GetUserID returns the subject claim, the stable identifier every
// repository scopes its rows by.
func (c *SupabaseClaims) GetUserID() string {
	return c.Subject
}
