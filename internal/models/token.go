package models

import "time"

// CliToken is a long-lived bearer credential for CLI uploads. Only the
// SHA-256 hash of the secret is stored; the plaintext is returned once
// at creation and is not recoverable afterwards.
type CliToken struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Label        string     `json:"label"`
	TokenHash    string     `json:"-"`
	TokenPreview string     `json:"token_preview"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
}

// Revoked reports whether the token has been revoked.
func (t *CliToken) Revoked() bool {
	return t.RevokedAt != nil
}

// TokenSummary is the listing view of a token. It never carries the hash.
type TokenSummary struct {
	ID           string     `json:"id"`
	Label        string     `json:"label"`
	TokenPreview string     `json:"token_preview"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
}
