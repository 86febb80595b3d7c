package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"time"
)

// AccessToken is a bearer credential for the JSON API. Only the SHA-256 hash
// of the raw token is stored; the raw value is shown to the client exactly
// once at issue time.
type AccessToken struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	TokenHash   string     `gorm:"type:char(64);uniqueIndex" json:"-"`
	TokenPrefix string     `gorm:"type:varchar(20);default:''" json:"token_prefix"`
	ExpiresAt   time.Time  `gorm:"type:timestamp;not null;index" json:"expires_at"`
	RevokedAt   *time.Time `gorm:"type:timestamp;default:null" json:"revoked_at,omitempty"`
	LastUsedAt  *time.Time `gorm:"type:timestamp;default:null" json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

const tokenPrefix = "tfx_"

const AccessTokenTTL = 30 * 24 * time.Hour

// NewAccessToken generates token material for a user and returns the record
// plus the raw secret. Callers persist the record and hand the raw value to
// the client.
func NewAccessToken(userID uint) (*AccessToken, string, error) {
	b := make([]byte, 30)
	if _, err := rand.Read(b); err != nil {
		return nil, "", err
	}
	raw := tokenPrefix + tokenEncoding.EncodeToString(b)

	prefix := raw
	if len(prefix) > 12 {
		prefix = prefix[:12]
	}

	token := &AccessToken{
		UserID:      userID,
		TokenHash:   HashAccessToken(raw),
		TokenPrefix: prefix,
		ExpiresAt:   time.Now().Add(AccessTokenTTL),
	}
	return token, raw, nil
}

// HashAccessToken returns the hex SHA-256 digest used for token lookup.
func HashAccessToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IsValid reports whether the token is usable right now.
func (t *AccessToken) IsValid() bool {
	return t != nil && t.RevokedAt == nil && time.Now().Before(t.ExpiresAt)
}

// Revoke marks the token unusable without deleting the record.
func (t *AccessToken) Revoke() {
	now := time.Now()
	t.RevokedAt = &now
}

// TouchUsage updates the last-used timestamp metadata.
func (t *AccessToken) TouchUsage() {
	now := time.Now()
	t.LastUsedAt = &now
}

func (t *AccessToken) String() string {
	return fmt.Sprintf("AccessToken{user=%d prefix=%s}", t.UserID, t.TokenPrefix)
}
