package repository

import (
	"time"

	"github.com/trendfox/TrendFox/app/models"
	"gorm.io/gorm"
)

// accessTokenRepository implements the AccessTokenRepository interface
type accessTokenRepository struct {
	db *gorm.DB
}

// NewAccessTokenRepository creates a new access token repository instance
func NewAccessTokenRepository(db *gorm.DB) AccessTokenRepository {
	return &accessTokenRepository{db: db}
}

// Create persists a freshly issued token record
func (r *accessTokenRepository) Create(token *models.AccessToken) error {
	return r.db.Create(token).Error
}

// GetByHash retrieves a token record by its hash, revoked or not
func (r *accessTokenRepository) GetByHash(hash string) (*models.AccessToken, error) {
	var token models.AccessToken
	err := r.db.Where("token_hash = ?", hash).First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Revoke marks a single token as revoked
func (r *accessTokenRepository) Revoke(id uint) error {
	now := time.Now()
	return r.db.Model(&models.AccessToken{}).
		Where("id = ?", id).
		Update("revoked_at", &now).Error
}

// TouchUsage stamps the token's last use. Best effort, callers ignore the
// error on the hot path.
func (r *accessTokenRepository) TouchUsage(id uint) error {
	now := time.Now()
	return r.db.Model(&models.AccessToken{}).
		Where("id = ?", id).
		Update("last_used_at", &now).Error
}

// RevokeAllForUser revokes every live token a user holds, used on logout
func (r *accessTokenRepository) RevokeAllForUser(userID uint) error {
	now := time.Now()
	return r.db.Model(&models.AccessToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", &now).Error
}
