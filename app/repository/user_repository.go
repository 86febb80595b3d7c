package repository

import (
	"strings"

	"github.com/trendfox/TrendFox/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByAccessTokenHash resolves an unrevoked, unexpired token hash to its
// user and token record.
func (r *userRepository) GetByAccessTokenHash(hash string) (*models.User, *models.AccessToken, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, nil, gorm.ErrRecordNotFound
	}
	var token models.AccessToken
	query := r.db.Where("token_hash = ? AND revoked_at IS NULL", trimmed)
	if err := query.First(&token).Error; err != nil {
		return nil, nil, err
	}
	if !token.IsValid() {
		return nil, nil, gorm.ErrRecordNotFound
	}
	var user models.User
	if err := r.db.First(&user, token.UserID).Error; err != nil {
		return nil, nil, err
	}
	return &user, &token, nil
}

// Update updates an existing user
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
