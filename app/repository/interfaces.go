package repository

import (
	"time"

	"github.com/trendfox/TrendFox/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAccessTokenHash(hash string) (*models.User, *models.AccessToken, error)
	Update(user *models.User) error
	Count() (int64, error)
}

// ProfileRepository defines the interface for billing profile reads. Writes
// go through the billing reconciler, which owns upsert semantics.
type ProfileRepository interface {
	GetByUserID(userID uint) (*models.Profile, error)
	EnsureExists(userID uint) (*models.Profile, error)
}

// PostRepository defines the interface for trend post operations
type PostRepository interface {
	Create(post *models.Post) error
	GetByID(id uint) (*models.Post, error)
	GetByPublishDate(date time.Time) ([]models.Post, error)
	List(offset, limit int) ([]models.Post, error)
	Update(post *models.Post) error
	Delete(id uint) error
	Count() (int64, error)
}

// AccessTokenRepository defines the interface for API token persistence
type AccessTokenRepository interface {
	Create(token *models.AccessToken) error
	GetByHash(hash string) (*models.AccessToken, error)
	Revoke(id uint) error
	TouchUsage(id uint) error
	RevokeAllForUser(userID uint) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User        UserRepository
	Profile     ProfileRepository
	Post        PostRepository
	AccessToken AccessTokenRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Profile:     NewProfileRepository(db),
		Post:        NewPostRepository(db),
		AccessToken: NewAccessTokenRepository(db),
	}
}
