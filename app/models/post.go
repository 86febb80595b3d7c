package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Post is one daily trending-product entry. Why and HowToCopy are the
// detail fields withheld from free viewers when IsFree is false.
type Post struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	PublishDate time.Time      `gorm:"type:date;not null;index" json:"publish_date"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title" validate:"required,min=3,max=255"`
	Platform    string         `gorm:"type:varchar(100);default:''" json:"platform" validate:"max=100"`
	PriceRange  string         `gorm:"type:varchar(100);default:''" json:"price_range" validate:"max=100"`
	Demand      string         `gorm:"type:varchar(50);default:''" json:"demand" validate:"max=50"`
	Competition string         `gorm:"type:varchar(50);default:''" json:"competition" validate:"max=50"`
	IsFree      bool           `gorm:"not null;default:false;index" json:"is_free"`
	Why         string         `gorm:"type:text" json:"why,omitempty"`
	HowToCopy   string         `gorm:"type:text" json:"how_to_copy,omitempty"`
	ViewCount   int64          `gorm:"not null;default:0" json:"view_count"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Post model
func (Post) TableName() string {
	return "posts"
}

func (p *Post) Validate() error {
	v := validator.New()

	return v.Struct(p)
}
