package models

import "time"

// Profile carries the billing-derived entitlement state for one user. It is
// the single source of truth the content gate reads; IsPro is only ever
// written by the billing reconciler, never from client input.
type Profile struct {
	UserID               uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	IsPro                bool       `gorm:"not null;default:false;index" json:"is_pro"`
	StripeCustomerID     string     `gorm:"type:varchar(191);default:'';index" json:"stripe_customer_id"`
	StripeSubscriptionID string     `gorm:"type:varchar(191);default:''" json:"stripe_subscription_id"`
	StripePriceID        string     `gorm:"type:varchar(191);default:''" json:"stripe_price_id"`
	CurrentPeriodEnd     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
