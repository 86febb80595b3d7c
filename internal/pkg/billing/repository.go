package billing

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trendfox/TrendFox/app/models"
)

// Repository is the persistence surface the reconciler writes through.
type Repository interface {
	GetProfileByUserID(ctx context.Context, userID uint) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
	UpdateProfile(ctx context.Context, profile *models.Profile) error
	CreateWebhookEventIfNotExists(ctx context.Context, input WebhookEventInput) (*models.StripeWebhookEvent, bool, error)
	MarkWebhookProcessed(ctx context.Context, eventID uint, processingErr error) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository wraps a gorm handle in the billing persistence contract.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetProfileByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile writes the full reconciled state keyed on user_id. An
// existing row is overwritten column by column, matching the rule that the
// latest reconciliation wins.
func (r *gormRepository) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_pro",
			"stripe_customer_id",
			"stripe_subscription_id",
			"stripe_price_id",
			"current_period_end",
			"updated_at",
		}),
	}).Create(profile).Error
}

// UpdateProfile saves an already loaded profile row. Callers load via
// GetProfileByUserID first, so a vanished row surfaces as
// gorm.ErrRecordNotFound there rather than here.
func (r *gormRepository) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	result := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ?", profile.UserID).
		Updates(map[string]interface{}{
			"is_pro":                 profile.IsPro,
			"stripe_customer_id":     profile.StripeCustomerID,
			"stripe_subscription_id": profile.StripeSubscriptionID,
			"stripe_price_id":        profile.StripePriceID,
			"current_period_end":     profile.CurrentPeriodEnd,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateWebhookEventIfNotExists records the delivery keyed on the provider
// event ID. The bool reports whether this call created the row; on false the
// returned row carries the earlier delivery's processing state, which the
// caller checks before deciding whether to run the event again.
func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, input WebhookEventInput) (*models.StripeWebhookEvent, bool, error) {
	record := &models.StripeWebhookEvent{
		StripeEventID:  input.EventID,
		EventType:      input.EventType,
		PayloadJSON:    input.PayloadJSON,
		SignatureValid: input.SignatureValid,
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_event_id"}},
		DoNothing: true,
	}).Create(record)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		var existing models.StripeWebhookEvent
		if err := r.db.WithContext(ctx).First(&existing, "stripe_event_id = ?", input.EventID).Error; err != nil {
			return nil, false, err
		}
		return &existing, false, nil
	}
	return record, true, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, eventID uint, processingErr error) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at": &now,
	}
	if processingErr != nil {
		updates["processing_error"] = processingErr.Error()
	} else {
		updates["processing_error"] = ""
	}
	return r.db.WithContext(ctx).Model(&models.StripeWebhookEvent{}).
		Where("id = ?", eventID).
		Updates(updates).Error
}
