package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"gorm.io/gorm"

	"github.com/trendfox/TrendFox/app/models"
)

// Outcome tells the webhook handler how to acknowledge an event.
type Outcome string

const (
	// OutcomeProcessed means the event changed persisted state.
	OutcomeProcessed Outcome = "processed"
	// OutcomeIgnored means the event was understood but intentionally not
	// acted on. Ignored events are still acknowledged with 200 so the
	// provider stops redelivering them.
	OutcomeIgnored Outcome = "ignored"
)

// Service reconciles provider subscription state into local profiles and
// opens checkout sessions. All provider and database access goes through the
// injected interfaces.
type Service struct {
	gateway PaymentGateway
	repo    Repository
}

func NewService(gateway PaymentGateway, repo Repository) *Service {
	return &Service{gateway: gateway, repo: repo}
}

// NewServiceFromDB builds the production wiring: the Stripe gateway from
// environment configuration over a gorm-backed repository.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewStripeGatewayFromEnv(), NewRepository(db))
}

// CreateCheckout opens a hosted checkout session for the user and returns
// the redirect URL.
func (s *Service) CreateCheckout(ctx context.Context, user *models.User) (string, error) {
	return s.gateway.CreateCheckoutSession(ctx, user.ID, user.Email)
}

// VerifyWebhook checks the provider signature over the raw payload bytes.
func (s *Service) VerifyWebhook(payload []byte, signatureHeader string) (*Event, error) {
	return s.gateway.VerifyWebhook(payload, signatureHeader)
}

// RecordWebhookEvent persists the delivery for idempotency and audit. The
// bool is false for a replayed event ID.
func (s *Service) RecordWebhookEvent(ctx context.Context, input WebhookEventInput) (*models.StripeWebhookEvent, bool, error) {
	return s.repo.CreateWebhookEventIfNotExists(ctx, input)
}

// MarkWebhookProcessed stamps the stored delivery with the processing result.
func (s *Service) MarkWebhookProcessed(ctx context.Context, eventID uint, processingErr error) error {
	return s.repo.MarkWebhookProcessed(ctx, eventID, processingErr)
}

// ProcessEvent applies one verified webhook event to the profile store.
// An OutcomeIgnored with nil error means the handler should acknowledge
// without a state change; a non-nil error means persistence or provider
// lookup failed and the delivery should be retried.
func (s *Service) ProcessEvent(ctx context.Context, event *Event) (Outcome, error) {
	switch event.Type {
	case EventCheckoutSessionCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		return s.handleSubscriptionChanged(ctx, event)
	default:
		return OutcomeIgnored, nil
	}
}

// handleCheckoutCompleted reconciles after a completed checkout. The session
// payload's status can be stale, so the authoritative subscription is
// fetched from the provider before anything is written.
func (s *Service) handleCheckoutCompleted(ctx context.Context, event *Event) (Outcome, error) {
	var session checkoutSessionPayload
	if err := json.Unmarshal(event.Raw, &session); err != nil {
		return OutcomeIgnored, fmt.Errorf("decode checkout session: %w", err)
	}

	userID, ok := userIDFromMetadata(session.Metadata)
	if !ok {
		log.Printf("[Billing] checkout session %s has no usable %s metadata, ignoring", session.ID, MetadataUserIDKey)
		return OutcomeIgnored, nil
	}

	subscriptionID := session.Subscription.String()
	if subscriptionID == "" {
		log.Printf("[Billing] checkout session %s carries no subscription, ignoring", session.ID)
		return OutcomeIgnored, nil
	}

	state, err := s.gateway.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("fetch subscription for checkout %s: %w", session.ID, err)
	}

	profile := &models.Profile{
		UserID:               userID,
		IsPro:                IsActiveEquivalent(state.Status),
		StripeCustomerID:     state.CustomerID,
		StripeSubscriptionID: state.ID,
		StripePriceID:        state.PriceID,
		CurrentPeriodEnd:     UnixToTime(state.CurrentPeriodEnd),
	}
	if profile.StripeCustomerID == "" {
		profile.StripeCustomerID = session.Customer.String()
	}

	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return OutcomeIgnored, fmt.Errorf("upsert profile for user %d: %w", userID, err)
	}

	log.Printf("[Billing] reconciled checkout for user %d: subscription=%s status=%s pro=%t",
		userID, state.ID, state.Status, profile.IsPro)
	return OutcomeProcessed, nil
}

// handleSubscriptionChanged applies update and delete events straight from
// the payload. Stripe sends the subscription's full state on these, so no
// provider fetch is needed. Identifiers are kept on cancellation; only the
// entitlement flips.
func (s *Service) handleSubscriptionChanged(ctx context.Context, event *Event) (Outcome, error) {
	var sub subscriptionPayload
	if err := json.Unmarshal(event.Raw, &sub); err != nil {
		return OutcomeIgnored, fmt.Errorf("decode subscription: %w", err)
	}

	userID, ok := userIDFromMetadata(sub.Metadata)
	if !ok {
		log.Printf("[Billing] subscription %s has no usable %s metadata, ignoring", sub.ID, MetadataUserIDKey)
		return OutcomeIgnored, nil
	}

	// Stripe sends the subscription's terminal status on deleted events, so
	// the entitlement is resolved through the same predicate as updates. The
	// fallback only covers payloads that omit the status entirely.
	status := sub.Status
	if event.Type == EventSubscriptionDeleted && status == "" {
		status = "canceled"
	}

	profile, err := s.repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Subscription event for a user who never completed checkout
			// here. Acknowledge so the provider stops retrying.
			log.Printf("[Billing] no profile for user %d on %s, ignoring", userID, event.Type)
			return OutcomeIgnored, nil
		}
		return OutcomeIgnored, fmt.Errorf("load profile for user %d: %w", userID, err)
	}

	profile.IsPro = IsActiveEquivalent(status)
	profile.StripeSubscriptionID = sub.ID
	if customer := sub.Customer.String(); customer != "" {
		profile.StripeCustomerID = customer
	}
	if priceID := sub.firstPriceID(); priceID != "" {
		profile.StripePriceID = priceID
	}
	if end := sub.periodEnd(); end > 0 {
		profile.CurrentPeriodEnd = UnixToTime(end)
	}

	if err := s.repo.UpdateProfile(ctx, profile); err != nil {
		return OutcomeIgnored, fmt.Errorf("update profile for user %d: %w", userID, err)
	}

	log.Printf("[Billing] applied %s for user %d: status=%s pro=%t",
		event.Type, userID, status, profile.IsPro)
	return OutcomeProcessed, nil
}

func userIDFromMetadata(metadata map[string]string) (uint, bool) {
	raw, ok := metadata[MetadataUserIDKey]
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
