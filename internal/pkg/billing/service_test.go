package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/trendfox/TrendFox/app/models"
)

type fakeGateway struct {
	subscriptions map[string]*SubscriptionState
	checkoutURL   string
	checkoutErr   error
	fetchCalls    int
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, userID uint, email string) (string, error) {
	if f.checkoutErr != nil {
		return "", f.checkoutErr
	}
	return f.checkoutURL, nil
}

func (f *fakeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionState, error) {
	f.fetchCalls++
	state, ok := f.subscriptions[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("no such subscription %s", subscriptionID)
	}
	return state, nil
}

func (f *fakeGateway) VerifyWebhook(payload []byte, signatureHeader string) (*Event, error) {
	return nil, errors.New("not used in tests")
}

type fakeRepo struct {
	profiles    map[uint]*models.Profile
	events      map[string]*models.StripeWebhookEvent
	nextEventID uint
	upsertCalls int
	updateCalls int
	failWrites  bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		profiles: make(map[uint]*models.Profile),
		events:   make(map[string]*models.StripeWebhookEvent),
	}
}

func (f *fakeRepo) GetProfileByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeRepo) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	f.upsertCalls++
	if f.failWrites {
		return errors.New("database unavailable")
	}
	copied := *profile
	f.profiles[profile.UserID] = &copied
	return nil
}

func (f *fakeRepo) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	f.updateCalls++
	if f.failWrites {
		return errors.New("database unavailable")
	}
	if _, ok := f.profiles[profile.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *profile
	f.profiles[profile.UserID] = &copied
	return nil
}

func (f *fakeRepo) CreateWebhookEventIfNotExists(ctx context.Context, input WebhookEventInput) (*models.StripeWebhookEvent, bool, error) {
	if existing, ok := f.events[input.EventID]; ok {
		return existing, false, nil
	}
	f.nextEventID++
	record := &models.StripeWebhookEvent{
		ID:             f.nextEventID,
		StripeEventID:  input.EventID,
		EventType:      input.EventType,
		PayloadJSON:    input.PayloadJSON,
		SignatureValid: input.SignatureValid,
	}
	f.events[input.EventID] = record
	return record, true, nil
}

func (f *fakeRepo) MarkWebhookProcessed(ctx context.Context, eventID uint, processingErr error) error {
	for _, record := range f.events {
		if record.ID == eventID {
			now := time.Now()
			record.ProcessedAt = &now
			if processingErr != nil {
				record.ProcessingError = processingErr.Error()
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func checkoutEvent(t *testing.T, metadata map[string]string, subscriptionID string) *Event {
	t.Helper()
	payload := map[string]interface{}{
		"id":       "cs_test_1",
		"mode":     "subscription",
		"customer": "cus_123",
		"metadata": metadata,
	}
	if subscriptionID != "" {
		payload["subscription"] = subscriptionID
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal checkout payload: %v", err)
	}
	return &Event{ID: "evt_checkout_1", Type: EventCheckoutSessionCompleted, Raw: raw}
}

func subscriptionEvent(t *testing.T, eventType, status string, metadata map[string]string) *Event {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":       "sub_123",
		"customer": "cus_123",
		"status":   status,
		"metadata": metadata,
		"items": map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"current_period_end": 1700000000,
					"price":              map[string]string{"id": "price_123"},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal subscription payload: %v", err)
	}
	return &Event{ID: "evt_sub_1", Type: eventType, Raw: raw}
}

func TestProcessEventCheckoutCompleted(t *testing.T) {
	gateway := &fakeGateway{
		subscriptions: map[string]*SubscriptionState{
			"sub_123": {
				ID:               "sub_123",
				CustomerID:       "cus_123",
				Status:           "active",
				PriceID:          "price_123",
				CurrentPeriodEnd: 1700000000,
			},
		},
	}
	repo := newFakeRepo()
	service := NewService(gateway, repo)

	outcome, err := service.ProcessEvent(context.Background(), checkoutEvent(t, map[string]string{"user_id": "42"}, "sub_123"))
	if err != nil {
		t.Fatalf("ProcessEvent returned error: %v", err)
	}
	if outcome != OutcomeProcessed {
		t.Fatalf("expected processed outcome, got %q", outcome)
	}
	if gateway.fetchCalls != 1 {
		t.Fatalf("expected one authoritative subscription fetch, got %d", gateway.fetchCalls)
	}

	profile := repo.profiles[42]
	if profile == nil {
		t.Fatal("expected a profile row for user 42")
	}
	if !profile.IsPro {
		t.Fatal("expected pro to be granted for an active subscription")
	}
	if profile.StripeCustomerID != "cus_123" || profile.StripeSubscriptionID != "sub_123" || profile.StripePriceID != "price_123" {
		t.Fatalf("unexpected identifiers on profile: %+v", profile)
	}
	if got := FormatTimeISO(profile.CurrentPeriodEnd); got != "2023-11-14T22:13:20.000Z" {
		t.Fatalf("unexpected period end %q", got)
	}
}

func TestProcessEventCheckoutMissingMetadata(t *testing.T) {
	gateway := &fakeGateway{subscriptions: map[string]*SubscriptionState{}}
	repo := newFakeRepo()
	service := NewService(gateway, repo)

	outcome, err := service.ProcessEvent(context.Background(), checkoutEvent(t, nil, "sub_123"))
	if err != nil {
		t.Fatalf("ProcessEvent returned error: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Fatalf("expected ignored outcome, got %q", outcome)
	}
	if gateway.fetchCalls != 0 {
		t.Fatal("expected no provider fetch without user metadata")
	}
	if repo.upsertCalls != 0 {
		t.Fatal("expected no profile write without user metadata")
	}
}

func TestProcessEventCheckoutWithoutSubscription(t *testing.T) {
	service := NewService(&fakeGateway{}, newFakeRepo())

	outcome, err := service.ProcessEvent(context.Background(), checkoutEvent(t, map[string]string{"user_id": "42"}, ""))
	if err != nil {
		t.Fatalf("ProcessEvent returned error: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Fatalf("expected ignored outcome, got %q", outcome)
	}
}

func TestProcessEventCheckoutPersistenceFailure(t *testing.T) {
	gateway := &fakeGateway{
		subscriptions: map[string]*SubscriptionState{
			"sub_123": {ID: "sub_123", Status: "active"},
		},
	}
	repo := newFakeRepo()
	repo.failWrites = true
	service := NewService(gateway, repo)

	_, err := service.ProcessEvent(context.Background(), checkoutEvent(t, map[string]string{"user_id": "42"}, "sub_123"))
	if err == nil {
		t.Fatal("expected an error when the profile write fails")
	}
}

func TestProcessEventSubscriptionUpdated(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles[42] = &models.Profile{UserID: 42, IsPro: false}
	service := NewService(&fakeGateway{}, repo)

	outcome, err := service.ProcessEvent(context.Background(),
		subscriptionEvent(t, EventSubscriptionUpdated, "active", map[string]string{"user_id": "42"}))
	if err != nil {
		t.Fatalf("ProcessEvent returned error: %v", err)
	}
	if outcome != OutcomeProcessed {
		t.Fatalf("expected processed outcome, got %q", outcome)
	}

	profile := repo.profiles[42]
	if !profile.IsPro {
		t.Fatal("expected pro after an active update")
	}
	if profile.StripePriceID != "price_123" {
		t.Fatalf("expected price from payload items, got %q", profile.StripePriceID)
	}
	if profile.CurrentPeriodEnd == nil {
		t.Fatal("expected period end from payload items")
	}
}

func TestProcessEventSubscriptionDeletedKeepsIdentifiers(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles[42] = &models.Profile{
		UserID:               42,
		IsPro:                true,
		StripeCustomerID:     "cus_123",
		StripeSubscriptionID: "sub_123",
		StripePriceID:        "price_123",
	}
	service := NewService(&fakeGateway{}, repo)

	outcome, err := service.ProcessEvent(context.Background(),
		subscriptionEvent(t, EventSubscriptionDeleted, "canceled", map[string]string{"user_id": "42"}))
	if err != nil {
		t.Fatalf("ProcessEvent returned error: %v", err)
	}
	if outcome != OutcomeProcessed {
		t.Fatalf("expected processed outcome, got %q", outcome)
	}

	profile := repo.profiles[42]
	if profile.IsPro {
		t.Fatal("expected pro revoked after deletion")
	}
	if profile.StripeCustomerID != "cus_123" || profile.StripeSubscriptionID != "sub_123" {
		t.Fatalf("expected identifiers kept after deletion, got %+v", profile)
	}
}

// The terminal status comes from the payload and runs through the same
// activity predicate as updates. The entitlement is not cleared blindly.
func TestProcessEventSubscriptionDeletedResolvesPayloadStatus(t *testing.T) {
	cases := []struct {
		name      string
		status    string
		expectPro bool
	}{
		{name: "canceled revokes", status: "canceled", expectPro: false},
		{name: "trialing terminal status keeps entitlement", status: "trialing", expectPro: true},
		{name: "missing status falls back to canceled", status: "", expectPro: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRepo()
			repo.profiles[42] = &models.Profile{UserID: 42, IsPro: true, StripeSubscriptionID: "sub_123"}
			service := NewService(&fakeGateway{}, repo)

			outcome, err := service.ProcessEvent(context.Background(),
				subscriptionEvent(t, EventSubscriptionDeleted, tc.status, map[string]string{"user_id": "42"}))
			if err != nil {
				t.Fatalf("ProcessEvent returned error: %v", err)
			}
			if outcome != OutcomeProcessed {
				t.Fatalf("expected processed outcome, got %q", outcome)
			}
			if got := repo.profiles[42].IsPro; got != tc.expectPro {
				t.Fatalf("expected pro=%t for status %q, got %t", tc.expectPro, tc.status, got)
			}
		})
	}
}

func TestProcessEventSubscriptionWithoutProfile(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(&fakeGateway{}, repo)

	outcome, err := service.ProcessEvent(context.Background(),
		subscriptionEvent(t, EventSubscriptionUpdated, "active", map[string]string{"user_id": "42"}))
	if err != nil {
		t.Fatalf("ProcessEvent returned error: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Fatalf("expected ignored outcome for unknown user, got %q", outcome)
	}
}

func TestProcessEventUnknownType(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(&fakeGateway{}, repo)

	outcome, err := service.ProcessEvent(context.Background(),
		&Event{ID: "evt_x", Type: "invoice.paid", Raw: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("ProcessEvent returned error: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Fatalf("expected ignored outcome, got %q", outcome)
	}
}

func TestProcessEventReplayIsIdempotent(t *testing.T) {
	gateway := &fakeGateway{
		subscriptions: map[string]*SubscriptionState{
			"sub_123": {ID: "sub_123", CustomerID: "cus_123", Status: "active", PriceID: "price_123"},
		},
	}
	repo := newFakeRepo()
	service := NewService(gateway, repo)
	event := checkoutEvent(t, map[string]string{"user_id": "42"}, "sub_123")

	input := WebhookEventInput{EventID: event.ID, EventType: event.Type, PayloadJSON: string(event.Raw), SignatureValid: true}
	if _, created, err := service.RecordWebhookEvent(context.Background(), input); err != nil || !created {
		t.Fatalf("expected first delivery to be recorded, created=%t err=%v", created, err)
	}
	if _, err := service.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("ProcessEvent returned error: %v", err)
	}

	// Second delivery with the same event ID is detected, not reprocessed.
	if _, created, err := service.RecordWebhookEvent(context.Background(), input); err != nil || created {
		t.Fatalf("expected replay detection, created=%t err=%v", created, err)
	}
	if repo.upsertCalls != 1 {
		t.Fatalf("expected exactly one profile write, got %d", repo.upsertCalls)
	}
}

func TestCreateCheckout(t *testing.T) {
	gateway := &fakeGateway{checkoutURL: "https://checkout.stripe.com/c/pay/cs_test_1"}
	service := NewService(gateway, newFakeRepo())

	url, err := service.CreateCheckout(context.Background(), &models.User{ID: 42, Email: "fox@example.com"})
	if err != nil {
		t.Fatalf("CreateCheckout returned error: %v", err)
	}
	if url != gateway.checkoutURL {
		t.Fatalf("unexpected checkout URL %q", url)
	}
}
