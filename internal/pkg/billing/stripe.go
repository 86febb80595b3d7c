package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/trendfox/TrendFox/internal/pkg/env"
)

var (
	ErrNotConfigured        = errors.New("stripe secret key is not configured")
	ErrWebhookSecretMissing = errors.New("stripe webhook secret is not configured")
)

// PaymentGateway is the narrow payment-provider contract the checkout
// initiator and the reconciler depend on. Handlers receive it injected so
// the core stays testable without network access.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, userID uint, email string) (string, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionState, error)
	VerifyWebhook(payload []byte, signatureHeader string) (*Event, error)
}

// StripeGateway implements PaymentGateway against the Stripe API.
type StripeGateway struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
	SuccessURL    string
	CancelURL     string
}

// NewStripeGatewayFromEnv builds the gateway from environment configuration.
// The success URL carries the client-side banner flag; it never gates
// content, the profile read does.
func NewStripeGatewayFromEnv() *StripeGateway {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"), "/")

	g := &StripeGateway{
		SecretKey:     strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		WebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		PriceID:       strings.TrimSpace(env.GetEnv("STRIPE_PRICE_ID", "")),
		SuccessURL:    base + "/?success=1",
		CancelURL:     base + "/pricing",
	}
	stripe.Key = g.SecretKey
	return g
}

// CreateCheckoutSession opens a subscription-mode checkout for the
// configured plan and returns the hosted redirect URL. The user ID rides
// along as metadata on the session and on the subscription it creates.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, userID uint, email string) (string, error) {
	if g.SecretKey == "" {
		return "", ErrNotConfigured
	}
	if g.PriceID == "" {
		return "", errors.New("STRIPE_PRICE_ID is not configured")
	}

	uid := strconv.FormatUint(uint64(userID), 10)

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(g.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.SuccessURL),
		CancelURL:  stripe.String(g.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataUserIDKey: uid},
		},
	}
	params.Context = ctx
	// Retries of a failed request must not open a second session.
	params.IdempotencyKey = stripe.String(uuid.NewString())
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.AddMetadata(MetadataUserIDKey, uid)

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// GetSubscription fetches the authoritative subscription state. The session
// payload's own status may be stale, so reconciliation after checkout always
// goes through here.
func (g *StripeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionState, error) {
	if g.SecretKey == "" {
		return nil, ErrNotConfigured
	}

	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve subscription %s: %w", subscriptionID, err)
	}

	state := &SubscriptionState{
		ID:       sub.ID,
		Status:   string(sub.Status),
		Metadata: sub.Metadata,
	}
	if sub.Customer != nil {
		state.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		first := sub.Items.Data[0]
		if first.Price != nil {
			state.PriceID = first.Price.ID
		}
		state.CurrentPeriodEnd = first.CurrentPeriodEnd
	}
	return state, nil
}

// VerifyWebhook checks the signature over the exact raw payload bytes and
// returns the parsed event. The signature commits to those bytes, so callers
// must never re-serialize before handing the body in.
func (g *StripeGateway) VerifyWebhook(payload []byte, signatureHeader string) (*Event, error) {
	if g.WebhookSecret == "" {
		return nil, ErrWebhookSecretMissing
	}

	stripeEvent, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	return &Event{
		ID:   stripeEvent.ID,
		Type: string(stripeEvent.Type),
		Raw:  stripeEvent.Data.Raw,
	}, nil
}
