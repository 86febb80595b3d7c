package billing

import "encoding/json"

// Event is a verified webhook event, reduced to what the reconciler needs.
// Raw holds the provider's data.object payload.
type Event struct {
	ID   string
	Type string
	Raw  json.RawMessage
}

// Webhook event types this system acts on. Everything else is acknowledged
// and ignored so the provider stops redelivering.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
)

// MetadataUserIDKey is the metadata key carrying our user ID on checkout
// sessions and, via subscription_data, on the subscriptions they create.
// The subscription-level copy is what keeps later subscription events
// attributable to a user.
const MetadataUserIDKey = "user_id"

// SubscriptionState is the provider-neutral snapshot of one subscription.
type SubscriptionState struct {
	ID               string
	CustomerID       string
	Status           string
	PriceID          string
	CurrentPeriodEnd int64 // epoch seconds, 0 when unknown
	Metadata         map[string]string
}

// objectID decodes Stripe fields that arrive either as a plain ID string or
// as an expanded object carrying an "id" key.
type objectID string

func (o *objectID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = objectID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*o = objectID(obj.ID)
	return nil
}

func (o objectID) String() string {
	return string(o)
}

// checkoutSessionPayload is the slice of a checkout.session.completed
// data.object the reconciler reads.
type checkoutSessionPayload struct {
	ID           string            `json:"id"`
	Mode         string            `json:"mode"`
	Customer     objectID          `json:"customer"`
	Subscription objectID          `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

// subscriptionPayload is the slice of a customer.subscription.* data.object
// the reconciler reads. Subscription events carry full state, so no extra
// provider fetch is needed.
type subscriptionPayload struct {
	ID               string   `json:"id"`
	Customer         objectID `json:"customer"`
	Status           string   `json:"status"`
	CurrentPeriodEnd int64    `json:"current_period_end"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
			Price            struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

// firstPriceID returns the price of the first line item, empty when the
// payload carried none.
func (s *subscriptionPayload) firstPriceID() string {
	for _, item := range s.Items.Data {
		if item.Price.ID != "" {
			return item.Price.ID
		}
	}
	return ""
}

// periodEnd prefers the subscription-level field and falls back to the first
// item, which is where newer Stripe API versions report it.
func (s *subscriptionPayload) periodEnd() int64 {
	if s.CurrentPeriodEnd > 0 {
		return s.CurrentPeriodEnd
	}
	for _, item := range s.Items.Data {
		if item.CurrentPeriodEnd > 0 {
			return item.CurrentPeriodEnd
		}
	}
	return 0
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	EventID        string
	EventType      string
	PayloadJSON    string
	SignatureValid bool
}
