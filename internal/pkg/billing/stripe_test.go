package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload builds a Stripe-Signature header over the exact payload bytes,
// the same scheme Stripe's webhook library verifies.
func signPayload(payload []byte, secret string, at time.Time) string {
	ts := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func testEventPayload() []byte {
	return []byte(`{"id":"evt_test_1","type":"checkout.session.completed","data":{"object":{"id":"cs_test_1","metadata":{"user_id":"42"}}}}`)
}

func TestVerifyWebhookAcceptsValidSignature(t *testing.T) {
	gateway := &StripeGateway{WebhookSecret: testWebhookSecret}
	payload := testEventPayload()

	event, err := gateway.VerifyWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()))
	if err != nil {
		t.Fatalf("VerifyWebhook returned error: %v", err)
	}
	if event.ID != "evt_test_1" {
		t.Fatalf("unexpected event ID %q", event.ID)
	}
	if event.Type != EventCheckoutSessionCompleted {
		t.Fatalf("unexpected event type %q", event.Type)
	}
	if len(event.Raw) == 0 {
		t.Fatal("expected the data.object payload to be carried through")
	}
}

func TestVerifyWebhookRejectsTamperedPayload(t *testing.T) {
	gateway := &StripeGateway{WebhookSecret: testWebhookSecret}
	payload := testEventPayload()
	header := signPayload(payload, testWebhookSecret, time.Now())

	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = 'X'

	if _, err := gateway.VerifyWebhook(tampered, header); err == nil {
		t.Fatal("expected rejection for a payload the signature does not cover")
	}
}

func TestVerifyWebhookRejectsWrongSecret(t *testing.T) {
	gateway := &StripeGateway{WebhookSecret: testWebhookSecret}
	payload := testEventPayload()

	if _, err := gateway.VerifyWebhook(payload, signPayload(payload, "whsec_other", time.Now())); err == nil {
		t.Fatal("expected rejection for a signature from a different secret")
	}
}

func TestVerifyWebhookRequiresSecret(t *testing.T) {
	gateway := &StripeGateway{}
	payload := testEventPayload()

	_, err := gateway.VerifyWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()))
	if !errors.Is(err, ErrWebhookSecretMissing) {
		t.Fatalf("expected ErrWebhookSecretMissing, got %v", err)
	}
}

func TestCreateCheckoutSessionRequiresConfiguration(t *testing.T) {
	gateway := &StripeGateway{}
	if _, err := gateway.CreateCheckoutSession(context.Background(), 42, "fox@example.com"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
