package controllers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/trendfox/TrendFox/internal/pkg/billing"
	"github.com/trendfox/TrendFox/internal/pkg/database"
)

// StripeWebhookController receives and acknowledges Stripe webhook
// deliveries. Status codes matter here: 2xx stops redelivery, 5xx asks
// Stripe to retry.
type StripeWebhookController struct {
	svc *billing.Service
}

func NewStripeWebhookController(svc *billing.Service) *StripeWebhookController {
	return &StripeWebhookController{svc: svc}
}

// NewDefaultStripeWebhookController wires the production billing service.
func NewDefaultStripeWebhookController() *StripeWebhookController {
	return NewStripeWebhookController(billing.NewServiceFromDB(database.GetDB()))
}

// HandleWebhook handles POST /api/stripe/webhook. The signature covers the
// exact raw body bytes, so the payload is taken from BodyRaw and never
// re-parsed before verification.
func (ct *StripeWebhookController) HandleWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))
	if signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing_signature"})
	}

	event, err := ct.svc.VerifyWebhook(rawBody, signature)
	if err != nil {
		if errors.Is(err, billing.ErrWebhookSecretMissing) {
			log.Print("[Webhook] STRIPE_WEBHOOK_SECRET is not configured")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "webhook_not_configured"})
		}
		log.Printf("[Webhook] signature verification failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	stored, created, err := ct.svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		EventID:        event.ID,
		EventType:      event.Type,
		PayloadJSON:    string(rawBody),
		SignatureValid: true,
	})
	if err != nil {
		log.Printf("[Webhook] failed to record event %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		if stored.IsProcessed() {
			return c.JSON(fiber.Map{"ok": true, "duplicate": true})
		}
		// The earlier delivery was recorded but its processing failed or was
		// cut short, so this retry must run the reconciliation again.
		log.Printf("[Webhook] reprocessing event %s after earlier failure", event.ID)
	}

	outcome, err := ct.svc.ProcessEvent(ctx, event)
	if err != nil {
		log.Printf("[Webhook] processing event %s (%s) failed: %v", event.ID, event.Type, err)
		_ = ct.svc.MarkWebhookProcessed(ctx, stored.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_processing_failed"})
	}

	_ = ct.svc.MarkWebhookProcessed(ctx, stored.ID, nil)
	if outcome == billing.OutcomeIgnored {
		return c.JSON(fiber.Map{"ok": true, "ignored": true})
	}
	return c.JSON(fiber.Map{"ok": true})
}
