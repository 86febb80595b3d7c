package controllers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/trendfox/TrendFox/app/models"
	"github.com/trendfox/TrendFox/app/repository"
	"github.com/trendfox/TrendFox/internal/pkg/billing"
	"github.com/trendfox/TrendFox/internal/pkg/database"
)

// checkoutCreator is the slice of the billing service the checkout endpoint
// depends on.
type checkoutCreator interface {
	CreateCheckout(ctx context.Context, user *models.User) (string, error)
}

// tokenUserResolver maps a raw access token to its active user.
type tokenUserResolver func(raw string) (*models.User, error)

// CheckoutController creates hosted checkout sessions for signed-in users.
type CheckoutController struct {
	billing     checkoutCreator
	resolveUser tokenUserResolver
}

func NewCheckoutController(svc checkoutCreator, resolver tokenUserResolver) *CheckoutController {
	return &CheckoutController{billing: svc, resolveUser: resolver}
}

// NewDefaultCheckoutController wires the production dependencies.
func NewDefaultCheckoutController() *CheckoutController {
	return NewCheckoutController(billing.NewServiceFromDB(database.GetDB()), resolveAccessTokenUser)
}

type checkoutRequest struct {
	AccessToken string `json:"accessToken"`
}

// HandleCreateCheckout handles POST /api/checkout. The token is resolved
// before any provider call so anonymous requests never reach Stripe.
func (ct *CheckoutController) HandleCreateCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.AccessToken) == "" {
		return unauthorized(c, "Not signed in")
	}

	user, err := ct.resolveUser(strings.TrimSpace(req.AccessToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return unauthorized(c, "Not signed in")
		}
		log.Printf("checkout token resolution failed: %v", err)
		return internalError(c, "Sign-in check failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	url, err := ct.billing.CreateCheckout(ctx, user)
	if err != nil {
		log.Printf("checkout session creation failed for user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "checkout_failed"})
	}

	return c.JSON(fiber.Map{"url": url})
}

// resolveAccessTokenUser resolves a raw bearer token through the repository
// layer and enforces the active-user requirement. Expired and revoked tokens
// look the same as unknown ones to the caller.
func resolveAccessTokenUser(raw string) (*models.User, error) {
	factory := repository.GetGlobalFactory()
	token, err := factory.GetAccessTokenRepository().GetByHash(models.HashAccessToken(raw))
	if err != nil {
		return nil, err
	}
	if !token.IsValid() {
		return nil, gorm.ErrRecordNotFound
	}
	user, err := factory.GetUserRepository().GetByID(token.UserID)
	if err != nil {
		return nil, err
	}
	if user.Status != models.STATUS_ACTIVE {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}
