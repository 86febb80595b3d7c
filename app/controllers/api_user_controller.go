package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/trendfox/TrendFox/app/models"
	"github.com/trendfox/TrendFox/app/repository"
	"github.com/trendfox/TrendFox/internal/pkg/billing"
	"github.com/trendfox/TrendFox/internal/pkg/entitlements"
	"github.com/trendfox/TrendFox/internal/pkg/usercontext"
)

// HandleGetUserAccount returns account information for the authenticated
// user. The plan is derived from a fresh profile read.
func HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c, "Missing or invalid authentication")
	}

	factory := repository.GetGlobalFactory()
	account, err := factory.GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return internalError(c, "Failed to load user")
	}

	profile, err := factory.GetProfileRepository().GetByUserID(userCtx.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return internalError(c, "Failed to load profile")
	}
	plan := entitlements.PlanForProfile(profile)

	response := fiber.Map{
		"id":            account.ID,
		"name":          account.Name,
		"email":         account.Email,
		"status":        account.Status,
		"plan":          plan,
		"is_admin":      account.Role == models.ROLE_ADMIN,
		"created_at":    account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(account.LastLoginAt),
	}

	if profile != nil {
		response["billing"] = fiber.Map{
			"stripe_customer_id":     profile.StripeCustomerID,
			"stripe_subscription_id": profile.StripeSubscriptionID,
			"stripe_price_id":        profile.StripePriceID,
			"current_period_end":     billing.FormatTimeISO(profile.CurrentPeriodEnd),
		}
	}

	return c.JSON(response)
}
