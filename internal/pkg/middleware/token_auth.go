package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/trendfox/TrendFox/app/models"
	"github.com/trendfox/TrendFox/app/repository"
	"github.com/trendfox/TrendFox/internal/pkg/usercontext"
)

// TokenAuthMiddleware authenticates requests carrying a bearer access token.
// Requests without a resolvable token are rejected.
func TokenAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := extractTokenFromHeader(c)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing access token"})
		}

		user, token, err := resolveToken(raw)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid access token"})
			}
			log.Printf("access token lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Token verification failed"})
		}
		if user.Status != models.STATUS_ACTIVE {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "User inactive"})
		}

		setUserContext(c, user, token)
		return c.Next()
	}
}

// OptionalTokenAuthMiddleware resolves a bearer token when one is presented
// and continues anonymously otherwise. Invalid tokens are still rejected so
// a client never silently falls back to the free view.
func OptionalTokenAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := extractTokenFromHeader(c)
		if raw == "" {
			return c.Next()
		}

		user, token, err := resolveToken(raw)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid access token"})
			}
			log.Printf("access token lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Token verification failed"})
		}
		if user.Status != models.STATUS_ACTIVE {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "User inactive"})
		}

		setUserContext(c, user, token)
		return c.Next()
	}
}

// RequireAdmin gates a route group to admin users. Must run after a token
// auth middleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userCtx := usercontext.GetUserContext(c)
		if !userCtx.IsLoggedIn {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing access token"})
		}
		if !userCtx.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Admin access required"})
		}
		return c.Next()
	}
}

func resolveToken(raw string) (*models.User, *models.AccessToken, error) {
	hash := models.HashAccessToken(raw)
	factory := repository.GetGlobalFactory()
	user, token, err := factory.GetUserRepository().GetByAccessTokenHash(hash)
	if err != nil {
		return nil, nil, err
	}

	// Refresh last-used timestamp best-effort.
	if err := factory.GetAccessTokenRepository().TouchUsage(token.ID); err != nil {
		log.Printf("failed to update token usage timestamp for user %d: %v", user.ID, err)
	}
	return user, token, nil
}

func setUserContext(c *fiber.Ctx, user *models.User, token *models.AccessToken) {
	userCtx := usercontext.UserContext{
		UserID:     user.ID,
		Name:       user.Name,
		Email:      user.Email,
		IsLoggedIn: true,
		IsAdmin:    user.Role == models.ROLE_ADMIN,
	}
	c.Locals(usercontext.KeyUserContext, userCtx)
	c.Locals(usercontext.KeyUserID, user.ID)
	c.Locals(usercontext.KeyAccessToken, token.ID)
}

func extractTokenFromHeader(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return strings.TrimSpace(c.Get("X-Access-Token"))
}
