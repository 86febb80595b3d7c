package controllers

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/trendfox/TrendFox/app/models"
	"github.com/trendfox/TrendFox/app/repository"
	"github.com/trendfox/TrendFox/internal/pkg/cache"
	"github.com/trendfox/TrendFox/internal/pkg/mail"
	"github.com/trendfox/TrendFox/internal/pkg/usercontext"
)

const (
	magicLinkCachePrefix = "magiclink:"
	magicLinkTTL         = 15 * time.Minute
	magicLinkThrottle    = 60 * time.Second
)

type magicLinkRequest struct {
	Email string `json:"email"`
}

// HandleRequestMagicLink handles POST /api/auth/magic-link. The response is
// always 200 for a syntactically valid email so account existence cannot be
// probed.
func HandleRequestMagicLink(c *fiber.Ctx) error {
	var req magicLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "A valid email address is required")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByEmail(email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("magic link user lookup failed: %v", err)
			return internalError(c, "Sign-in is currently unavailable")
		}
		name := email[:strings.Index(email, "@")]
		user, err = models.CreateUser(name, email, "")
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", "A valid email address is required")
		}
		if err := userRepo.Create(user); err != nil {
			log.Printf("magic link user creation failed: %v", err)
			return internalError(c, "Sign-in is currently unavailable")
		}
	}

	if user.Status != models.STATUS_ACTIVE {
		// Same response as the happy path, no account probing.
		return c.JSON(fiber.Map{"ok": true})
	}
	if user.LoginLinkSentAt != nil && time.Since(*user.LoginLinkSentAt) < magicLinkThrottle {
		return c.JSON(fiber.Map{"ok": true})
	}

	token, err := models.GenerateLoginToken()
	if err != nil {
		log.Printf("magic link token generation failed: %v", err)
		return internalError(c, "Sign-in is currently unavailable")
	}
	if err := cache.Set(magicLinkCachePrefix+token, fmt.Sprintf("%d", user.ID), magicLinkTTL); err != nil {
		log.Printf("magic link token store failed: %v", err)
		return internalError(c, "Sign-in is currently unavailable")
	}

	now := time.Now()
	user.LoginLinkSentAt = &now
	if err := userRepo.Update(user); err != nil {
		log.Printf("failed to record magic link send time for user %d: %v", user.ID, err)
	}

	if err := mail.SendLoginLink(user.Email, token); err != nil {
		log.Printf("magic link mail to user %d failed: %v", user.ID, err)
		return internalError(c, "Sign-in is currently unavailable")
	}

	return c.JSON(fiber.Map{"ok": true})
}

type redeemRequest struct {
	Token string `json:"token"`
}

// HandleRedeemMagicLink handles POST /api/auth/redeem. The cache read is
// destructive, so a link works exactly once.
func HandleRedeemMagicLink(c *fiber.Ctx) error {
	var req redeemRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Token is required")
	}

	value, err := cache.GetDel(magicLinkCachePrefix + strings.TrimSpace(req.Token))
	if err != nil {
		if cache.IsNotFound(err) {
			return unauthorized(c, "Invalid or expired login link")
		}
		log.Printf("magic link redeem cache read failed: %v", err)
		return internalError(c, "Sign-in is currently unavailable")
	}

	userID, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return unauthorized(c, "Invalid or expired login link")
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(uint(userID))
	if err != nil {
		return unauthorized(c, "Invalid or expired login link")
	}
	if user.Status != models.STATUS_ACTIVE {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "User inactive")
	}

	return issueAccessToken(c, user)
}

type passwordLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandlePasswordLogin handles POST /api/auth/login for accounts that set a
// password.
func HandlePasswordLogin(c *fiber.Ctx) error {
	var req passwordLoginRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Email and password are required")
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return unauthorized(c, "Invalid credentials")
		}
		log.Printf("login user lookup failed: %v", err)
		return internalError(c, "Sign-in is currently unavailable")
	}
	if !user.CheckPassword(req.Password) {
		return unauthorized(c, "Invalid credentials")
	}
	if user.Status != models.STATUS_ACTIVE {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "User inactive")
	}

	return issueAccessToken(c, user)
}

// HandleLogout handles POST /api/auth/logout behind token auth. Only the
// presented token is revoked; other sessions of the user stay valid.
func HandleLogout(c *fiber.Ctx) error {
	tokenID, ok := c.Locals(usercontext.KeyAccessToken).(uint)
	if !ok || tokenID == 0 {
		return unauthorized(c, "Missing access token")
	}
	if err := repository.GetGlobalFactory().GetAccessTokenRepository().Revoke(tokenID); err != nil {
		log.Printf("token revocation failed for token %d: %v", tokenID, err)
		return internalError(c, "Logout failed")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleLogoutAll handles POST /api/auth/logout-all behind token auth and
// revokes every live session of the user, the presented one included.
func HandleLogoutAll(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c, "Missing access token")
	}
	if err := repository.GetGlobalFactory().GetAccessTokenRepository().RevokeAllForUser(userCtx.UserID); err != nil {
		log.Printf("bulk token revocation failed for user %d: %v", userCtx.UserID, err)
		return internalError(c, "Logout failed")
	}
	return c.JSON(fiber.Map{"ok": true})
}

func issueAccessToken(c *fiber.Ctx, user *models.User) error {
	record, raw, err := models.NewAccessToken(user.ID)
	if err != nil {
		log.Printf("access token generation failed for user %d: %v", user.ID, err)
		return internalError(c, "Sign-in is currently unavailable")
	}
	factory := repository.GetGlobalFactory()
	if err := factory.GetAccessTokenRepository().Create(record); err != nil {
		log.Printf("access token persist failed for user %d: %v", user.ID, err)
		return internalError(c, "Sign-in is currently unavailable")
	}

	// Every signed-in user gets a profile row on the free plan. The billing
	// reconciler upgrades it later, so a failure here is not fatal.
	if _, err := factory.GetProfileRepository().EnsureExists(user.ID); err != nil {
		log.Printf("failed to ensure profile for user %d: %v", user.ID, err)
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := factory.GetUserRepository().Update(user); err != nil {
		log.Printf("failed to record login time for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"accessToken": raw,
		"expiresAt":   record.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
