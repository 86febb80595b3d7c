package controllers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/trendfox/TrendFox/app/models"
	"github.com/trendfox/TrendFox/app/repository"
	"github.com/trendfox/TrendFox/internal/pkg/entitlements"
	"github.com/trendfox/TrendFox/internal/pkg/metrics/counter"
	"github.com/trendfox/TrendFox/internal/pkg/usercontext"
)

// FeedController serves the daily trend feed with entitlement-gated detail
// fields.
type FeedController struct {
	posts     repository.PostRepository
	profiles  repository.ProfileRepository
	now       func() time.Time
	countView func(postID uint) error
}

func NewFeedController(posts repository.PostRepository, profiles repository.ProfileRepository) *FeedController {
	return &FeedController{
		posts:     posts,
		profiles:  profiles,
		now:       time.Now,
		countView: counter.AddPostView,
	}
}

// NewDefaultFeedController wires the production repositories.
func NewDefaultFeedController() *FeedController {
	factory := repository.GetGlobalFactory()
	return NewFeedController(factory.GetPostRepository(), factory.GetProfileRepository())
}

// HandleGetFeed handles GET /api/feed. The viewer's pro flag is read from
// the profile store on every request so entitlement changes apply
// immediately. Client claims and the post-checkout success query param are
// never consulted.
func (ct *FeedController) HandleGetFeed(c *fiber.Ctx) error {
	today := ct.now()
	posts, err := ct.posts.GetByPublishDate(today)
	if err != nil {
		log.Printf("feed query failed: %v", err)
		return internalError(c, "Failed to load feed")
	}

	isPro := false
	plan := entitlements.PlanFree
	userCtx := usercontext.GetUserContext(c)
	if userCtx.IsLoggedIn {
		profile, err := ct.profiles.GetByUserID(userCtx.UserID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("profile read failed for user %d: %v", userCtx.UserID, err)
			return internalError(c, "Failed to load profile")
		}
		plan = entitlements.PlanForProfile(profile)
		isPro = plan == entitlements.PlanPro
	}

	items := make([]fiber.Map, 0, len(posts))
	for _, post := range posts {
		visible, locked := entitlements.RedactPost(post, isPro)
		items = append(items, feedItem(visible, locked))
		// View counting is best effort and never fails the request.
		if err := ct.countView(post.ID); err != nil {
			log.Printf("view count for post %d failed: %v", post.ID, err)
		}
	}

	return c.JSON(fiber.Map{
		"date": today.Format("2006-01-02"),
		"viewer": fiber.Map{
			"plan": plan,
			"pro":  isPro,
		},
		"posts": items,
	})
}

func feedItem(post models.Post, locked bool) fiber.Map {
	return fiber.Map{
		"id":          post.ID,
		"title":       post.Title,
		"platform":    post.Platform,
		"price_range": post.PriceRange,
		"demand":      post.Demand,
		"competition": post.Competition,
		"is_free":     post.IsFree,
		"why":         post.Why,
		"how_to_copy": post.HowToCopy,
		"locked":      locked,
	}
}
