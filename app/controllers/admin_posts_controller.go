package controllers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/trendfox/TrendFox/app/models"
	"github.com/trendfox/TrendFox/app/repository"
)

type adminPostRequest struct {
	PublishDate string `json:"publish_date"`
	Title       string `json:"title"`
	Platform    string `json:"platform"`
	PriceRange  string `json:"price_range"`
	Demand      string `json:"demand"`
	Competition string `json:"competition"`
	IsFree      bool   `json:"is_free"`
	Why         string `json:"why"`
	HowToCopy   string `json:"how_to_copy"`
}

// HandleAdminCreatePost handles POST /api/admin/posts. An empty publish
// date defaults to today.
func HandleAdminCreatePost(c *fiber.Ctx) error {
	var req adminPostRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	publishDate := time.Now()
	if req.PublishDate != "" {
		parsed, err := time.Parse("2006-01-02", req.PublishDate)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", "publish_date must be YYYY-MM-DD")
		}
		publishDate = parsed
	}

	post := &models.Post{
		PublishDate: publishDate,
		Title:       req.Title,
		Platform:    req.Platform,
		PriceRange:  req.PriceRange,
		Demand:      req.Demand,
		Competition: req.Competition,
		IsFree:      req.IsFree,
		Why:         req.Why,
		HowToCopy:   req.HowToCopy,
	}
	if err := post.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Post validation failed")
	}

	if err := repository.GetGlobalFactory().GetPostRepository().Create(post); err != nil {
		log.Printf("admin post creation failed: %v", err)
		return internalError(c, "Failed to create post")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": post.ID})
}

// HandleAdminListPosts handles GET /api/admin/posts with offset/limit
// pagination.
func HandleAdminListPosts(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	repo := repository.GetGlobalFactory().GetPostRepository()
	posts, err := repo.List(offset, limit)
	if err != nil {
		log.Printf("admin post listing failed: %v", err)
		return internalError(c, "Failed to list posts")
	}
	total, err := repo.Count()
	if err != nil {
		log.Printf("admin post count failed: %v", err)
		return internalError(c, "Failed to list posts")
	}

	return c.JSON(fiber.Map{
		"total":  total,
		"offset": offset,
		"limit":  limit,
		"posts":  posts,
	})
}

// HandleAdminDeletePost handles DELETE /api/admin/posts/:id.
func HandleAdminDeletePost(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid post id")
	}

	repo := repository.GetGlobalFactory().GetPostRepository()
	if _, err := repo.GetByID(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Post not found")
		}
		return internalError(c, "Failed to load post")
	}
	if err := repo.Delete(uint(id)); err != nil {
		log.Printf("admin post deletion failed: %v", err)
		return internalError(c, "Failed to delete post")
	}

	return c.JSON(fiber.Map{"ok": true})
}
