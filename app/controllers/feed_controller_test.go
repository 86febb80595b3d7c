package controllers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/trendfox/TrendFox/app/models"
	"github.com/trendfox/TrendFox/internal/pkg/usercontext"
)

type fakePostRepo struct {
	byDate map[string][]models.Post
}

func (f *fakePostRepo) Create(post *models.Post) error { return nil }
func (f *fakePostRepo) GetByID(id uint) (*models.Post, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakePostRepo) GetByPublishDate(date time.Time) ([]models.Post, error) {
	return f.byDate[date.Format("2006-01-02")], nil
}
func (f *fakePostRepo) List(offset, limit int) ([]models.Post, error) { return nil, nil }
func (f *fakePostRepo) Update(post *models.Post) error                { return nil }
func (f *fakePostRepo) Delete(id uint) error                          { return nil }
func (f *fakePostRepo) Count() (int64, error)                         { return 0, nil }

type fakeProfileRepo struct {
	profiles map[uint]*models.Profile
	reads    int
}

func (f *fakeProfileRepo) GetByUserID(userID uint) (*models.Profile, error) {
	f.reads++
	p, ok := f.profiles[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (f *fakeProfileRepo) EnsureExists(userID uint) (*models.Profile, error) {
	return f.GetByUserID(userID)
}

var feedTestDay = time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

func feedTestPosts() []models.Post {
	return []models.Post{
		{
			ID: 1, PublishDate: feedTestDay, Title: "LED dog collar", Platform: "TikTok",
			PriceRange: "$15-25", Demand: "high", Competition: "low",
			IsFree: false, Why: "winter visibility niche", HowToCopy: "bundle with leash",
		},
		{
			ID: 2, PublishDate: feedTestDay, Title: "Magnetic spice rack", Platform: "Instagram",
			PriceRange: "$20-30", Demand: "medium", Competition: "medium",
			IsFree: true, Why: "small kitchen trend", HowToCopy: "demo video ads",
		},
	}
}

func newFeedTestApp(posts *fakePostRepo, profiles *fakeProfileRepo, viewer *usercontext.UserContext) *fiber.App {
	app := fiber.New()
	ct := NewFeedController(posts, profiles)
	ct.now = func() time.Time { return feedTestDay }
	ct.countView = func(postID uint) error { return nil }
	app.Get("/api/feed", func(c *fiber.Ctx) error {
		if viewer != nil {
			c.Locals(usercontext.KeyUserContext, *viewer)
		}
		return ct.HandleGetFeed(c)
	})
	return app
}

func getFeed(t *testing.T, app *fiber.App) map[string]interface{} {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", "/api/feed", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	var payload map[string]interface{}
	assert.NoError(t, json.Unmarshal(raw, &payload))
	return payload
}

func feedPosts(payload map[string]interface{}) []map[string]interface{} {
	rawPosts := payload["posts"].([]interface{})
	posts := make([]map[string]interface{}, 0, len(rawPosts))
	for _, p := range rawPosts {
		posts = append(posts, p.(map[string]interface{}))
	}
	return posts
}

func TestHandleGetFeedAnonymousViewer(t *testing.T) {
	posts := &fakePostRepo{byDate: map[string][]models.Post{"2026-08-29": feedTestPosts()}}
	profiles := &fakeProfileRepo{profiles: map[uint]*models.Profile{}}
	app := newFeedTestApp(posts, profiles, nil)

	payload := getFeed(t, app)
	assert.Equal(t, "2026-08-29", payload["date"])

	items := feedPosts(payload)
	assert.Len(t, items, 2)

	// Paid post is locked, detail fields withheld, preview fields intact.
	assert.Equal(t, true, items[0]["locked"])
	assert.Equal(t, "", items[0]["why"])
	assert.Equal(t, "", items[0]["how_to_copy"])
	assert.Equal(t, "LED dog collar", items[0]["title"])
	assert.Equal(t, "$15-25", items[0]["price_range"])

	// Free post stays open to everyone.
	assert.Equal(t, false, items[1]["locked"])
	assert.Equal(t, "small kitchen trend", items[1]["why"])

	assert.Equal(t, 0, profiles.reads, "no profile read for anonymous viewers")
}

func TestHandleGetFeedProViewer(t *testing.T) {
	posts := &fakePostRepo{byDate: map[string][]models.Post{"2026-08-29": feedTestPosts()}}
	profiles := &fakeProfileRepo{profiles: map[uint]*models.Profile{
		42: {UserID: 42, IsPro: true},
	}}
	viewer := &usercontext.UserContext{UserID: 42, IsLoggedIn: true}
	app := newFeedTestApp(posts, profiles, viewer)

	payload := getFeed(t, app)
	items := feedPosts(payload)
	assert.Equal(t, false, items[0]["locked"])
	assert.Equal(t, "winter visibility niche", items[0]["why"])
	assert.Equal(t, "bundle with leash", items[0]["how_to_copy"])

	viewerInfo := payload["viewer"].(map[string]interface{})
	assert.Equal(t, "pro", viewerInfo["plan"])
	assert.Equal(t, 1, profiles.reads, "entitlement must come from a fresh profile read")
}

func TestHandleGetFeedFreeViewerWithProfile(t *testing.T) {
	posts := &fakePostRepo{byDate: map[string][]models.Post{"2026-08-29": feedTestPosts()}}
	profiles := &fakeProfileRepo{profiles: map[uint]*models.Profile{
		42: {UserID: 42, IsPro: false},
	}}
	viewer := &usercontext.UserContext{UserID: 42, IsLoggedIn: true}
	app := newFeedTestApp(posts, profiles, viewer)

	payload := getFeed(t, app)
	items := feedPosts(payload)
	assert.Equal(t, true, items[0]["locked"])

	viewerInfo := payload["viewer"].(map[string]interface{})
	assert.Equal(t, "free", viewerInfo["plan"])
}

func TestHandleGetFeedSignedInWithoutProfile(t *testing.T) {
	posts := &fakePostRepo{byDate: map[string][]models.Post{"2026-08-29": feedTestPosts()}}
	profiles := &fakeProfileRepo{profiles: map[uint]*models.Profile{}}
	viewer := &usercontext.UserContext{UserID: 7, IsLoggedIn: true}
	app := newFeedTestApp(posts, profiles, viewer)

	payload := getFeed(t, app)
	items := feedPosts(payload)
	assert.Equal(t, true, items[0]["locked"], "missing profile row means free tier")
}

func TestHandleGetFeedEmptyDay(t *testing.T) {
	posts := &fakePostRepo{byDate: map[string][]models.Post{}}
	profiles := &fakeProfileRepo{profiles: map[uint]*models.Profile{}}
	app := newFeedTestApp(posts, profiles, nil)

	payload := getFeed(t, app)
	assert.Len(t, feedPosts(payload), 0)
}
