package handlers

import (
	"net/http"
	"time"

	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/anonto42/nano-feed/backend/internal/newsfeed"
	"github.com/anonto42/nano-feed/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	feedService    *newsfeed.Service
	postRepository repositories.PostRepository
	userRepository UserLookup
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(
	feedService *newsfeed.Service,
	postRepo repositories.PostRepository,
	userRepo UserLookup,
) *FeedHandler {
	return &FeedHandler{
		feedService:    feedService,
		postRepository: postRepo,
		userRepository: userRepo,
	}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

// feedItem is one hydrated entry of the timeline.
type feedItem struct {
	PostID    string             `json:"post_id"`
	CreatedAt time.Time          `json:"created_at"`
	Content   string             `json:"content,omitempty"`
	Author    models.UserCompact `json:"author,omitempty"`
}

// GetFeed returns one page of the current user's timeline, newest first.
// Pagination is endless-scroll: an opaque cursor, no page numbers, no total
// count.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	page, err := h.feedService.GetNewsfeed(c.Request().Context(), currentUserID, pageRequest(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	items := make([]feedItem, len(page.Items))
	for i, entry := range page.Items {
		item := feedItem{PostID: entry.PostID, CreatedAt: entry.CreatedAt}
		if post, err := h.postRepository.GetPostByID(c.Request().Context(), entry.PostID); err == nil {
			item.Content = post.Content
			if author, err := h.userRepository.GetUserByIDCached(c.Request().Context(), post.AuthorID); err == nil {
				item.Author = author.ToCompact()
			}
		}
		items[i] = item
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"items": items},
		"meta": echo.Map{
			"has_next":    page.HasNext,
			"next_cursor": nullableCursor(page.NextCursor),
		},
	})
}
