package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/anonto42/nano-feed/backend/internal/newsfeed"
	"github.com/anonto42/nano-feed/backend/internal/pagination"
	"github.com/anonto42/nano-feed/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	feedService    *newsfeed.Service
	userRepository UserLookup
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(feedService *newsfeed.Service, userRepo UserLookup) *FollowHandler {
	return &FollowHandler{feedService: feedService, userRepository: userRepo}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
	g.GET("/users/:id/followers", h.GetFollowers)
	g.GET("/users/:id/followings", h.GetFollowings)
}

// FollowUser follows a user
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	targetID, err := parseUserID(c)
	if err != nil {
		return err
	}
	if targetID == currentUserID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	}

	edge := &models.Edge{
		FromUserID: currentUserID,
		ToUserID:   targetID,
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
	created, err := h.feedService.OnFollowCreated(c.Request().Context(), edge)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !created {
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"message": "Already following",
		})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Followed",
	})
}

// UnfollowUser unfollows a user. Unfollowing someone you do not follow is a
// no-op, and previously delivered feed entries stay in place.
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	targetID, err := parseUserID(c)
	if err != nil {
		return err
	}

	if err := h.feedService.OnUnfollow(c.Request().Context(), currentUserID, targetID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Unfollowed",
	})
}

// followItem is one row of a follower/following listing.
type followItem struct {
	UserID    uint               `json:"user_id"`
	User      models.UserCompact `json:"user"`
	CreatedAt time.Time          `json:"created_at"`
}

// GetFollowers lists a user's followers, newest first, cursor-paginated.
func (h *FollowHandler) GetFollowers(c echo.Context) error {
	return h.listEdges(c, repositories.FollowerView)
}

// GetFollowings lists the users a user follows, newest first, cursor-paginated.
func (h *FollowHandler) GetFollowings(c echo.Context) error {
	return h.listEdges(c, repositories.FollowingView)
}

func (h *FollowHandler) listEdges(c echo.Context, view repositories.EdgeView) error {
	userID, err := parseUserID(c)
	if err != nil {
		return err
	}
	req := pageRequest(c)

	var page *pagination.Page[models.Edge]
	if view == repositories.FollowerView {
		page, err = h.feedService.GetFollowers(c.Request().Context(), userID, req)
	} else {
		page, err = h.feedService.GetFollowings(c.Request().Context(), userID, req)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	items := make([]followItem, len(page.Items))
	for i, edge := range page.Items {
		item := followItem{
			UserID:    view.Counterpart(edge),
			CreatedAt: edge.CreatedAt,
		}
		if user, err := h.userRepository.GetUserByIDCached(c.Request().Context(), item.UserID); err == nil {
			item.User = user.ToCompact()
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

func parseUserID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	return uint(id), nil
}

func pageRequest(c echo.Context) pagination.Request {
	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	return pagination.Request{
		Cursor:   c.QueryParam("cursor"),
		PageSize: size,
	}
}

func nullableCursor(cursor string) interface{} {
	if cursor == "" {
		return nil
	}
	return cursor
}
