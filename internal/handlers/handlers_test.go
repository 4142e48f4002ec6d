package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/nano-feed/backend/internal/feedcache"
	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/anonto42/nano-feed/backend/internal/newsfeed"
	"github.com/anonto42/nano-feed/backend/internal/queue"
	"github.com/anonto42/nano-feed/backend/internal/repositories"
	"github.com/anonto42/nano-feed/backend/validators"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// stubPostRepository keeps posts in memory for handler tests.
type stubPostRepository struct {
	mu    sync.Mutex
	posts map[string]models.Post
}

func newStubPostRepository() *stubPostRepository {
	return &stubPostRepository{posts: make(map[string]models.Post)}
}

func (r *stubPostRepository) CreatePost(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post.ID = primitive.NewObjectID()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.CreatedAt = post.CreatedAt.Truncate(time.Millisecond)
	post.UpdatedAt = post.CreatedAt
	r.posts[post.ID.Hex()] = *post
	return nil
}

func (r *stubPostRepository) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &post, nil
}

func (r *stubPostRepository) GetPostsByAuthorID(_ context.Context, authorID uint, limit int64) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Post
	for _, p := range r.posts {
		if p.AuthorID == authorID && int64(len(out)) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

// stubUserLookup serves a fixed user set.
type stubUserLookup map[uint]models.User

func (s stubUserLookup) GetUserByIDCached(_ context.Context, id uint) (*models.User, error) {
	user, ok := s[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &user, nil
}

// dropQueue accepts every task and forgets it; handler tests exercise the
// synchronous path only.
type dropQueue struct{}

func (dropQueue) Enqueue(context.Context, string, queue.Task) error { return nil }

type handlerEnv struct {
	echo  *echo.Echo
	svc   *newsfeed.Service
	posts *stubPostRepository
	users stubUserLookup
}

func newHandlerEnv() *handlerEnv {
	e := echo.New()
	e.Validator = validators.NewValidator()
	svc := newsfeed.NewService(
		repositories.NewMemoryEdgeRepository(),
		repositories.NewMemoryNewsfeedRepository(),
		feedcache.NewMemoryFeedCache(200),
		dropQueue{},
		newsfeed.Config{},
	)
	return &handlerEnv{
		echo:  e,
		svc:   svc,
		posts: newStubPostRepository(),
		users: stubUserLookup{},
	}
}

// request builds an echo context carrying the claims of userID; userID 0
// leaves the request unauthenticated.
func (env *handlerEnv) request(t *testing.T, method, target string, body string, userID uint) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	if userID != 0 {
		c.Set("user", &models.JwtCustomClaims{UserID: userID, Email: "user@example.com"})
	}
	return c, rec
}

func httpStatus(err error) int {
	if httpErr, ok := err.(*echo.HTTPError); ok {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}
