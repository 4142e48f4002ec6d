package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	env := newHandlerEnv()
	h := NewPostHandler(env.posts, env.svc)

	c, rec := env.request(t, http.MethodPost, "/posts", `{"content":"first post"}`, 1)
	require.NoError(t, h.CreatePost(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Post struct {
				ID       string `json:"id"`
				AuthorID uint   `json:"author_id"`
				Content  string `json:"content"`
			} `json:"post"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, uint(1), body.Data.Post.AuthorID)
	assert.Equal(t, "first post", body.Data.Post.Content)
	assert.NotEmpty(t, body.Data.Post.ID)
}

func TestCreatePostDeliversToAuthorFeed(t *testing.T) {
	env := newHandlerEnv()
	h := NewPostHandler(env.posts, env.svc)

	c, _ := env.request(t, http.MethodPost, "/posts", `{"content":"hello feed"}`, 7)
	require.NoError(t, h.CreatePost(c))

	feed := NewFeedHandler(env.svc, env.posts, env.users)
	c, rec := env.request(t, http.MethodGet, "/feed", "", 7)
	require.NoError(t, feed.GetFeed(c))

	var body struct {
		Data struct {
			Items []feedItem `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, "hello feed", body.Data.Items[0].Content)
}

func TestCreatePostRejectsEmptyContent(t *testing.T) {
	env := newHandlerEnv()
	h := NewPostHandler(env.posts, env.svc)

	c, _ := env.request(t, http.MethodPost, "/posts", `{"content":""}`, 1)
	err := h.CreatePost(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httpStatus(err))
}

func TestCreatePostRequiresAuth(t *testing.T) {
	env := newHandlerEnv()
	h := NewPostHandler(env.posts, env.svc)

	c, _ := env.request(t, http.MethodPost, "/posts", `{"content":"hi"}`, 0)
	err := h.CreatePost(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, httpStatus(err))
}

func TestGetPost(t *testing.T) {
	env := newHandlerEnv()
	h := NewPostHandler(env.posts, env.svc)

	c, _ := env.request(t, http.MethodPost, "/posts", `{"content":"findable"}`, 1)
	require.NoError(t, h.CreatePost(c))

	var postID string
	for id := range env.posts.posts {
		postID = id
	}

	c, rec := env.request(t, http.MethodGet, "/posts/"+postID, "", 1)
	c.SetParamNames("id")
	c.SetParamValues(postID)
	require.NoError(t, h.GetPost(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetPostNotFound(t *testing.T) {
	env := newHandlerEnv()
	h := NewPostHandler(env.posts, env.svc)

	c, _ := env.request(t, http.MethodGet, "/posts/missing", "", 1)
	c.SetParamNames("id")
	c.SetParamValues("missing")
	err := h.GetPost(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httpStatus(err))
}
