package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"rightsnet/app/auth"
	"rightsnet/app/models"
	"rightsnet/app/repositories/mock"
	"rightsnet/app/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	users    *mock.UserRepository
	posts    *mock.PostRepository
	comments *mock.CommentRepository
	postSvc  *services.PostService
	comSvc   *services.CommentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    mock.NewUserRepository(),
		posts:    mock.NewPostRepository(),
		comments: mock.NewCommentRepository(),
	}
	access := services.NewAccess(mock.NewCommunityRepository(), mock.NewMembershipRepository())
	f.postSvc = services.NewPostService(f.posts, f.comments, mock.NewLikeRepository(), f.users, access)
	f.comSvc = services.NewCommentService(f.comments, f.posts, access)
	return f
}

func (f *fixture) user(t *testing.T, name string) int {
	t.Helper()
	u := &models.User{
		Email:       name + "@example.org",
		Username:    name,
		CountryCode: "KE",
		AccountType: models.AccountIndividual,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.users.Create(u))
	return u.ID
}

// as stamps the request with an authenticated user, standing in for the
// auth middleware.
func as(req *http.Request, userID int) *http.Request {
	if userID == 0 {
		return req
	}
	return req.WithContext(auth.WithUser(req.Context(), userID))
}

func setupRouter(controller *PostController) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/posts", controller.Create).Methods("POST")
	router.HandleFunc("/posts", controller.Index).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}", controller.Show).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}", controller.Edit).Methods("PUT")
	router.HandleFunc("/posts/{id:[0-9]+}", controller.Delete).Methods("DELETE")
	router.HandleFunc("/posts/{id:[0-9]+}/like", controller.Like).Methods("POST")
	router.HandleFunc("/posts/{id:[0-9]+}/like", controller.Unlike).Methods("DELETE")

	return router
}

func TestPostController(t *testing.T) {
	f := newFixture(t)
	router := setupRouter(NewPostController(f.postSvc))
	author := f.user(t, "author")
	reader := f.user(t, "reader")

	var postID int

	t.Run("create post", func(t *testing.T) {
		payload := `{
			"content": "This is a test post content",
			"tags": ["Asylum"]
		}`

		req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, as(req, author))

		assert.Equal(t, http.StatusCreated, w.Code)
		var post models.Post
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))
		assert.Equal(t, author, post.AuthorID)
		assert.Equal(t, "KE", post.CountryCode)
		assert.Equal(t, []string{"asylum"}, post.Tags)
		postID = post.ID
	})

	t.Run("create requires a user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(`{"content":"anon"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("create invalid post", func(t *testing.T) {
		tests := []struct {
			name    string
			payload string
			status  int
		}{
			{"empty content", `{"content": ""}`, http.StatusBadRequest},
			{"malformed json", `{"content": `, http.StatusBadRequest},
			{"bad media url", `{"content": "x", "media_url": "nope"}`, http.StatusBadRequest},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(tt.payload))
				w := httptest.NewRecorder()
				router.ServeHTTP(w, as(req, author))
				assert.Equal(t, tt.status, w.Code)
				assert.Contains(t, w.Body.String(), `"error"`)
			})
		}
	})

	t.Run("list posts", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/posts?tag=%23asylum", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var res struct {
			Posts []models.Post `json:"posts"`
			Page  int           `json:"page"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, 1, res.Page)
		require.Len(t, res.Posts, 1)
		assert.Equal(t, postID, res.Posts[0].ID)

		req = httptest.NewRequest(http.MethodGet, "/posts?country=ug", nil)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Empty(t, res.Posts)
	})

	t.Run("get post", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/posts/"+strconv.Itoa(postID), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		req = httptest.NewRequest(http.MethodGet, "/posts/999", nil)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("update post", func(t *testing.T) {
		payload := `{"content": "Updated content"}`

		req := httptest.NewRequest(http.MethodPut, "/posts/"+strconv.Itoa(postID), strings.NewReader(payload))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, as(req, reader))
		assert.Equal(t, http.StatusForbidden, w.Code)

		req = httptest.NewRequest(http.MethodPut, "/posts/"+strconv.Itoa(postID), strings.NewReader(payload))
		w = httptest.NewRecorder()
		router.ServeHTTP(w, as(req, author))
		assert.Equal(t, http.StatusOK, w.Code)

		post, err := f.posts.GetByID(postID)
		require.NoError(t, err)
		assert.Equal(t, "Updated content", post.Content)
	})

	t.Run("like and unlike", func(t *testing.T) {
		path := "/posts/" + strconv.Itoa(postID) + "/like"

		w := httptest.NewRecorder()
		router.ServeHTTP(w, as(httptest.NewRequest(http.MethodPost, path, nil), reader))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"like_count":1`)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, as(httptest.NewRequest(http.MethodPost, path, nil), reader))
		assert.Equal(t, http.StatusConflict, w.Code)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, as(httptest.NewRequest(http.MethodDelete, path, nil), reader))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"like_count":0`)
	})

	t.Run("delete post", func(t *testing.T) {
		path := "/posts/" + strconv.Itoa(postID)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, as(httptest.NewRequest(http.MethodDelete, path, nil), reader))
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, as(httptest.NewRequest(http.MethodDelete, path, nil), author))
		assert.Equal(t, http.StatusNoContent, w.Code)

		_, err := f.posts.GetByID(postID)
		assert.Error(t, err)
	})
}
