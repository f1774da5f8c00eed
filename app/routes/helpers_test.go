package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rightsnet/app/auth"
	"rightsnet/app/repositories"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// setupTestRouter builds the full application over an in-memory store.
func setupTestRouter(t *testing.T) (*mux.Router, *Deps) {
	t.Helper()
	store, err := repositories.NewTestStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	deps := NewDeps(store, Options{
		Tokens:     auth.NewTokenIssuer("routes-test-secret", time.Hour),
		BcryptCost: bcrypt.MinCost,
		BufferSize: 64,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return SetupRoutes(deps), deps
}

// call performs a request against the router. body is JSON encoded unless nil.
func call(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID int `json:"id"`
	} `json:"user"`
}

// signup registers a user in KE and returns its token and id.
func signup(t *testing.T, router http.Handler, username, accountType string) session {
	t.Helper()
	rr := call(t, router, "POST", "/api/auth/signup", "", map[string]string{
		"email":        username + "@example.org",
		"username":     username,
		"password":     "correct horse",
		"display_name": username,
		"country_code": "KE",
		"account_type": accountType,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var s session
	decode(t, rr, &s)
	require.NotEmpty(t, s.Token)
	return s
}
