package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rightsnet/app/auth"
	"rightsnet/app/repositories"
	"rightsnet/app/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrapped: %w", services.ErrInvalid), http.StatusBadRequest},
		{&services.ValidationError{Err: errors.New("content: is required")}, http.StatusBadRequest},
		{fmt.Errorf("login: %w", services.ErrUnauthorized), http.StatusUnauthorized},
		{fmt.Errorf("post 1: %w", services.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("post 1: %w", repositories.ErrNotFound), http.StatusNotFound},
		{repositories.ErrConflict, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestSendErrorHidesInternalErrors(t *testing.T) {
	w := httptest.NewRecorder()
	sendError(w, httptest.NewRequest("GET", "/api/x", nil), errors.New("badger: corrupted table"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())

	w = httptest.NewRecorder()
	sendError(w, httptest.NewRequest("GET", "/api/x", nil), fmt.Errorf("post 9: %w", repositories.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"post 9: record not found"}`, w.Body.String())
}

func TestRequestHelpers(t *testing.T) {
	t.Run("path id", func(t *testing.T) {
		router := mux.NewRouter()
		var got int
		var gotErr error
		router.HandleFunc("/things/{id}", func(w http.ResponseWriter, r *http.Request) {
			got, gotErr = pathID(r, "id")
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/things/42", nil))
		require.NoError(t, gotErr)
		assert.Equal(t, 42, got)

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/things/abc", nil))
		assert.Error(t, gotErr)

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/things/0", nil))
		assert.Error(t, gotErr)
	})

	t.Run("pagination", func(t *testing.T) {
		page, perPage := pagination(httptest.NewRequest("GET", "/x?page=3&per_page=25", nil))
		assert.Equal(t, 3, page)
		assert.Equal(t, 25, perPage)

		page, perPage = pagination(httptest.NewRequest("GET", "/x?page=abc", nil))
		assert.Equal(t, 1, page)
		assert.Equal(t, 10, perPage)
	})

	t.Run("decode", func(t *testing.T) {
		var v struct {
			Name string `json:"name"`
		}
		require.NoError(t, decodeJSON(httptest.NewRequest("POST", "/x", strings.NewReader(`{"name":"a"}`)), &v))
		assert.Equal(t, "a", v.Name)

		err := decodeJSON(httptest.NewRequest("POST", "/x", strings.NewReader("")), &v)
		assert.EqualError(t, err, "request body is empty")

		err = decodeJSON(httptest.NewRequest("POST", "/x", strings.NewReader("{")), &v)
		assert.ErrorContains(t, err, "invalid JSON")
	})

	t.Run("current user", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/x", nil)
		assert.Zero(t, currentUser(req))

		w := httptest.NewRecorder()
		_, ok := requireUser(w, req)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		req = req.WithContext(auth.WithUser(req.Context(), 5))
		assert.Equal(t, 5, currentUser(req))
	})
}
