package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"rightsnet/app/auth"
	"rightsnet/app/repositories"
	"rightsnet/app/services"

	"github.com/gorilla/mux"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func sendMessage(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, map[string]string{"error": message})
}

// sendError maps a service error onto a status code and writes it.
func sendError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal server error"
	}
	sendMessage(w, status, message)
}

func statusFor(err error) int {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, services.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repositories.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	if s := r.URL.Query().Get(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return fallback
}

// pagination reads page and per_page. The services clamp the values.
func pagination(r *http.Request) (page, perPage int) {
	return queryInt(r, "page", 1), queryInt(r, "per_page", 10)
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON: %v", err)
	}
	return nil
}

// currentUser returns the authenticated caller, or 0 for anonymous requests.
func currentUser(r *http.Request) int {
	id, _ := auth.UserID(r.Context())
	return id
}

// requireUser writes a 401 and returns false when the request is anonymous.
func requireUser(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		sendMessage(w, http.StatusUnauthorized, "authentication required")
		return 0, false
	}
	return id, true
}
