package controllers

import (
	"net/http"

	"rightsnet/app/services"
)

// AuthController handles signup, login and profiles
type AuthController struct {
	authService *services.AuthService
}

// NewAuthController creates a new AuthController
func NewAuthController(authService *services.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

// Signup registers an account and returns a session
func (ac *AuthController) Signup(w http.ResponseWriter, r *http.Request) {
	var in services.SignupInput
	if err := decodeJSON(r, &in); err != nil {
		sendMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := ac.authService.Signup(in)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, session)
}

// Login exchanges credentials for a session
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		sendMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := ac.authService.Login(in.Email, in.Password)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, session)
}

// Me returns the caller's account
func (ac *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	user, err := ac.authService.Me(userID)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, user)
}

// UpdateMe edits the caller's profile
func (ac *AuthController) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in services.ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		sendMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := ac.authService.UpdateProfile(userID, in)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, user)
}

// ShowUser returns a public profile
func (ac *AuthController) ShowUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	user, err := ac.authService.GetUser(id)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, user)
}

// IndexUsers lists public profiles
func (ac *AuthController) IndexUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)
	users, err := ac.authService.ListUsers(page, perPage)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"users":    users,
		"page":     page,
		"per_page": perPage,
	})
}
