package controllers

import (
	"net/http"

	"rightsnet/app/models"
	"rightsnet/app/repositories"
	"rightsnet/app/services"

	"github.com/gorilla/mux"
)

// CommunityController handles communities and memberships
type CommunityController struct {
	communityService *services.CommunityService
}

// NewCommunityController creates a new CommunityController
func NewCommunityController(communityService *services.CommunityService) *CommunityController {
	return &CommunityController{communityService: communityService}
}

// Index lists communities, filtered by ?country= and ?q=
func (cc *CommunityController) Index(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)
	filter := repositories.CommunityFilter{
		CountryCode: r.URL.Query().Get("country"),
		Query:       r.URL.Query().Get("q"),
	}
	communities, err := cc.communityService.List(filter, page, perPage)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"communities": communities,
		"page":        page,
		"per_page":    perPage,
	})
}

// Show returns a community by id
func (cc *CommunityController) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid community ID")
		return
	}
	c, err := cc.communityService.Get(id)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, c)
}

// ShowBySlug returns a community by slug
func (cc *CommunityController) ShowBySlug(w http.ResponseWriter, r *http.Request) {
	c, err := cc.communityService.GetBySlug(mux.Vars(r)["slug"])
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, c)
}

// Mine lists the caller's communities with their membership
func (cc *CommunityController) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	joined, err := cc.communityService.ForUser(userID)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"communities": joined})
}

// Create founds a community owned by the caller
func (cc *CommunityController) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in services.CommunityInput
	if err := decodeJSON(r, &in); err != nil {
		sendMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := cc.communityService.Create(userID, in)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, c)
}

// Update edits a community's details
func (cc *CommunityController) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid community ID")
		return
	}
	var in services.CommunityInput
	if err := decodeJSON(r, &in); err != nil {
		sendMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := cc.communityService.Update(userID, id, in)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, c)
}

// Delete removes a community
func (cc *CommunityController) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid community ID")
		return
	}
	if err := cc.communityService.Delete(userID, id); err != nil {
		sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Join asks to join a community
func (cc *CommunityController) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid community ID")
		return
	}
	m, err := cc.communityService.Join(userID, id)
	if err != nil {
		sendError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !m.IsActive() {
		status = http.StatusAccepted
	}
	sendJSON(w, status, m)
}

// Leave drops the caller's membership
func (cc *CommunityController) Leave(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid community ID")
		return
	}
	if err := cc.communityService.Leave(userID, id); err != nil {
		sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Members lists memberships; ?status=pending shows join requests
func (cc *CommunityController) Members(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid community ID")
		return
	}
	status := models.MemberStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.MemberActive
	}
	members, err := cc.communityService.Members(currentUser(r), id, status)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"members": members})
}

// Approve accepts a pending join request
func (cc *CommunityController) Approve(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid community ID")
		return
	}
	memberID, err := pathID(r, "userId")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	m, err := cc.communityService.Approve(userID, id, memberID)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, m)
}

// SetRole promotes or demotes a member
func (cc *CommunityController) SetRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid community ID")
		return
	}
	memberID, err := pathID(r, "userId")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	var in struct {
		Role models.MemberRole `json:"role"`
	}
	if err := decodeJSON(r, &in); err != nil {
		sendMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := cc.communityService.SetRole(userID, id, memberID, in.Role)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, m)
}
