package controllers

import (
	"net/http"

	"rightsnet/app/repositories"
	"rightsnet/app/services"
)

// DirectoryController handles the service directory
type DirectoryController struct {
	directoryService *services.DirectoryService
}

// NewDirectoryController creates a new DirectoryController
func NewDirectoryController(directoryService *services.DirectoryService) *DirectoryController {
	return &DirectoryController{directoryService: directoryService}
}

// Index lists listings, filtered by ?country=, ?category= and ?q=
func (dc *DirectoryController) Index(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)
	q := r.URL.Query()
	filter := repositories.ListingFilter{
		CountryCode: q.Get("country"),
		Category:    q.Get("category"),
		Query:       q.Get("q"),
	}
	listings, err := dc.directoryService.List(filter, page, perPage)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"listings": listings,
		"page":     page,
		"per_page": perPage,
	})
}

// Show returns one listing
func (dc *DirectoryController) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid listing ID")
		return
	}
	l, err := dc.directoryService.Get(id)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, l)
}

// Create publishes a listing for the calling organization
func (dc *DirectoryController) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in services.ListingInput
	if err := decodeJSON(r, &in); err != nil {
		sendMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	l, err := dc.directoryService.Create(userID, in)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, l)
}

// Update edits a listing
func (dc *DirectoryController) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid listing ID")
		return
	}
	var in services.ListingInput
	if err := decodeJSON(r, &in); err != nil {
		sendMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	l, err := dc.directoryService.Update(userID, id, in)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, l)
}

// Delete removes a listing
func (dc *DirectoryController) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid listing ID")
		return
	}
	if err := dc.directoryService.Delete(userID, id); err != nil {
		sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
