package controllers

import (
	"net/http"
	"strings"

	"rightsnet/app/models"
	"rightsnet/app/repositories"
	"rightsnet/app/services"
)

// PostController handles HTTP requests for the feed
type PostController struct {
	postService *services.PostService
}

// NewPostController creates a new PostController
func NewPostController(postService *services.PostService) *PostController {
	return &PostController{postService: postService}
}

// Index handles listing the feed
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)
	q := r.URL.Query()
	filter := repositories.PostFilter{
		CommunityID: queryInt(r, "community_id", 0),
		CountryCode: strings.ToUpper(strings.TrimSpace(q.Get("country"))),
		AuthorID:    queryInt(r, "author_id", 0),
		Tag:         strings.ToLower(strings.TrimPrefix(q.Get("tag"), "#")),
	}

	posts, err := pc.postService.ListFeed(currentUser(r), filter, page, perPage)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"posts":    posts,
		"page":     page,
		"per_page": perPage,
	})
}

// Show handles displaying a single post with its comments
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid post ID")
		return
	}
	post, err := pc.postService.GetPost(currentUser(r), id)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, post)
}

// Create handles creating a new post
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in services.PostInput
	if err := decodeJSON(r, &in); err != nil {
		sendMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	post, err := pc.postService.CreatePost(userID, in)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, post)
}

// Edit handles editing an existing post
func (pc *PostController) Edit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid post ID")
		return
	}
	var in services.PostInput
	if err := decodeJSON(r, &in); err != nil {
		sendMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	post, err := pc.postService.UpdatePost(userID, id, in)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, post)
}

// Delete handles deleting a post
func (pc *PostController) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid post ID")
		return
	}
	if err := pc.postService.DeletePost(userID, id); err != nil {
		sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Like records the caller's like
func (pc *PostController) Like(w http.ResponseWriter, r *http.Request) {
	pc.toggleLike(w, r, pc.postService.Like)
}

// Liked reports whether the caller likes the post
func (pc *PostController) Liked(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid post ID")
		return
	}
	liked, err := pc.postService.HasLiked(userID, id)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

// Unlike removes the caller's like
func (pc *PostController) Unlike(w http.ResponseWriter, r *http.Request) {
	pc.toggleLike(w, r, pc.postService.Unlike)
}

func (pc *PostController) toggleLike(w http.ResponseWriter, r *http.Request, fn func(actorID, postID int) (*models.Post, error)) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid post ID")
		return
	}
	post, err := fn(userID, id)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, post)
}
