package controllers

import (
	"net/http"

	"rightsnet/app/services"
)

// CommentController handles HTTP requests for comments
type CommentController struct {
	commentService *services.CommentService
}

// NewCommentController creates a new CommentController
func NewCommentController(commentService *services.CommentService) *CommentController {
	return &CommentController{commentService: commentService}
}

type commentInput struct {
	Content string `json:"content"`
}

// Index lists the comments of a post
func (cc *CommentController) Index(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postId")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid post ID")
		return
	}
	comments, err := cc.commentService.ListPostComments(currentUser(r), postID)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}

// Create adds a comment to a post
func (cc *CommentController) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	postID, err := pathID(r, "postId")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid post ID")
		return
	}
	var in commentInput
	if err := decodeJSON(r, &in); err != nil {
		sendMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	comment, err := cc.commentService.CreateComment(userID, postID, in.Content)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, comment)
}

// Show returns one comment
func (cc *CommentController) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid comment ID")
		return
	}
	comment, err := cc.commentService.GetComment(currentUser(r), id)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, comment)
}

// Edit changes a comment's content
func (cc *CommentController) Edit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid comment ID")
		return
	}
	var in commentInput
	if err := decodeJSON(r, &in); err != nil {
		sendMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	comment, err := cc.commentService.UpdateComment(userID, id, in.Content)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, comment)
}

// Delete removes a comment
func (cc *CommentController) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid comment ID")
		return
	}
	if err := cc.commentService.DeleteComment(userID, id); err != nil {
		sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
