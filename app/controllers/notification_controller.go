package controllers

import (
	"net/http"

	"rightsnet/app/services"
)

// NotificationController serves the caller's inbox
type NotificationController struct {
	notificationService *services.NotificationService
}

// NewNotificationController creates a new NotificationController
func NewNotificationController(notificationService *services.NotificationService) *NotificationController {
	return &NotificationController{notificationService: notificationService}
}

// Index lists notifications; ?unread=true limits to unread ones
func (nc *NotificationController) Index(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	page, perPage := pagination(r)
	unreadOnly := r.URL.Query().Get("unread") == "true"
	list, err := nc.notificationService.List(userID, unreadOnly, page, perPage)
	if err != nil {
		sendError(w, r, err)
		return
	}
	unread, err := nc.notificationService.UnreadCount(userID)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": list,
		"unread":        unread,
		"page":          page,
		"per_page":      perPage,
	})
}

// MarkRead flags one notification as read
func (nc *NotificationController) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}
	n, err := nc.notificationService.MarkRead(userID, id)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, n)
}

// MarkAllRead flags every notification as read
func (nc *NotificationController) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	n, err := nc.notificationService.MarkAllRead(userID)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]int{"updated": n})
}
