package controllers

import (
	"net/http"

	"rightsnet/app/services"
)

// ChatController handles conversations and messages
type ChatController struct {
	chatService *services.ChatService
}

// NewChatController creates a new ChatController
func NewChatController(chatService *services.ChatService) *ChatController {
	return &ChatController{chatService: chatService}
}

// Index lists the caller's conversations
func (cc *ChatController) Index(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	convs, err := cc.chatService.ListConversations(userID)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"conversations": convs})
}

// Start opens (or returns) the direct conversation with another user
func (cc *ChatController) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in struct {
		UserID int `json:"user_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		sendMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	conv, created, err := cc.chatService.StartDirect(userID, in.UserID)
	if err != nil {
		sendError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	sendJSON(w, status, conv)
}

// Show returns one conversation
func (cc *ChatController) Show(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}
	conv, err := cc.chatService.GetConversation(userID, id)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, conv)
}

// Messages returns a page of history, oldest first. ?before=ID pages back.
func (cc *ChatController) Messages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}
	msgs, err := cc.chatService.ListMessages(userID, id, queryInt(r, "before", 0), queryInt(r, "limit", 0))
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

type messageInput struct {
	Content     string `json:"content"`
	ClientNonce string `json:"client_nonce"`
}

// Send stores a message. A resend with a known client_nonce returns 200
// with the stored message instead of 201.
func (cc *ChatController) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}
	var in messageInput
	if err := decodeJSON(r, &in); err != nil {
		sendMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	msg, created, err := cc.chatService.SendMessage(userID, id, in.Content, in.ClientNonce)
	if err != nil {
		sendError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	sendJSON(w, status, msg)
}

// Edit changes one of the caller's messages
func (cc *ChatController) Edit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	convID, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}
	msgID, err := pathID(r, "messageId")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid message ID")
		return
	}
	var in messageInput
	if err := decodeJSON(r, &in); err != nil {
		sendMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := cc.chatService.EditMessage(userID, convID, msgID, in.Content)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, msg)
}

// Delete removes one of the caller's messages
func (cc *ChatController) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	convID, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}
	msgID, err := pathID(r, "messageId")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid message ID")
		return
	}
	if err := cc.chatService.DeleteMessage(userID, convID, msgID); err != nil {
		sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Typing announces that the caller is composing
func (cc *ChatController) Typing(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendMessage(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}
	if err := cc.chatService.Typing(userID, id); err != nil {
		sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
