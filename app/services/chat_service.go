package services

import (
	"errors"
	"fmt"
	"time"

	"rightsnet/app/models"
	"rightsnet/app/realtime"
	"rightsnet/app/repositories"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
	// nonceWindow is how many recent messages are checked for a resent
	// client nonce.
	nonceWindow = 50
)

// ChatService handles conversations and messages, and authorizes realtime
// subscriptions.
type ChatService struct {
	convRepo    repositories.ConversationRepository
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	access      *Access
	events      events
	now         func() time.Time
}

// NewChatService creates a new ChatService
func NewChatService(convRepo repositories.ConversationRepository, messageRepo repositories.MessageRepository,
	userRepo repositories.UserRepository, access *Access) *ChatService {
	return &ChatService{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		access:      access,
		events:      newEvents(nil, nil),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithEvents attaches the realtime publisher and notifier.
func (s *ChatService) WithEvents(pub Publisher, notifier Notifier) *ChatService {
	s.events = newEvents(pub, notifier)
	return s
}

// StartDirect returns the direct conversation between actorID and otherID,
// creating it if needed. created reports whether a new one was made.
func (s *ChatService) StartDirect(actorID, otherID int) (conv *models.Conversation, created bool, err error) {
	if otherID == actorID {
		return nil, false, invalidf("user_id: cannot start a conversation with yourself")
	}
	if otherID <= 0 {
		return nil, false, invalidf("user_id: is required")
	}
	if _, err := s.userRepo.GetByID(otherID); err != nil {
		return nil, false, fmt.Errorf("user %d: %w", otherID, err)
	}

	if existing, err := s.convRepo.FindDirect(actorID, otherID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, err
	}

	conv = &models.Conversation{Kind: models.ConversationDirect, MemberIDs: []int{actorID, otherID}}
	conv.BeforeCreate()
	if err := conv.Validate(); err != nil {
		return nil, false, invalid(err)
	}
	if err := s.convRepo.Create(conv); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			// the other side opened it first
			existing, ferr := s.convRepo.FindDirect(actorID, otherID)
			return existing, false, ferr
		}
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}
	s.events.publish(realtime.UserTopic(otherID), realtime.TableConversations, realtime.Insert, conv, nil)
	return conv, true, nil
}

// ListConversations returns the actor's conversations, most recent first.
func (s *ChatService) ListConversations(actorID int) ([]*models.Conversation, error) {
	convs, err := s.convRepo.ListForUser(actorID)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []*models.Conversation{}
	}
	return convs, nil
}

// GetConversation returns a conversation the actor belongs to.
func (s *ChatService) GetConversation(actorID, id int) (*models.Conversation, error) {
	conv, err := s.convRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !conv.HasMember(actorID) {
		return nil, fmt.Errorf("not a member of conversation %d: %w", id, ErrForbidden)
	}
	return conv, nil
}

// ListMessages returns a page of history in ascending order, ending just
// before beforeID (or at the newest message when beforeID is 0).
func (s *ChatService) ListMessages(actorID, convID, beforeID, limit int) ([]*models.Message, error) {
	if _, err := s.GetConversation(actorID, convID); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}
	msgs, err := s.messageRepo.ListByConversation(convID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	return msgs, nil
}

// SendMessage stores a message and fans it out. A message resent with a
// client nonce already stored for the same sender returns the stored row
// with created false.
func (s *ChatService) SendMessage(actorID, convID int, content, nonce string) (msg *models.Message, created bool, err error) {
	conv, err := s.GetConversation(actorID, convID)
	if err != nil {
		return nil, false, err
	}

	if nonce != "" {
		recent, err := s.messageRepo.ListByConversation(convID, 0, nonceWindow)
		if err != nil {
			return nil, false, fmt.Errorf("failed to check resend: %w", err)
		}
		for _, m := range recent {
			if m.SenderID == actorID && m.ClientNonce == nonce {
				return m, false, nil
			}
		}
	}

	msg = &models.Message{
		ConversationID: convID,
		SenderID:       actorID,
		Content:        content,
		ClientNonce:    nonce,
		CreatedAt:      s.now(),
	}
	if err := msg.Validate(); err != nil {
		return nil, false, invalid(err)
	}
	if err := s.messageRepo.Create(msg); err != nil {
		return nil, false, fmt.Errorf("failed to store message: %w", err)
	}

	if _, err := s.convRepo.Touch(convID, msg.CreatedAt); err != nil {
		return nil, false, fmt.Errorf("failed to touch conversation: %w", err)
	}

	s.events.publish(realtime.ConversationTopic(convID), realtime.TableMessages, realtime.Insert, msg, nil)
	if conv.Kind == models.ConversationDirect {
		for _, id := range conv.MemberIDs {
			s.events.notifyUser(id, models.NotifyMessage, actorID, convID, preview(content))
		}
	}
	return msg, true, nil
}

func preview(content string) string {
	r := []rune(content)
	if len(r) <= 80 {
		return content
	}
	return string(r[:77]) + "..."
}

func (s *ChatService) ownMessage(actorID, convID, id int) (*models.Message, error) {
	if _, err := s.GetConversation(actorID, convID); err != nil {
		return nil, err
	}
	msg, err := s.messageRepo.GetByID(convID, id)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != actorID {
		return nil, fmt.Errorf("only the sender can change message %d: %w", id, ErrForbidden)
	}
	return msg, nil
}

// EditMessage replaces the content of the actor's own message.
func (s *ChatService) EditMessage(actorID, convID, id int, content string) (*models.Message, error) {
	existing, err := s.ownMessage(actorID, convID, id)
	if err != nil {
		return nil, err
	}
	msg := *existing
	msg.Edit(content, s.now())
	if err := msg.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.messageRepo.Update(&msg); err != nil {
		return nil, fmt.Errorf("failed to edit message: %w", err)
	}
	s.events.publish(realtime.ConversationTopic(convID), realtime.TableMessages, realtime.Update, &msg, existing)
	return &msg, nil
}

// DeleteMessage removes the actor's own message.
func (s *ChatService) DeleteMessage(actorID, convID, id int) error {
	msg, err := s.ownMessage(actorID, convID, id)
	if err != nil {
		return err
	}
	if err := s.messageRepo.Delete(convID, id); err != nil {
		return err
	}
	s.events.publish(realtime.ConversationTopic(convID), realtime.TableMessages, realtime.Delete, nil, msg)
	return nil
}

// Typing announces that the actor is composing a message. Nothing is stored.
func (s *ChatService) Typing(actorID, convID int) error {
	if _, err := s.GetConversation(actorID, convID); err != nil {
		return err
	}
	s.events.publish(realtime.ConversationTopic(convID), realtime.TableTyping, realtime.Typing,
		realtime.TypingEvent{ConversationID: convID, UserID: actorID, At: s.now()}, nil)
	return nil
}

// CanSubscribe reports whether userID may listen on topic.
func (s *ChatService) CanSubscribe(userID int, topic string) bool {
	kind, id, err := realtime.ParseTopic(topic)
	if err != nil {
		return false
	}
	switch kind {
	case "conversation":
		_, err := s.GetConversation(userID, id)
		return err == nil
	case "user":
		return id == userID
	case "community":
		return s.access.CanView(id, userID) == nil
	case realtime.FeedTopic, realtime.PresenceTopic:
		return true
	}
	return false
}
