package services

import (
	"fmt"

	"rightsnet/app/models"
	"rightsnet/app/realtime"
	"rightsnet/app/repositories"
)

// NotificationService manages user inboxes
type NotificationService struct {
	repo   repositories.NotificationRepository
	events events
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repo repositories.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo, events: newEvents(nil, nil)}
}

// WithPublisher attaches the realtime publisher.
func (s *NotificationService) WithPublisher(pub Publisher) *NotificationService {
	s.events = newEvents(pub, nil)
	return s
}

// Notify stores a notification and pushes it to the recipient.
func (s *NotificationService) Notify(userID int, kind models.NotificationKind, actorID, subjectID int, message string) error {
	n := &models.Notification{
		UserID:    userID,
		Kind:      kind,
		ActorID:   actorID,
		SubjectID: subjectID,
		Message:   message,
	}
	n.BeforeCreate()
	if err := n.Validate(); err != nil {
		return invalid(err)
	}
	if err := s.repo.Create(n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	s.events.publish(realtime.UserTopic(userID), realtime.TableNotifications, realtime.Insert, n, nil)
	return nil
}

// List returns the actor's notifications, newest first
func (s *NotificationService) List(actorID int, unreadOnly bool, page, perPage int) ([]*models.Notification, error) {
	limit, offset := pageBounds(page, perPage)
	out, err := s.repo.ListByUser(actorID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*models.Notification{}
	}
	return out, nil
}

// MarkRead flags one of the actor's notifications as read.
func (s *NotificationService) MarkRead(actorID, id int) (*models.Notification, error) {
	n, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if n.UserID != actorID {
		return nil, fmt.Errorf("notification %d: %w", id, ErrForbidden)
	}
	if n.Read {
		return n, nil
	}
	n.Read = true
	if err := s.repo.Update(n); err != nil {
		return nil, err
	}
	s.events.publish(realtime.UserTopic(actorID), realtime.TableNotifications, realtime.Update, n, nil)
	return n, nil
}

// ReadAll is the record of the UPDATE published when a user clears their
// inbox.
type ReadAll struct {
	UserID  int `json:"user_id"`
	Updated int `json:"updated"`
}

// MarkAllRead flags all of the actor's notifications and returns how many
// changed.
func (s *NotificationService) MarkAllRead(actorID int) (int, error) {
	n, err := s.repo.MarkAllRead(actorID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.events.publish(realtime.UserTopic(actorID), realtime.TableNotifications, realtime.Update,
			ReadAll{UserID: actorID, Updated: n}, nil)
	}
	return n, nil
}

// UnreadCount counts the actor's unread notifications.
func (s *NotificationService) UnreadCount(actorID int) (int, error) {
	return s.repo.CountUnread(actorID)
}
