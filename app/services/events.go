package services

import (
	"log/slog"

	"rightsnet/app/models"
	"rightsnet/app/realtime"
)

// Publisher receives row changes after they are committed.
type Publisher interface {
	Publish(change realtime.Change)
}

// Notifier delivers an inbox notification to a user.
type Notifier interface {
	Notify(userID int, kind models.NotificationKind, actorID, subjectID int, message string) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(realtime.Change) {}

type nopNotifier struct{}

func (nopNotifier) Notify(int, models.NotificationKind, int, int, string) error { return nil }

// events bundles the side channels a service writes to after its primary
// write succeeds.
type events struct {
	pub    Publisher
	notify Notifier
}

func newEvents(pub Publisher, notifier Notifier) events {
	if pub == nil {
		pub = nopPublisher{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return events{pub: pub, notify: notifier}
}

func (e events) publish(topic, table string, typ realtime.ChangeType, record, old any) {
	e.pub.Publish(realtime.NewChange(topic, table, typ, record, old))
}

// notifyUser sends a notification unless the user acted on their own
// content. Failures are logged: the action that triggered them already
// succeeded.
func (e events) notifyUser(userID int, kind models.NotificationKind, actorID, subjectID int, message string) {
	if userID == actorID || userID <= 0 {
		return
	}
	if err := e.notify.Notify(userID, kind, actorID, subjectID, message); err != nil {
		slog.Warn("notification failed", "user_id", userID, "kind", kind, "error", err)
	}
}
