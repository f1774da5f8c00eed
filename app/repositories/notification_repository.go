package repositories

import (
	"rightsnet/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerNotificationRepository keys notifications under their recipient.
type BadgerNotificationRepository struct {
	db *badger.DB
}

// NewBadgerNotificationRepository creates a new BadgerNotificationRepository
func NewBadgerNotificationRepository(db *badger.DB) *BadgerNotificationRepository {
	return &BadgerNotificationRepository{db: db}
}

// Create creates a new notification
func (r *BadgerNotificationRepository) Create(n *models.Notification) error {
	return r.db.Update(func(txn *badger.Txn) error {
		id, err := getNextID(txn, NotificationSeqKey)
		if err != nil {
			return err
		}
		n.ID = id
		if err := setEntity(txn, idKey(NotificationKeyPrefix, n.UserID, id), n); err != nil {
			return err
		}
		return setIntValue(txn, idKey(NotificationIndexPrefix, id), n.UserID)
	})
}

// GetByID retrieves a notification by ID
func (r *BadgerNotificationRepository) GetByID(id int) (*models.Notification, error) {
	var n models.Notification
	err := r.db.View(func(txn *badger.Txn) error {
		userID, err := getIntValue(txn, idKey(NotificationIndexPrefix, id))
		if err != nil {
			return err
		}
		return getEntity(txn, idKey(NotificationKeyPrefix, userID, id), &n)
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByUser returns a user's notifications, newest first
func (r *BadgerNotificationRepository) ListByUser(userID int, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	var out []*models.Notification
	p := &page{limit: limit, offset: offset}
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, scopePrefix(NotificationKeyPrefix, userID), true, func(_, val []byte) (bool, error) {
			var n models.Notification
			if err := unmarshalEntity(val, &n); err != nil {
				return false, err
			}
			if unreadOnly && n.Read {
				return true, nil
			}
			keep, more := p.take()
			if keep {
				out = append(out, &n)
			}
			return more, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update updates an existing notification
func (r *BadgerNotificationRepository) Update(n *models.Notification) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := idKey(NotificationKeyPrefix, n.UserID, n.ID)
		if err := requireKey(txn, key); err != nil {
			return err
		}
		return setEntity(txn, key, n)
	})
}

// MarkAllRead flags every unread notification of a user and returns how many
// changed.
func (r *BadgerNotificationRepository) MarkAllRead(userID int) (int, error) {
	unread, err := r.ListByUser(userID, true, 0, 0)
	if err != nil {
		return 0, err
	}
	if len(unread) == 0 {
		return 0, nil
	}
	wb := r.db.NewWriteBatch()
	for _, n := range unread {
		n.Read = true
		data, err := marshalEntity(n)
		if err != nil {
			wb.Cancel()
			return 0, err
		}
		if err := wb.Set(idKey(NotificationKeyPrefix, n.UserID, n.ID), data); err != nil {
			wb.Cancel()
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(unread), nil
}

// CountUnread counts a user's unread notifications.
func (r *BadgerNotificationRepository) CountUnread(userID int) (int, error) {
	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, scopePrefix(NotificationKeyPrefix, userID), false, func(_, val []byte) (bool, error) {
			var n models.Notification
			if err := unmarshalEntity(val, &n); err != nil {
				return false, err
			}
			if !n.Read {
				count++
			}
			return true, nil
		})
	})
	return count, err
}
