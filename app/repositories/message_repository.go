package repositories

import (
	"rightsnet/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerMessageRepository keys messages under their conversation so a page of
// history is a single ordered range scan.
type BadgerMessageRepository struct {
	db *badger.DB
}

// NewBadgerMessageRepository creates a new BadgerMessageRepository
func NewBadgerMessageRepository(db *badger.DB) *BadgerMessageRepository {
	return &BadgerMessageRepository{db: db}
}

// Create creates a new message
func (r *BadgerMessageRepository) Create(msg *models.Message) error {
	return r.db.Update(func(txn *badger.Txn) error {
		id, err := getNextID(txn, MessageSeqKey)
		if err != nil {
			return err
		}
		msg.ID = id
		return setEntity(txn, idKey(MessageKeyPrefix, msg.ConversationID, id), msg)
	})
}

// GetByID retrieves a message in a conversation
func (r *BadgerMessageRepository) GetByID(conversationID, id int) (*models.Message, error) {
	var msg models.Message
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, idKey(MessageKeyPrefix, conversationID, id), &msg)
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListByConversation returns up to limit messages older than beforeID (or the
// newest ones when beforeID is 0), in ascending id order.
func (r *BadgerMessageRepository) ListByConversation(conversationID, beforeID, limit int) ([]*models.Message, error) {
	var msgs []*models.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := scopePrefix(MessageKeyPrefix, conversationID)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xFF)
		if beforeID > 0 {
			seek = idKey(MessageKeyPrefix, conversationID, beforeID)
		}
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var msg models.Message
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &msg)
			})
			if err != nil {
				return err
			}
			if beforeID > 0 && msg.ID >= beforeID {
				continue
			}
			msgs = append(msgs, &msg)
			if limit > 0 && len(msgs) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// collected newest first
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Update updates an existing message
func (r *BadgerMessageRepository) Update(msg *models.Message) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := idKey(MessageKeyPrefix, msg.ConversationID, msg.ID)
		if err := requireKey(txn, key); err != nil {
			return err
		}
		return setEntity(txn, key, msg)
	})
}

// Delete deletes a message
func (r *BadgerMessageRepository) Delete(conversationID, id int) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := idKey(MessageKeyPrefix, conversationID, id)
		if err := requireKey(txn, key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// DeleteByConversation removes a conversation's whole history.
func (r *BadgerMessageRepository) DeleteByConversation(conversationID int) error {
	_, err := deletePrefix(r.db, scopePrefix(MessageKeyPrefix, conversationID))
	return err
}
