package repositories

import (
	"sort"
	"time"

	"rightsnet/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerConversationRepository implements ConversationRepository using BadgerDB
type BadgerConversationRepository struct {
	db *badger.DB
}

// NewBadgerConversationRepository creates a new BadgerConversationRepository
func NewBadgerConversationRepository(db *badger.DB) *BadgerConversationRepository {
	return &BadgerConversationRepository{db: db}
}

func directKey(a, b int) []byte {
	if a > b {
		a, b = b, a
	}
	return idKey(DirectIndexPrefix, a, b)
}

// Create stores a conversation. Only one direct conversation may exist per
// pair of users.
func (r *BadgerConversationRepository) Create(conv *models.Conversation) error {
	return r.db.Update(func(txn *badger.Txn) error {
		var dkey []byte
		if conv.Kind == models.ConversationDirect && len(conv.MemberIDs) == 2 {
			dkey = directKey(conv.MemberIDs[0], conv.MemberIDs[1])
			if err := requireKey(txn, dkey); err == nil {
				return ErrConflict
			} else if err != ErrNotFound {
				return err
			}
		}

		id, err := getNextID(txn, ConversationSeqKey)
		if err != nil {
			return err
		}
		conv.ID = id

		if err := setEntity(txn, idKey(ConversationKeyPrefix, id), conv); err != nil {
			return err
		}
		if dkey != nil {
			return setIntValue(txn, dkey, id)
		}
		return nil
	})
}

// GetByID retrieves a conversation by ID
func (r *BadgerConversationRepository) GetByID(id int) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, idKey(ConversationKeyPrefix, id), &conv)
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindDirect returns the direct conversation between two users.
func (r *BadgerConversationRepository) FindDirect(userA, userB int) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := getIntValue(txn, directKey(userA, userB))
		if err != nil {
			return err
		}
		return getEntity(txn, idKey(ConversationKeyPrefix, id), &conv)
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListForUser returns the user's conversations, most recently active first.
func (r *BadgerConversationRepository) ListForUser(userID int) ([]*models.Conversation, error) {
	var convs []*models.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(ConversationKeyPrefix), false, func(_, val []byte) (bool, error) {
			var conv models.Conversation
			if err := unmarshalEntity(val, &conv); err != nil {
				return false, err
			}
			if conv.HasMember(userID) {
				convs = append(convs, &conv)
			}
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(convs, func(i, j int) bool {
		if convs[i].LastMessageAt.Equal(convs[j].LastMessageAt) {
			return convs[i].ID > convs[j].ID
		}
		return convs[i].LastMessageAt.After(convs[j].LastMessageAt)
	})
	return convs, nil
}

// Touch advances last_message_at to at. An older at leaves the row as is.
func (r *BadgerConversationRepository) Touch(id int, at time.Time) (*models.Conversation, error) {
	return r.modify(id, func(conv *models.Conversation) bool {
		if !at.After(conv.LastMessageAt) {
			return false
		}
		conv.LastMessageAt = at
		return true
	})
}

// ChangeMembers applies change to the stored member list inside one
// transaction. change reports whether it modified the conversation.
func (r *BadgerConversationRepository) ChangeMembers(id int, change func(*models.Conversation) bool) (*models.Conversation, error) {
	return r.modify(id, change)
}

func (r *BadgerConversationRepository) modify(id int, change func(*models.Conversation) bool) (*models.Conversation, error) {
	var conv models.Conversation
	err := updateWithRetry(r.db, func(txn *badger.Txn) error {
		key := idKey(ConversationKeyPrefix, id)
		conv = models.Conversation{}
		if err := getEntity(txn, key, &conv); err != nil {
			return err
		}
		if !change(&conv) {
			return nil
		}
		return setEntity(txn, key, &conv)
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Delete removes a conversation and its direct index entry.
func (r *BadgerConversationRepository) Delete(id int) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := idKey(ConversationKeyPrefix, id)
		var conv models.Conversation
		if err := getEntity(txn, key, &conv); err != nil {
			return err
		}
		if conv.Kind == models.ConversationDirect && len(conv.MemberIDs) == 2 {
			if err := txn.Delete(directKey(conv.MemberIDs[0], conv.MemberIDs[1])); err != nil {
				return err
			}
		}
		return txn.Delete(key)
	})
}
