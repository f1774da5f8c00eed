package repositories

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const (
	// Key prefixes for different entity types
	UserKeyPrefix         = "user:"
	PostKeyPrefix         = "post:"
	CommentKeyPrefix      = "comment:"
	LikeKeyPrefix         = "like:"
	ConversationKeyPrefix = "conversation:"
	MessageKeyPrefix      = "message:"
	CommunityKeyPrefix    = "community:"
	MembershipKeyPrefix   = "membership:"
	NotificationKeyPrefix = "notification:"
	ListingKeyPrefix      = "listing:"

	// Secondary index prefixes
	UserEmailIndexPrefix      = "idx:user_email:"
	UserNameIndexPrefix       = "idx:user_name:"
	CommentIndexPrefix        = "idx:comment:"
	DirectIndexPrefix         = "idx:direct:"
	CommunitySlugIndexPrefix  = "idx:community_slug:"
	MembershipUserIndexPrefix = "idx:membership_user:"
	NotificationIndexPrefix   = "idx:notification:"

	// Sequence keys for auto-incrementing IDs
	UserSeqKey         = "seq:user"
	PostSeqKey         = "seq:post"
	CommentSeqKey      = "seq:comment"
	ConversationSeqKey = "seq:conversation"
	MessageSeqKey      = "seq:message"
	CommunitySeqKey    = "seq:community"
	NotificationSeqKey = "seq:notification"
	ListingSeqKey      = "seq:listing"
)

// maxTxnRetries bounds how often a read-modify-write transaction is retried
// after Badger reports a write conflict.
const maxTxnRetries = 5

// getNextID gets the next available ID for a given sequence key
func getNextID(txn *badger.Txn, seqKey string) (int, error) {
	var id int
	item, err := txn.Get([]byte(seqKey))
	if err == badger.ErrKeyNotFound {
		id = 1
	} else if err != nil {
		return 0, err
	} else {
		err = item.Value(func(val []byte) error {
			id = int(val[0])<<24 | int(val[1])<<16 | int(val[2])<<8 | int(val[3])
			return nil
		})
		if err != nil {
			return 0, err
		}
		id++
	}

	// Store new ID
	idBytes := []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	if err := txn.Set([]byte(seqKey), idBytes); err != nil {
		return 0, err
	}

	return id, nil
}

// marshalEntity marshals an entity to JSON
func marshalEntity(entity interface{}) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, entity interface{}) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return nil
}

// idKey builds a key whose byte order matches numeric order of ids.
func idKey(prefix string, ids ...int) []byte {
	key := []byte(prefix)
	for i, id := range ids {
		if i > 0 {
			key = append(key, ':')
		}
		key = fmt.Appendf(key, "%010d", id)
	}
	return key
}

// scopePrefix is the key prefix covering every child of parentID.
func scopePrefix(prefix string, parentID int) []byte {
	return append(idKey(prefix, parentID), ':')
}

// getEntity loads the value at key into entity, mapping a missing key to ErrNotFound.
func getEntity(txn *badger.Txn, key []byte, entity interface{}) error {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return unmarshalEntity(val, entity)
	})
}

// setEntity stores entity at key.
func setEntity(txn *badger.Txn, key []byte, entity interface{}) error {
	data, err := marshalEntity(entity)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// requireKey returns ErrNotFound when key is absent.
func requireKey(txn *badger.Txn, key []byte) error {
	_, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	return err
}

// getIntValue reads an index entry holding a decimal id.
func getIntValue(txn *badger.Txn, key []byte) (int, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	var id int
	err = item.Value(func(val []byte) error {
		_, err := fmt.Sscanf(string(val), "%d", &id)
		return err
	})
	return id, err
}

func setIntValue(txn *badger.Txn, key []byte, id int) error {
	return txn.Set(key, []byte(fmt.Sprintf("%d", id)))
}

// scan walks the values under prefix. With reverse set the walk runs from the
// highest key down. fn returns false to stop early.
func scan(txn *badger.Txn, prefix []byte, reverse bool, fn func(key, val []byte) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = reverse
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	seek := prefix
	if reverse {
		seek = append(append([]byte{}, prefix...), 0xFF)
	}
	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var more bool
		err := item.Value(func(val []byte) error {
			var err error
			more, err = fn(item.KeyCopy(nil), val)
			return err
		})
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return nil
}

// scanKeys walks keys under prefix without fetching values.
func scanKeys(txn *badger.Txn, prefix []byte, fn func(key []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := fn(it.Item().KeyCopy(nil)); err != nil {
			return err
		}
	}
	return nil
}

// deletePrefix removes every key under prefix in batches so large scopes do
// not exceed Badger's transaction size.
func deletePrefix(db *badger.DB, prefix []byte) (int, error) {
	total := 0
	for {
		var keys [][]byte
		err := db.View(func(txn *badger.Txn) error {
			return scanKeys(txn, prefix, func(key []byte) error {
				if len(keys) < 1000 {
					keys = append(keys, key)
				}
				return nil
			})
		})
		if err != nil {
			return total, err
		}
		if len(keys) == 0 {
			return total, nil
		}
		wb := db.NewWriteBatch()
		for _, k := range keys {
			if err := wb.Delete(k); err != nil {
				wb.Cancel()
				return total, err
			}
		}
		if err := wb.Flush(); err != nil {
			return total, err
		}
		total += len(keys)
	}
}

// updateWithRetry runs fn in an update transaction, retrying on write conflicts.
func updateWithRetry(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// page applies limit/offset to a stream of matches. It returns false once the
// page is full.
type page struct {
	limit, offset, seen int
}

func (p *page) take() (keep bool, more bool) {
	defer func() { p.seen++ }()
	if p.seen < p.offset {
		return false, true
	}
	if p.limit > 0 && p.seen >= p.offset+p.limit {
		return false, false
	}
	return true, p.limit <= 0 || p.seen+1 < p.offset+p.limit
}
