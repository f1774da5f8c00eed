package repositories

import (
	"strings"

	"rightsnet/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCommunityRepository implements CommunityRepository using BadgerDB
type BadgerCommunityRepository struct {
	db *badger.DB
}

// NewBadgerCommunityRepository creates a new BadgerCommunityRepository
func NewBadgerCommunityRepository(db *badger.DB) *BadgerCommunityRepository {
	return &BadgerCommunityRepository{db: db}
}

// Create stores a community, rejecting a slug that is already taken.
func (r *BadgerCommunityRepository) Create(community *models.Community) error {
	return r.db.Update(func(txn *badger.Txn) error {
		slugKey := []byte(CommunitySlugIndexPrefix + community.Slug)
		if err := requireKey(txn, slugKey); err == nil {
			return ErrConflict
		} else if err != ErrNotFound {
			return err
		}

		id, err := getNextID(txn, CommunitySeqKey)
		if err != nil {
			return err
		}
		community.ID = id

		if err := setEntity(txn, idKey(CommunityKeyPrefix, id), community); err != nil {
			return err
		}
		return setIntValue(txn, slugKey, id)
	})
}

// GetByID retrieves a community by ID
func (r *BadgerCommunityRepository) GetByID(id int) (*models.Community, error) {
	var c models.Community
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, idKey(CommunityKeyPrefix, id), &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetBySlug retrieves a community through the slug index.
func (r *BadgerCommunityRepository) GetBySlug(slug string) (*models.Community, error) {
	var c models.Community
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := getIntValue(txn, []byte(CommunitySlugIndexPrefix+slug))
		if err != nil {
			return err
		}
		return getEntity(txn, idKey(CommunityKeyPrefix, id), &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (f CommunityFilter) matches(c *models.Community) bool {
	if f.CountryCode != "" && c.CountryCode != f.CountryCode {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Cause), q) ||
			strings.Contains(strings.ToLower(c.Description), q)
	}
	return true
}

// List retrieves communities matching filter, newest first
func (r *BadgerCommunityRepository) List(filter CommunityFilter, limit, offset int) ([]*models.Community, error) {
	var out []*models.Community
	p := &page{limit: limit, offset: offset}
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(CommunityKeyPrefix), true, func(_, val []byte) (bool, error) {
			var c models.Community
			if err := unmarshalEntity(val, &c); err != nil {
				return false, err
			}
			if !filter.matches(&c) {
				return true, nil
			}
			keep, more := p.take()
			if keep {
				out = append(out, &c)
			}
			return more, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update updates an existing community. The slug, owner and creation time
// are fixed at creation and the member count only moves through
// AdjustMemberCount.
func (r *BadgerCommunityRepository) Update(community *models.Community) error {
	return updateWithRetry(r.db, func(txn *badger.Txn) error {
		key := idKey(CommunityKeyPrefix, community.ID)
		var existing models.Community
		if err := getEntity(txn, key, &existing); err != nil {
			return err
		}
		community.Slug = existing.Slug
		community.OwnerID = existing.OwnerID
		community.MemberCount = existing.MemberCount
		community.CreatedAt = existing.CreatedAt
		if community.ConversationID == 0 {
			community.ConversationID = existing.ConversationID
		}
		return setEntity(txn, key, community)
	})
}

// AdjustMemberCount atomically shifts the member counter.
func (r *BadgerCommunityRepository) AdjustMemberCount(id, delta int) (*models.Community, error) {
	var c models.Community
	err := updateWithRetry(r.db, func(txn *badger.Txn) error {
		key := idKey(CommunityKeyPrefix, id)
		c = models.Community{}
		if err := getEntity(txn, key, &c); err != nil {
			return err
		}
		c.MemberCount = max(0, c.MemberCount+delta)
		return setEntity(txn, key, &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes a community and its slug index entry.
func (r *BadgerCommunityRepository) Delete(id int) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := idKey(CommunityKeyPrefix, id)
		var c models.Community
		if err := getEntity(txn, key, &c); err != nil {
			return err
		}
		if err := txn.Delete([]byte(CommunitySlugIndexPrefix + c.Slug)); err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// CountByCountry tallies communities per country code.
func (r *BadgerCommunityRepository) CountByCountry() (map[string]int, error) {
	counts := make(map[string]int)
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(CommunityKeyPrefix), false, func(_, val []byte) (bool, error) {
			var c models.Community
			if err := unmarshalEntity(val, &c); err != nil {
				return false, err
			}
			if c.CountryCode != "" {
				counts[c.CountryCode]++
			}
			return true, nil
		})
	})
	return counts, err
}
