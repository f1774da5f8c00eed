package repositories

import (
	"fmt"

	"rightsnet/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerMembershipRepository keys memberships by community and keeps a
// per-user index for the reverse lookup.
type BadgerMembershipRepository struct {
	db *badger.DB
}

// NewBadgerMembershipRepository creates a new BadgerMembershipRepository
func NewBadgerMembershipRepository(db *badger.DB) *BadgerMembershipRepository {
	return &BadgerMembershipRepository{db: db}
}

// Add stores a membership, returning ErrConflict if one already exists.
func (r *BadgerMembershipRepository) Add(m *models.Membership) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := idKey(MembershipKeyPrefix, m.CommunityID, m.UserID)
		if err := requireKey(txn, key); err == nil {
			return ErrConflict
		} else if err != ErrNotFound {
			return err
		}
		if err := setEntity(txn, key, m); err != nil {
			return err
		}
		return setIntValue(txn, idKey(MembershipUserIndexPrefix, m.UserID, m.CommunityID), m.CommunityID)
	})
}

// Get retrieves a single membership
func (r *BadgerMembershipRepository) Get(communityID, userID int) (*models.Membership, error) {
	var m models.Membership
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, idKey(MembershipKeyPrefix, communityID, userID), &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Update updates an existing membership
func (r *BadgerMembershipRepository) Update(m *models.Membership) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := idKey(MembershipKeyPrefix, m.CommunityID, m.UserID)
		if err := requireKey(txn, key); err != nil {
			return err
		}
		return setEntity(txn, key, m)
	})
}

// Remove deletes a membership and its user index entry.
func (r *BadgerMembershipRepository) Remove(communityID, userID int) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := idKey(MembershipKeyPrefix, communityID, userID)
		if err := requireKey(txn, key); err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(idKey(MembershipUserIndexPrefix, userID, communityID))
	})
}

// ListByCommunity returns memberships of a community, filtered by status
// unless status is empty.
func (r *BadgerMembershipRepository) ListByCommunity(communityID int, status models.MemberStatus) ([]*models.Membership, error) {
	var out []*models.Membership
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, scopePrefix(MembershipKeyPrefix, communityID), false, func(_, val []byte) (bool, error) {
			var m models.Membership
			if err := unmarshalEntity(val, &m); err != nil {
				return false, err
			}
			if status == "" || m.Status == status {
				out = append(out, &m)
			}
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUser returns every membership the user holds.
func (r *BadgerMembershipRepository) ListByUser(userID int) ([]*models.Membership, error) {
	var out []*models.Membership
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, scopePrefix(MembershipUserIndexPrefix, userID), false, func(_, val []byte) (bool, error) {
			var communityID int
			if _, err := fmt.Sscanf(string(val), "%d", &communityID); err != nil {
				return false, err
			}
			var m models.Membership
			if err := getEntity(txn, idKey(MembershipKeyPrefix, communityID, userID), &m); err != nil {
				if err == ErrNotFound {
					return true, nil
				}
				return false, err
			}
			out = append(out, &m)
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByCommunity removes every membership of a community.
func (r *BadgerMembershipRepository) DeleteByCommunity(communityID int) error {
	members, err := r.ListByCommunity(communityID, "")
	if err != nil {
		return err
	}
	for _, m := range members {
		if err := r.Remove(m.CommunityID, m.UserID); err != nil && err != ErrNotFound {
			return err
		}
	}
	return nil
}
