package repositories

import (
	"rightsnet/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerLikeRepository stores one key per (post, user) pair.
type BadgerLikeRepository struct {
	db *badger.DB
}

// NewBadgerLikeRepository creates a new BadgerLikeRepository
func NewBadgerLikeRepository(db *badger.DB) *BadgerLikeRepository {
	return &BadgerLikeRepository{db: db}
}

// Add records a like, returning ErrConflict if the user already liked the post.
func (r *BadgerLikeRepository) Add(like *models.Like) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := idKey(LikeKeyPrefix, like.PostID, like.UserID)
		if err := requireKey(txn, key); err == nil {
			return ErrConflict
		} else if err != ErrNotFound {
			return err
		}
		return setEntity(txn, key, like)
	})
}

// Remove deletes a like, returning ErrNotFound if there was none.
func (r *BadgerLikeRepository) Remove(postID, userID int) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := idKey(LikeKeyPrefix, postID, userID)
		if err := requireKey(txn, key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// Exists reports whether userID liked postID.
func (r *BadgerLikeRepository) Exists(postID, userID int) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		return requireKey(txn, idKey(LikeKeyPrefix, postID, userID))
	})
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

// DeleteByPost removes all likes on a post.
func (r *BadgerLikeRepository) DeleteByPost(postID int) error {
	_, err := deletePrefix(r.db, scopePrefix(LikeKeyPrefix, postID))
	return err
}
