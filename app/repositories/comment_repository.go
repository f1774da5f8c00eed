package repositories

import (
	"rightsnet/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCommentRepository implements CommentRepository using BadgerDB.
// Comments are keyed under their post so a post's thread is one prefix scan;
// an id index points back to the owning post.
type BadgerCommentRepository struct {
	db *badger.DB
}

// NewBadgerCommentRepository creates a new BadgerCommentRepository
func NewBadgerCommentRepository(db *badger.DB) *BadgerCommentRepository {
	return &BadgerCommentRepository{db: db}
}

// Create creates a new comment
func (r *BadgerCommentRepository) Create(comment *models.Comment) error {
	return r.db.Update(func(txn *badger.Txn) error {
		id, err := getNextID(txn, CommentSeqKey)
		if err != nil {
			return err
		}
		comment.ID = id

		if err := setEntity(txn, idKey(CommentKeyPrefix, comment.PostID, id), comment); err != nil {
			return err
		}
		return setIntValue(txn, idKey(CommentIndexPrefix, id), comment.PostID)
	})
}

// keyFor resolves the primary key of a comment through the id index.
func (r *BadgerCommentRepository) keyFor(txn *badger.Txn, id int) ([]byte, error) {
	postID, err := getIntValue(txn, idKey(CommentIndexPrefix, id))
	if err != nil {
		return nil, err
	}
	return idKey(CommentKeyPrefix, postID, id), nil
}

// GetByID retrieves a comment by ID
func (r *BadgerCommentRepository) GetByID(id int) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.View(func(txn *badger.Txn) error {
		key, err := r.keyFor(txn, id)
		if err != nil {
			return err
		}
		return getEntity(txn, key, &comment)
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByPost retrieves all comments for a post, oldest first
func (r *BadgerCommentRepository) ListByPost(postID int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, scopePrefix(CommentKeyPrefix, postID), false, func(_, val []byte) (bool, error) {
			var comment models.Comment
			if err := unmarshalEntity(val, &comment); err != nil {
				return false, err
			}
			comments = append(comments, &comment)
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// Update updates an existing comment
func (r *BadgerCommentRepository) Update(comment *models.Comment) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key, err := r.keyFor(txn, comment.ID)
		if err != nil {
			return err
		}
		return setEntity(txn, key, comment)
	})
}

// Delete deletes a comment by ID
func (r *BadgerCommentRepository) Delete(id int) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key, err := r.keyFor(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(idKey(CommentIndexPrefix, id))
	})
}

// DeleteByPost removes every comment on a post.
func (r *BadgerCommentRepository) DeleteByPost(postID int) error {
	comments, err := r.ListByPost(postID)
	if err != nil {
		return err
	}
	for _, c := range comments {
		if err := r.Delete(c.ID); err != nil && err != ErrNotFound {
			return err
		}
	}
	return nil
}
