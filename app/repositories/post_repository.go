package repositories

import (
	"rightsnet/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPostRepository implements PostRepository using BadgerDB
type BadgerPostRepository struct {
	db *badger.DB
}

// NewBadgerPostRepository creates a new BadgerPostRepository
func NewBadgerPostRepository(db *badger.DB) *BadgerPostRepository {
	return &BadgerPostRepository{db: db}
}

// storable drops the comments, which live under their own keys.
func storable(post *models.Post) *models.Post {
	p := *post
	p.Comments = nil
	return &p
}

// Create creates a new post
func (r *BadgerPostRepository) Create(post *models.Post) error {
	return r.db.Update(func(txn *badger.Txn) error {
		// Get next ID
		id, err := getNextID(txn, PostSeqKey)
		if err != nil {
			return err
		}
		post.ID = id

		// Save post
		return setEntity(txn, idKey(PostKeyPrefix, post.ID), storable(post))
	})
}

// GetByID retrieves a post by ID
func (r *BadgerPostRepository) GetByID(id int) (*models.Post, error) {
	var post models.Post

	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, idKey(PostKeyPrefix, id), &post)
	})

	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (f PostFilter) matches(p *models.Post) bool {
	if f.PublicOnly && p.CommunityID != 0 {
		return false
	}
	if f.CommunityID != 0 && p.CommunityID != f.CommunityID {
		return false
	}
	if f.CountryCode != "" && p.CountryCode != f.CountryCode {
		return false
	}
	if f.AuthorID != 0 && p.AuthorID != f.AuthorID {
		return false
	}
	if f.Tag != "" && !p.HasTag(f.Tag) {
		return false
	}
	return true
}

// List retrieves a paginated list of posts matching filter, newest first
func (r *BadgerPostRepository) List(filter PostFilter, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	p := &page{limit: limit, offset: offset}
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(PostKeyPrefix), true, func(_, val []byte) (bool, error) {
			var post models.Post
			if err := unmarshalEntity(val, &post); err != nil {
				return false, err
			}
			if !filter.matches(&post) {
				return true, nil
			}
			keep, more := p.take()
			if keep {
				posts = append(posts, &post)
			}
			return more, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Update saves the editable fields of a post. The counters, author,
// community and creation time always come from the stored row.
func (r *BadgerPostRepository) Update(post *models.Post) error {
	return updateWithRetry(r.db, func(txn *badger.Txn) error {
		key := idKey(PostKeyPrefix, post.ID)

		var existing models.Post
		if err := getEntity(txn, key, &existing); err != nil {
			return err
		}
		post.AuthorID = existing.AuthorID
		post.CommunityID = existing.CommunityID
		post.LikeCount = existing.LikeCount
		post.CommentCount = existing.CommentCount
		post.CreatedAt = existing.CreatedAt

		return setEntity(txn, key, storable(post))
	})
}

// ReleaseCommunity moves every post of communityID to the public feed and
// returns how many moved.
func (r *BadgerPostRepository) ReleaseCommunity(communityID int) (int, error) {
	var ids []int
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(PostKeyPrefix), false, func(_, val []byte) (bool, error) {
			var post models.Post
			if err := unmarshalEntity(val, &post); err != nil {
				return false, err
			}
			if post.CommunityID == communityID {
				ids = append(ids, post.ID)
			}
			return true, nil
		})
	})
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, id := range ids {
		err := updateWithRetry(r.db, func(txn *badger.Txn) error {
			key := idKey(PostKeyPrefix, id)
			var post models.Post
			if err := getEntity(txn, key, &post); err != nil {
				return err
			}
			if post.CommunityID != communityID {
				return ErrNotFound
			}
			post.CommunityID = 0
			return setEntity(txn, key, &post)
		})
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// AdjustCounters atomically shifts the like and comment counters, never
// letting either drop below zero.
func (r *BadgerPostRepository) AdjustCounters(id, likeDelta, commentDelta int) (*models.Post, error) {
	var post models.Post
	err := updateWithRetry(r.db, func(txn *badger.Txn) error {
		key := idKey(PostKeyPrefix, id)
		post = models.Post{}
		if err := getEntity(txn, key, &post); err != nil {
			return err
		}
		post.LikeCount = max(0, post.LikeCount+likeDelta)
		post.CommentCount = max(0, post.CommentCount+commentDelta)
		return setEntity(txn, key, &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Delete deletes a post by ID
func (r *BadgerPostRepository) Delete(id int) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := idKey(PostKeyPrefix, id)

		// Verify post exists
		if err := requireKey(txn, key); err != nil {
			return err
		}

		return txn.Delete(key)
	})
}

// CountByCountry tallies posts per country code.
func (r *BadgerPostRepository) CountByCountry() (map[string]int, error) {
	counts := make(map[string]int)
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(PostKeyPrefix), false, func(_, val []byte) (bool, error) {
			var post models.Post
			if err := unmarshalEntity(val, &post); err != nil {
				return false, err
			}
			if post.CountryCode != "" {
				counts[post.CountryCode]++
			}
			return true, nil
		})
	})
	return counts, err
}
