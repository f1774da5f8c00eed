package repositories

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// StoreOptions selects where and how the Badger database is opened.
type StoreOptions struct {
	Path       string
	InMemory   bool
	SyncWrites bool
}

// Store owns the Badger database and every repository built on it.
type Store struct {
	db     *badger.DB
	mutex  sync.Mutex
	dbPath string

	Users         *BadgerUserRepository
	Posts         *BadgerPostRepository
	Comments      *BadgerCommentRepository
	Likes         *BadgerLikeRepository
	Conversations *BadgerConversationRepository
	Messages      *BadgerMessageRepository
	Communities   *BadgerCommunityRepository
	Memberships   *BadgerMembershipRepository
	Notifications *BadgerNotificationRepository
	Listings      *BadgerListingRepository
}

// OpenStore opens (or creates) the database described by opts.
func OpenStore(opts StoreOptions) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("storage path is required")
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.
		WithLogger(nil).
		WithSyncWrites(opts.SyncWrites).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", opts.Path, err)
	}
	return NewStore(db, opts.Path), nil
}

// NewTestStore opens an isolated in-memory store.
func NewTestStore() (*Store, error) {
	return OpenStore(StoreOptions{InMemory: true})
}

// NewStore wires repositories around an already opened database.
func NewStore(db *badger.DB, path string) *Store {
	return &Store{
		db:            db,
		dbPath:        path,
		Users:         NewBadgerUserRepository(db),
		Posts:         NewBadgerPostRepository(db),
		Comments:      NewBadgerCommentRepository(db),
		Likes:         NewBadgerLikeRepository(db),
		Conversations: NewBadgerConversationRepository(db),
		Messages:      NewBadgerMessageRepository(db),
		Communities:   NewBadgerCommunityRepository(db),
		Memberships:   NewBadgerMembershipRepository(db),
		Notifications: NewBadgerNotificationRepository(db),
		Listings:      NewBadgerListingRepository(db),
	}
}

// DB exposes the underlying database.
func (s *Store) DB() *badger.DB {
	return s.db
}

// Path is the on-disk location, empty for in-memory stores.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.db.Close()
}

// Clear drops every key in the database.
func (s *Store) Clear() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.db.DropAll()
}

// Backup streams a full backup to w and returns the version it covers.
func (s *Store) Backup(w io.Writer) (uint64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.db.Backup(w, 0)
}

// Restore loads a backup produced by Backup.
func (s *Store) Restore(r io.Reader) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.db.Load(r, 256)
}
