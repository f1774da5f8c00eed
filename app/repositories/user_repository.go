package repositories

import (
	"rightsnet/app/models"

	"github.com/dgraph-io/badger/v4"
)

// storedUser keeps the password hash, which models.User never serializes.
type storedUser struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

func toStored(u *models.User) *storedUser {
	return &storedUser{User: *u, PasswordHash: u.PasswordHash}
}

func (s *storedUser) toModel() *models.User {
	u := s.User
	u.PasswordHash = s.PasswordHash
	return &u
}

// BadgerUserRepository implements UserRepository using BadgerDB
type BadgerUserRepository struct {
	db *badger.DB
}

// NewBadgerUserRepository creates a new BadgerUserRepository
func NewBadgerUserRepository(db *badger.DB) *BadgerUserRepository {
	return &BadgerUserRepository{db: db}
}

// Create stores a new user, rejecting a taken email or username.
func (r *BadgerUserRepository) Create(user *models.User) error {
	return r.db.Update(func(txn *badger.Txn) error {
		emailKey := []byte(UserEmailIndexPrefix + user.Email)
		nameKey := []byte(UserNameIndexPrefix + user.Username)
		for _, k := range [][]byte{emailKey, nameKey} {
			if err := requireKey(txn, k); err == nil {
				return ErrConflict
			} else if err != ErrNotFound {
				return err
			}
		}

		id, err := getNextID(txn, UserSeqKey)
		if err != nil {
			return err
		}
		user.ID = id

		if err := setEntity(txn, idKey(UserKeyPrefix, id), toStored(user)); err != nil {
			return err
		}
		if err := setIntValue(txn, emailKey, id); err != nil {
			return err
		}
		return setIntValue(txn, nameKey, id)
	})
}

// GetByID retrieves a user by ID
func (r *BadgerUserRepository) GetByID(id int) (*models.User, error) {
	var user *models.User
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = r.get(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *BadgerUserRepository) get(txn *badger.Txn, id int) (*models.User, error) {
	var s storedUser
	if err := getEntity(txn, idKey(UserKeyPrefix, id), &s); err != nil {
		return nil, err
	}
	return s.toModel(), nil
}

// GetByEmail retrieves a user through the email index.
func (r *BadgerUserRepository) GetByEmail(email string) (*models.User, error) {
	return r.getByIndex(UserEmailIndexPrefix + email)
}

// GetByUsername retrieves a user through the username index.
func (r *BadgerUserRepository) GetByUsername(username string) (*models.User, error) {
	return r.getByIndex(UserNameIndexPrefix + username)
}

func (r *BadgerUserRepository) getByIndex(key string) (*models.User, error) {
	var user *models.User
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := getIntValue(txn, []byte(key))
		if err != nil {
			return err
		}
		user, err = r.get(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Update saves profile changes. Email and username are immutable here.
func (r *BadgerUserRepository) Update(user *models.User) error {
	return r.db.Update(func(txn *badger.Txn) error {
		existing, err := r.get(txn, user.ID)
		if err != nil {
			return err
		}
		if existing.Email != user.Email || existing.Username != user.Username {
			return ErrConflict
		}
		if user.PasswordHash == "" {
			user.PasswordHash = existing.PasswordHash
		}
		return setEntity(txn, idKey(UserKeyPrefix, user.ID), toStored(user))
	})
}

// List retrieves a paginated list of users in id order
func (r *BadgerUserRepository) List(limit, offset int) ([]*models.User, error) {
	var users []*models.User
	p := &page{limit: limit, offset: offset}
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(UserKeyPrefix), false, func(_, val []byte) (bool, error) {
			keep, more := p.take()
			if keep {
				var s storedUser
				if err := unmarshalEntity(val, &s); err != nil {
					return false, err
				}
				u := s.toModel()
				u.PasswordHash = ""
				users = append(users, u)
			}
			return more, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// CountByCountry tallies users per country code.
func (r *BadgerUserRepository) CountByCountry() (map[string]int, error) {
	counts := make(map[string]int)
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(UserKeyPrefix), false, func(_, val []byte) (bool, error) {
			var s storedUser
			if err := unmarshalEntity(val, &s); err != nil {
				return false, err
			}
			if s.CountryCode != "" {
				counts[s.CountryCode]++
			}
			return true, nil
		})
	})
	return counts, err
}
