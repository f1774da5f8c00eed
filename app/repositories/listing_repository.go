package repositories

import (
	"rightsnet/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerListingRepository implements ListingRepository using BadgerDB
type BadgerListingRepository struct {
	db *badger.DB
}

// NewBadgerListingRepository creates a new BadgerListingRepository
func NewBadgerListingRepository(db *badger.DB) *BadgerListingRepository {
	return &BadgerListingRepository{db: db}
}

// Create creates a new listing
func (r *BadgerListingRepository) Create(listing *models.Listing) error {
	return r.db.Update(func(txn *badger.Txn) error {
		id, err := getNextID(txn, ListingSeqKey)
		if err != nil {
			return err
		}
		listing.ID = id
		return setEntity(txn, idKey(ListingKeyPrefix, id), listing)
	})
}

// GetByID retrieves a listing by ID
func (r *BadgerListingRepository) GetByID(id int) (*models.Listing, error) {
	var l models.Listing
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, idKey(ListingKeyPrefix, id), &l)
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (f ListingFilter) matches(l *models.Listing) bool {
	if f.CountryCode != "" && l.CountryCode != f.CountryCode {
		return false
	}
	if f.Category != "" && l.Category != f.Category {
		return false
	}
	return l.Matches(f.Query)
}

// List retrieves listings matching filter in id order
func (r *BadgerListingRepository) List(filter ListingFilter, limit, offset int) ([]*models.Listing, error) {
	var out []*models.Listing
	p := &page{limit: limit, offset: offset}
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(ListingKeyPrefix), false, func(_, val []byte) (bool, error) {
			var l models.Listing
			if err := unmarshalEntity(val, &l); err != nil {
				return false, err
			}
			if !filter.matches(&l) {
				return true, nil
			}
			keep, more := p.take()
			if keep {
				out = append(out, &l)
			}
			return more, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update updates an existing listing
func (r *BadgerListingRepository) Update(listing *models.Listing) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := idKey(ListingKeyPrefix, listing.ID)
		if err := requireKey(txn, key); err != nil {
			return err
		}
		return setEntity(txn, key, listing)
	})
}

// Delete deletes a listing by ID
func (r *BadgerListingRepository) Delete(id int) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := idKey(ListingKeyPrefix, id)
		if err := requireKey(txn, key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// CountByCountry tallies listings per country and category.
func (r *BadgerListingRepository) CountByCountry() (map[string]map[string]int, error) {
	counts := make(map[string]map[string]int)
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(ListingKeyPrefix), false, func(_, val []byte) (bool, error) {
			var l models.Listing
			if err := unmarshalEntity(val, &l); err != nil {
				return false, err
			}
			byCat, ok := counts[l.CountryCode]
			if !ok {
				byCat = make(map[string]int)
				counts[l.CountryCode] = byCat
			}
			byCat[l.Category]++
			return true, nil
		})
	})
	return counts, err
}
