package services

import (
	"fmt"

	"rightsnet/app/countries"
	"rightsnet/app/models"
	"rightsnet/app/repositories"
)

func normalizeCountry(code string) string {
	return countries.Normalize(code)
}

// CountryService aggregates activity per reference country.
type CountryService struct {
	userRepo      repositories.UserRepository
	postRepo      repositories.PostRepository
	communityRepo repositories.CommunityRepository
	listingRepo   repositories.ListingRepository
}

// NewCountryService creates a new CountryService
func NewCountryService(userRepo repositories.UserRepository, postRepo repositories.PostRepository,
	communityRepo repositories.CommunityRepository, listingRepo repositories.ListingRepository) *CountryService {
	return &CountryService{
		userRepo:      userRepo,
		postRepo:      postRepo,
		communityRepo: communityRepo,
		listingRepo:   listingRepo,
	}
}

type tallies struct {
	members, posts, communities map[string]int
	listings                    map[string]map[string]int
}

func (s *CountryService) tally() (*tallies, error) {
	var t tallies
	var err error
	if t.members, err = s.userRepo.CountByCountry(); err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}
	if t.posts, err = s.postRepo.CountByCountry(); err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	if t.communities, err = s.communityRepo.CountByCountry(); err != nil {
		return nil, fmt.Errorf("failed to count communities: %w", err)
	}
	if t.listings, err = s.listingRepo.CountByCountry(); err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}
	return &t, nil
}

func (t *tallies) stats(c countries.Country) models.CountryStats {
	st := models.CountryStats{
		Country:            c,
		Members:            t.members[c.Code],
		Posts:              t.posts[c.Code],
		Communities:        t.communities[c.Code],
		ListingsByCategory: make(map[string]int),
	}
	for cat, n := range t.listings[c.Code] {
		st.ListingsByCategory[cat] = n
		st.Listings += n
	}
	return st
}

// List returns every reference country with its stats, sorted by name.
func (s *CountryService) List() ([]models.CountryStats, error) {
	t, err := s.tally()
	if err != nil {
		return nil, err
	}
	all := countries.All()
	out := make([]models.CountryStats, 0, len(all))
	for _, c := range all {
		out = append(out, t.stats(c))
	}
	return out, nil
}

// Get returns the stats of one country.
func (s *CountryService) Get(code string) (*models.CountryStats, error) {
	c, ok := countries.Lookup(code)
	if !ok {
		return nil, fmt.Errorf("country %q: %w", code, repositories.ErrNotFound)
	}
	t, err := s.tally()
	if err != nil {
		return nil, err
	}
	st := t.stats(c)
	return &st, nil
}
