package services

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"rightsnet/app/models"
	"rightsnet/app/repositories"
)

// ListingInput is the payload for creating or updating a directory listing.
type ListingInput struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	CountryCode string `json:"country_code"`
	City        string `json:"city"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Website     string `json:"website"`
}

func (in ListingInput) apply(l *models.Listing) {
	l.Name = in.Name
	l.Category = in.Category
	l.Description = in.Description
	l.CountryCode = in.CountryCode
	l.City = in.City
	l.Phone = in.Phone
	l.Email = in.Email
	l.Website = in.Website
}

// DirectoryService manages the service directory. Organizations publish
// listings; anyone may browse them.
type DirectoryService struct {
	listingRepo repositories.ListingRepository
	userRepo    repositories.UserRepository
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(listingRepo repositories.ListingRepository, userRepo repositories.UserRepository) *DirectoryService {
	return &DirectoryService{listingRepo: listingRepo, userRepo: userRepo}
}

// Create publishes a listing owned by an organization account.
func (s *DirectoryService) Create(actorID int, in ListingInput) (*models.Listing, error) {
	owner, err := s.userRepo.GetByID(actorID)
	if err != nil {
		return nil, err
	}
	if !owner.IsOrganization() {
		return nil, fmt.Errorf("only organization accounts can publish listings: %w", ErrForbidden)
	}

	l := &models.Listing{OwnerID: actorID}
	in.apply(l)
	l.BeforeCreate()
	if err := l.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.listingRepo.Create(l); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	return l, nil
}

// Get retrieves a listing by ID
func (s *DirectoryService) Get(id int) (*models.Listing, error) {
	return s.listingRepo.GetByID(id)
}

// List retrieves a paginated, filtered list of listings
func (s *DirectoryService) List(filter repositories.ListingFilter, page, perPage int) ([]*models.Listing, error) {
	filter.CountryCode = normalizeCountry(filter.CountryCode)
	filter.Category = strings.ToLower(strings.TrimSpace(filter.Category))
	if filter.Category != "" && !slices.Contains(models.ListingCategories, filter.Category) {
		return nil, invalidf("category: must be one of %s", strings.Join(models.ListingCategories, ", "))
	}
	limit, offset := pageBounds(page, perPage)
	out, err := s.listingRepo.List(filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}
	if out == nil {
		out = []*models.Listing{}
	}
	return out, nil
}

func (s *DirectoryService) owned(actorID, id int) (*models.Listing, error) {
	l, err := s.listingRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != actorID {
		return nil, fmt.Errorf("only the owner can change listing %d: %w", id, ErrForbidden)
	}
	return l, nil
}

// Update edits a listing. Only its owner may edit.
func (s *DirectoryService) Update(actorID, id int, in ListingInput) (*models.Listing, error) {
	l, err := s.owned(actorID, id)
	if err != nil {
		return nil, err
	}
	in.apply(l)
	l.Normalize()
	l.UpdatedAt = time.Now().UTC()
	if err := l.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.listingRepo.Update(l); err != nil {
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}
	return l, nil
}

// Delete removes a listing. Only its owner may delete.
func (s *DirectoryService) Delete(actorID, id int) error {
	if _, err := s.owned(actorID, id); err != nil {
		return err
	}
	return s.listingRepo.Delete(id)
}

// Verify marks a listing as checked by the operators.
func (s *DirectoryService) Verify(id int) (*models.Listing, error) {
	l, err := s.listingRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	l.Verified = true
	l.UpdatedAt = time.Now().UTC()
	if err := s.listingRepo.Update(l); err != nil {
		return nil, err
	}
	return l, nil
}

// Import loads operator-curated listings. Every entry is validated before
// any is stored, and imported listings are verified.
func (s *DirectoryService) Import(listings []*models.Listing) (int, error) {
	for i, l := range listings {
		l.ID = 0
		l.OwnerID = 0
		l.Verified = true
		l.BeforeCreate()
		if err := l.Validate(); err != nil {
			return 0, fmt.Errorf("listing %d (%s): %w", i+1, l.Name, invalid(err))
		}
	}
	for i, l := range listings {
		if err := s.listingRepo.Create(l); err != nil {
			return i, fmt.Errorf("failed to store listing %q: %w", l.Name, err)
		}
	}
	return len(listings), nil
}
