package services

import (
	"errors"
	"fmt"

	"rightsnet/app/models"
	"rightsnet/app/repositories"
)

// Access answers community membership questions shared by the feed, chat
// and community services.
type Access struct {
	communities repositories.CommunityRepository
	memberships repositories.MembershipRepository
}

func NewAccess(communities repositories.CommunityRepository, memberships repositories.MembershipRepository) *Access {
	return &Access{communities: communities, memberships: memberships}
}

// Membership returns the user's membership, or nil when there is none.
func (a *Access) Membership(communityID, userID int) (*models.Membership, error) {
	if userID <= 0 {
		return nil, nil
	}
	m, err := a.memberships.Get(communityID, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// IsActiveMember reports whether the user is an accepted member.
func (a *Access) IsActiveMember(communityID, userID int) (bool, error) {
	m, err := a.Membership(communityID, userID)
	if err != nil || m == nil {
		return false, err
	}
	return m.IsActive(), nil
}

// CanModerate reports whether the user is an active owner or moderator.
func (a *Access) CanModerate(communityID, userID int) (bool, error) {
	m, err := a.Membership(communityID, userID)
	if err != nil || m == nil {
		return false, err
	}
	return m.CanModerate(), nil
}

// CanView returns ErrForbidden when the community is private and the user
// is not an active member.
func (a *Access) CanView(communityID, userID int) error {
	c, err := a.communities.GetByID(communityID)
	if err != nil {
		return fmt.Errorf("community %d: %w", communityID, err)
	}
	if c.IsPublic() {
		return nil
	}
	ok, err := a.IsActiveMember(communityID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("community %d is private: %w", communityID, ErrForbidden)
	}
	return nil
}
