package models

import (
	"errors"
	"time"
)

// Validate checks the community fields.
func (c *Community) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}
	return nil
}

// BeforeCreate fills the slug, visibility and creation time when missing.
func (c *Community) BeforeCreate() {
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	if c.Visibility == "" {
		c.Visibility = VisibilityPublic
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
}

// IsPublic reports whether anyone can join without approval.
func (c *Community) IsPublic() bool {
	return c.Visibility == VisibilityPublic
}

// Validate checks the membership fields.
func (m *Membership) Validate() error {
	return validate.Struct(m)
}

// IsActive reports whether the membership has been accepted.
func (m *Membership) IsActive() bool {
	return m.Status == MemberActive
}

// CanModerate reports whether the member may manage the community.
func (m *Membership) CanModerate() bool {
	return m.IsActive() && (m.Role == RoleOwner || m.Role == RoleModerator)
}
