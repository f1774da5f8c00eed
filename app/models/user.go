package models

import (
	"errors"
	"strings"
	"time"

	"rightsnet/app/countries"
)

// Validate checks the user's profile fields.
func (u *User) Validate() error {
	if err := validate.Struct(u); err != nil {
		return err
	}
	if u.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}
	return nil
}

// BeforeCreate normalizes identifiers and stamps the creation time.
func (u *User) BeforeCreate() {
	u.Normalize()
	if u.AccountType == "" {
		u.AccountType = AccountIndividual
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
}

// Normalize lowercases email and username and upper-cases the country code.
func (u *User) Normalize() {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	u.DisplayName = strings.TrimSpace(u.DisplayName)
	u.CountryCode = countries.Normalize(u.CountryCode)
}

// IsOrganization reports whether the account may publish directory listings.
func (u *User) IsOrganization() bool {
	return u.AccountType == AccountOrganization
}
