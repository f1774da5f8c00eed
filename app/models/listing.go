package models

import (
	"errors"
	"strings"
	"time"

	"rightsnet/app/countries"
)

// Validate checks the listing fields.
func (l *Listing) Validate() error {
	if err := validate.Struct(l); err != nil {
		return err
	}
	if l.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}
	return nil
}

// BeforeCreate normalizes the listing and stamps its times.
func (l *Listing) BeforeCreate() {
	l.Normalize()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = l.CreatedAt
	}
}

// Normalize trims text fields and canonicalizes the category and country.
func (l *Listing) Normalize() {
	l.Name = strings.TrimSpace(l.Name)
	l.Category = strings.ToLower(strings.TrimSpace(l.Category))
	l.CountryCode = countries.Normalize(l.CountryCode)
	l.City = strings.TrimSpace(l.City)
	l.Email = strings.TrimSpace(l.Email)
	l.Website = strings.TrimSpace(l.Website)
}

// Matches reports whether query appears in the name, description or city,
// ignoring case. An empty query matches everything.
func (l *Listing) Matches(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(l.Name), query) ||
		strings.Contains(strings.ToLower(l.Description), query) ||
		strings.Contains(strings.ToLower(l.City), query)
}
