package models

import (
	"errors"
	"time"
)

// Validate checks if the comment meets all validation requirements
func (c *Comment) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}

	return nil
}

// BeforeCreate sets up any necessary fields before creation
func (c *Comment) BeforeCreate() {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
}
