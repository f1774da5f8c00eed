package models

import (
	"errors"
	"time"
)

// Validate checks the notification fields.
func (n *Notification) Validate() error {
	if err := validate.Struct(n); err != nil {
		return err
	}
	if n.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}
	return nil
}

// BeforeCreate stamps the creation time.
func (n *Notification) BeforeCreate() {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
}
