package models

import (
	"errors"
	"time"
)

// Validate checks the conversation shape for its kind.
func (c *Conversation) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Kind {
	case ConversationDirect:
		if len(c.MemberIDs) != 2 || c.MemberIDs[0] == c.MemberIDs[1] {
			return errors.New("direct conversation needs two distinct members")
		}
	case ConversationCommunity:
		if c.CommunityID <= 0 {
			return errors.New("community conversation needs a community")
		}
	}
	if c.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}
	return nil
}

// BeforeCreate stamps creation and activity times.
func (c *Conversation) BeforeCreate() {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.LastMessageAt.IsZero() {
		c.LastMessageAt = c.CreatedAt
	}
}

// HasMember reports whether userID belongs to the conversation.
func (c *Conversation) HasMember(userID int) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// AddMember adds userID and reports whether the member list changed.
func (c *Conversation) AddMember(userID int) bool {
	if c.HasMember(userID) {
		return false
	}
	c.MemberIDs = append(c.MemberIDs, userID)
	return true
}

// RemoveMember drops userID and reports whether the member list changed.
func (c *Conversation) RemoveMember(userID int) bool {
	for i, id := range c.MemberIDs {
		if id == userID {
			c.MemberIDs = append(c.MemberIDs[:i], c.MemberIDs[i+1:]...)
			return true
		}
	}
	return false
}

// Validate checks the message fields.
func (m *Message) Validate() error {
	if err := validate.Struct(m); err != nil {
		return err
	}
	if m.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}
	return nil
}

// BeforeCreate stamps the creation time.
func (m *Message) BeforeCreate() {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
}

// Edit replaces the content and records when it happened.
func (m *Message) Edit(content string, at time.Time) {
	m.Content = content
	m.EditedAt = &at
}
