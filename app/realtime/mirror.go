package realtime

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"rightsnet/app/models"

	"github.com/google/uuid"
)

// EntryState tracks an entry of a MessageMirror through its lifecycle.
type EntryState string

const (
	StateConfirmed EntryState = "confirmed"
	StatePending   EntryState = "pending"
	StateFailed    EntryState = "failed"
)

// MirrorEntry is a message as a chat participant currently sees it.
type MirrorEntry struct {
	models.Message
	State EntryState `json:"state"`
}

// MessageMirror keeps the local view of one conversation: confirmed history,
// optimistic messages that have not come back from the server yet, and who
// is typing. It is what a chat screen renders.
type MessageMirror struct {
	mu             sync.Mutex
	conversationID int
	selfID         int

	confirmed map[int]*MirrorEntry
	pending   []*MirrorEntry
	nextTemp  int
	typing    map[int]time.Time
}

// NewMessageMirror creates an empty mirror of conversationID as seen by selfID.
func NewMessageMirror(conversationID, selfID int) *MessageMirror {
	return &MessageMirror{
		conversationID: conversationID,
		selfID:         selfID,
		confirmed:      make(map[int]*MirrorEntry),
		typing:         make(map[int]time.Time),
	}
}

// Load replaces the confirmed history. Pending and failed entries whose
// nonce shows up in history were stored after all and are dropped; the rest
// are kept.
func (m *MessageMirror) Load(history []*models.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmed = make(map[int]*MirrorEntry, len(history))
	stored := make(map[string]bool)
	for _, msg := range history {
		if msg.ConversationID != m.conversationID {
			continue
		}
		m.confirmed[msg.ID] = &MirrorEntry{Message: *msg, State: StateConfirmed}
		if msg.ClientNonce != "" && msg.SenderID == m.selfID {
			stored[msg.ClientNonce] = true
		}
	}
	kept := m.pending[:0]
	for _, e := range m.pending {
		if !stored[e.ClientNonce] {
			kept = append(kept, e)
		}
	}
	m.pending = kept
}

// AddPending records an optimistic message from the local user. The entry
// gets a negative temporary id and a fresh client nonce, which the caller
// sends with the message so the stored row can be matched on arrival.
func (m *MessageMirror) AddPending(content string) MirrorEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTemp--
	e := &MirrorEntry{
		Message: models.Message{
			ID:             m.nextTemp,
			ConversationID: m.conversationID,
			SenderID:       m.selfID,
			Content:        content,
			ClientNonce:    uuid.NewString(),
			CreatedAt:      time.Now().UTC(),
		},
		State: StatePending,
	}
	m.pending = append(m.pending, e)
	return *e
}

// FailPending marks the pending entry with nonce as failed. It reports
// whether such an entry existed.
func (m *MessageMirror) FailPending(nonce string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.pending {
		if e.ClientNonce == nonce {
			e.State = StateFailed
			return true
		}
	}
	return false
}

// Confirm settles a pending entry with the row returned by the send call.
// It is equivalent to receiving the INSERT change.
func (m *MessageMirror) Confirm(msg *models.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertLocked(*msg)
}

// Apply folds a realtime change into the mirror. Changes for other
// conversations or tables are ignored.
func (m *MessageMirror) Apply(c Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case c.Table == TableMessages && c.Type == Insert:
		var msg models.Message
		if err := DecodeRecord(c.Record, &msg); err != nil {
			return fmt.Errorf("decode inserted message: %w", err)
		}
		if msg.ConversationID == m.conversationID {
			m.insertLocked(msg)
		}
	case c.Table == TableMessages && c.Type == Update:
		var msg models.Message
		if err := DecodeRecord(c.Record, &msg); err != nil {
			return fmt.Errorf("decode updated message: %w", err)
		}
		if msg.ConversationID != m.conversationID {
			return nil
		}
		if e, ok := m.confirmed[msg.ID]; ok {
			e.Content = msg.Content
			e.EditedAt = msg.EditedAt
		} else {
			m.confirmed[msg.ID] = &MirrorEntry{Message: msg, State: StateConfirmed}
		}
	case c.Table == TableMessages && c.Type == Delete:
		row := c.Old
		if row == nil {
			row = c.Record
		}
		var msg models.Message
		if err := DecodeRecord(row, &msg); err != nil {
			return fmt.Errorf("decode deleted message: %w", err)
		}
		if msg.ConversationID == 0 || msg.ConversationID == m.conversationID {
			delete(m.confirmed, msg.ID)
		}
	case c.Type == Typing:
		var ev TypingEvent
		if err := DecodeRecord(c.Record, &ev); err != nil {
			return fmt.Errorf("decode typing event: %w", err)
		}
		if ev.ConversationID != m.conversationID || ev.UserID == m.selfID {
			return nil
		}
		at := ev.At
		if at.IsZero() {
			at = c.At
		}
		m.typing[ev.UserID] = at
	}
	return nil
}

func (m *MessageMirror) insertLocked(msg models.Message) {
	if msg.ClientNonce != "" {
		for i, e := range m.pending {
			if e.ClientNonce == msg.ClientNonce {
				m.pending = append(m.pending[:i], m.pending[i+1:]...)
				break
			}
		}
	}
	if _, dup := m.confirmed[msg.ID]; !dup {
		m.confirmed[msg.ID] = &MirrorEntry{Message: msg, State: StateConfirmed}
	}
	delete(m.typing, msg.SenderID)
}

// Messages returns confirmed entries in id order followed by pending and
// failed entries in the order they were added.
func (m *MessageMirror) Messages() []MirrorEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MirrorEntry, 0, len(m.confirmed)+len(m.pending))
	for _, e := range m.confirmed {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	for _, e := range m.pending {
		out = append(out, *e)
	}
	return out
}

// Pending counts entries still waiting for the server.
func (m *MessageMirror) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.pending {
		if e.State == StatePending {
			n++
		}
	}
	return n
}

// TypingUsers lists other users seen typing within ttl of now.
func (m *MessageMirror) TypingUsers(now time.Time, ttl time.Duration) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for id, at := range m.typing {
		if now.Sub(at) > ttl {
			delete(m.typing, id)
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
