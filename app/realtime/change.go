package realtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChangeType is the kind of row change carried by a Change.
type ChangeType string

const (
	Insert   ChangeType = "INSERT"
	Update   ChangeType = "UPDATE"
	Delete   ChangeType = "DELETE"
	Typing   ChangeType = "TYPING"
	Presence ChangeType = "PRESENCE"
)

// Table names used in Change.Table.
const (
	TableMessages      = "messages"
	TablePosts         = "posts"
	TableComments      = "comments"
	TableConversations = "conversations"
	TableCommunities   = "communities"
	TableMemberships   = "memberships"
	TableNotifications = "notifications"
	TableTyping        = "typing"
	TablePresence      = "presence"
)

const (
	FeedTopic     = "feed"
	PresenceTopic = "presence"
)

// Change is a single event on a topic. Old holds the previous row for UPDATE
// and DELETE.
type Change struct {
	Topic  string     `json:"topic"`
	Table  string     `json:"table"`
	Type   ChangeType `json:"type"`
	Record any        `json:"record,omitempty"`
	Old    any        `json:"old,omitempty"`
	At     time.Time  `json:"at"`
}

// NewChange builds a Change stamped with the current time.
func NewChange(topic, table string, typ ChangeType, record, old any) Change {
	return Change{Topic: topic, Table: table, Type: typ, Record: record, Old: old, At: time.Now().UTC()}
}

// TypingEvent is the record of a TYPING change.
type TypingEvent struct {
	ConversationID int       `json:"conversation_id"`
	UserID         int       `json:"user_id"`
	At             time.Time `json:"at"`
}

// PresenceEvent is the record of a PRESENCE change.
type PresenceEvent struct {
	UserID int  `json:"user_id"`
	Online bool `json:"online"`
}

func ConversationTopic(id int) string { return "conversation:" + strconv.Itoa(id) }
func UserTopic(id int) string         { return "user:" + strconv.Itoa(id) }
func CommunityTopic(id int) string    { return "community:" + strconv.Itoa(id) }

// ParseTopic splits a topic into its kind and id. Feed and presence topics
// have id 0.
func ParseTopic(topic string) (kind string, id int, err error) {
	switch topic {
	case FeedTopic, PresenceTopic:
		return topic, 0, nil
	}
	kind, rest, ok := strings.Cut(topic, ":")
	if !ok {
		return "", 0, fmt.Errorf("unknown topic %q", topic)
	}
	switch kind {
	case "conversation", "user", "community":
	default:
		return "", 0, fmt.Errorf("unknown topic %q", topic)
	}
	id, err = strconv.Atoi(rest)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("bad topic id in %q", topic)
	}
	return kind, id, nil
}

// DecodeRecord copies a Change record (or old row) into out. Records built
// in-process are typed values while records read off the wire are generic
// JSON, so both go through a JSON round trip.
func DecodeRecord(record any, out any) error {
	if record == nil {
		return fmt.Errorf("empty record")
	}
	if raw, ok := record.(json.RawMessage); ok {
		return json.Unmarshal(raw, out)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
