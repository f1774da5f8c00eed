package realtime

import (
	"testing"
	"time"

	"rightsnet/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stored(id, sender int, content, nonce string) *models.Message {
	return &models.Message{ID: id, ConversationID: 1, SenderID: sender, Content: content, ClientNonce: nonce}
}

func insert(msg *models.Message) Change {
	return NewChange(ConversationTopic(msg.ConversationID), TableMessages, Insert, msg, nil)
}

func ids(entries []MirrorEntry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestMirrorOptimisticSend(t *testing.T) {
	m := NewMessageMirror(1, 10)
	m.Load([]*models.Message{stored(1, 20, "hi", ""), stored(2, 10, "hey", "")})

	a := m.AddPending("first")
	b := m.AddPending("second")
	assert.Equal(t, -1, a.ID)
	assert.Equal(t, -2, b.ID)
	assert.NotEmpty(t, a.ClientNonce)
	assert.NotEqual(t, a.ClientNonce, b.ClientNonce)
	assert.Equal(t, []int{1, 2, -1, -2}, ids(m.Messages()))
	assert.Equal(t, 2, m.Pending())

	// second comes back first
	require.NoError(t, m.Apply(insert(stored(4, 10, "second", b.ClientNonce))))
	msgs := m.Messages()
	assert.Equal(t, []int{1, 2, 4, -1}, ids(msgs))
	assert.Equal(t, StateConfirmed, msgs[2].State)
	assert.Equal(t, StatePending, msgs[3].State)

	require.NoError(t, m.Apply(insert(stored(3, 10, "first", a.ClientNonce))))
	assert.Equal(t, []int{1, 2, 3, 4}, ids(m.Messages()))
	assert.Zero(t, m.Pending())
}

func TestMirrorReloadSettlesPending(t *testing.T) {
	m := NewMessageMirror(1, 10)
	m.Load([]*models.Message{stored(1, 20, "hi", "")})

	landed := m.AddPending("sent before the drop")
	lost := m.AddPending("never arrived")
	m.FailPending(lost.ClientNonce)

	// reconnect: history now holds the first message
	m.Load([]*models.Message{
		stored(1, 20, "hi", ""),
		stored(2, 10, "sent before the drop", landed.ClientNonce),
	})

	msgs := m.Messages()
	assert.Equal(t, []int{1, 2, lost.ID}, ids(msgs))
	assert.Equal(t, StateFailed, msgs[2].State)
	assert.Zero(t, m.Pending())

	// a late INSERT for the settled message changes nothing
	require.NoError(t, m.Apply(insert(stored(2, 10, "sent before the drop", landed.ClientNonce))))
	assert.Len(t, m.Messages(), 3)
}

func TestMirrorDuplicateInsertIgnored(t *testing.T) {
	m := NewMessageMirror(1, 10)
	p := m.AddPending("once")

	confirmed := stored(5, 10, "once", p.ClientNonce)
	m.Confirm(confirmed)
	require.NoError(t, m.Apply(insert(confirmed)))
	require.NoError(t, m.Apply(insert(stored(5, 10, "changed?", ""))))

	msgs := m.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "once", msgs[0].Content)
}

func TestMirrorFailPending(t *testing.T) {
	m := NewMessageMirror(1, 10)
	p := m.AddPending("lost")

	assert.True(t, m.FailPending(p.ClientNonce))
	assert.False(t, m.FailPending("unknown"))

	msgs := m.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, StateFailed, msgs[0].State)
	assert.Zero(t, m.Pending())
}

func TestMirrorEditAndDelete(t *testing.T) {
	m := NewMessageMirror(1, 10)
	m.Load([]*models.Message{stored(1, 20, "orig", ""), stored(2, 20, "keep", "")})

	edited := stored(1, 20, "fixed typo", "")
	at := time.Now().UTC()
	edited.EditedAt = &at
	require.NoError(t, m.Apply(NewChange("conversation:1", TableMessages, Update, edited, stored(1, 20, "orig", ""))))

	msgs := m.Messages()
	assert.Equal(t, "fixed typo", msgs[0].Content)
	require.NotNil(t, msgs[0].EditedAt)

	// an edit for a message we never saw is added
	require.NoError(t, m.Apply(NewChange("conversation:1", TableMessages, Update, stored(7, 20, "late", ""), nil)))
	assert.Equal(t, []int{1, 2, 7}, ids(m.Messages()))

	require.NoError(t, m.Apply(NewChange("conversation:1", TableMessages, Delete, nil, stored(1, 20, "fixed typo", ""))))
	assert.Equal(t, []int{2, 7}, ids(m.Messages()))
}

func TestMirrorIgnoresOtherConversations(t *testing.T) {
	m := NewMessageMirror(1, 10)
	other := &models.Message{ID: 9, ConversationID: 2, SenderID: 20, Content: "elsewhere"}
	require.NoError(t, m.Apply(insert(other)))
	require.NoError(t, m.Apply(NewChange("feed", TablePosts, Insert, map[string]any{"id": 1}, nil)))
	assert.Empty(t, m.Messages())

	assert.Error(t, m.Apply(NewChange("conversation:1", TableMessages, Insert, nil, nil)))
}

func TestMirrorTyping(t *testing.T) {
	m := NewMessageMirror(1, 10)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	typing := func(user int, at time.Time) Change {
		return NewChange("conversation:1", TableTyping, Typing, TypingEvent{ConversationID: 1, UserID: user, At: at}, nil)
	}

	require.NoError(t, m.Apply(typing(20, now)))
	require.NoError(t, m.Apply(typing(30, now.Add(-10*time.Second))))
	require.NoError(t, m.Apply(typing(10, now)))

	assert.Equal(t, []int{20}, m.TypingUsers(now.Add(time.Second), 5*time.Second), "self and stale are excluded")

	// a message from the typist ends the indicator
	require.NoError(t, m.Apply(insert(stored(1, 20, "done typing", ""))))
	assert.Empty(t, m.TypingUsers(now.Add(time.Second), 5*time.Second))
}
