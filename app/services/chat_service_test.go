package services

import (
	"strings"
	"testing"
	"time"

	"rightsnet/app/models"
	"rightsnet/app/realtime"
	"rightsnet/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatServiceDirect(t *testing.T) {
	env := newTestEnv(t)
	svc := env.chat
	alice := env.signup(t, "alice", "")
	bob := env.signup(t, "bob", "")
	carol := env.signup(t, "carol", "")

	t.Run("start direct", func(t *testing.T) {
		_, _, err := svc.StartDirect(alice.ID, alice.ID)
		assert.ErrorIs(t, err, ErrInvalid)

		_, _, err = svc.StartDirect(alice.ID, 999)
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		conv, created, err := svc.StartDirect(alice.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, models.ConversationDirect, conv.Kind)
		assert.Len(t, env.pub.on(realtime.UserTopic(bob.ID)), 1)

		again, created, err := svc.StartDirect(bob.ID, alice.ID)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, conv.ID, again.ID)
	})

	conv, _, err := svc.StartDirect(alice.ID, bob.ID)
	require.NoError(t, err)

	t.Run("members only", func(t *testing.T) {
		_, err := svc.GetConversation(carol.ID, conv.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		_, _, err = svc.SendMessage(carol.ID, conv.ID, "hi", "")
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = svc.ListMessages(carol.ID, conv.ID, 0, 0)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.ErrorIs(t, svc.Typing(carol.ID, conv.ID), ErrForbidden)
	})

	t.Run("send message", func(t *testing.T) {
		env.pub.reset()
		msg, created, err := svc.SendMessage(alice.ID, conv.ID, "Hello Bob", "nonce-1")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "nonce-1", msg.ClientNonce)

		changes := env.pub.on(realtime.ConversationTopic(conv.ID))
		require.Len(t, changes, 1)
		assert.Equal(t, realtime.Insert, changes[0].Type)
		assert.Equal(t, realtime.TableMessages, changes[0].Table)

		notes, err := env.notifications.List(bob.ID, true, 1, 10)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, models.NotifyMessage, notes[0].Kind)
		assert.Equal(t, "Hello Bob", notes[0].Message)

		// the sender gets no notification
		count, err := env.notifications.UnreadCount(alice.ID)
		require.NoError(t, err)
		assert.Zero(t, count)

		got, err := svc.GetConversation(bob.ID, conv.ID)
		require.NoError(t, err)
		assert.True(t, got.LastMessageAt.Equal(msg.CreatedAt))
	})

	t.Run("resend with same nonce", func(t *testing.T) {
		env.pub.reset()
		first, err := svc.ListMessages(alice.ID, conv.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, first, 1)

		msg, created, err := svc.SendMessage(alice.ID, conv.ID, "Hello Bob", "nonce-1")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first[0].ID, msg.ID)
		assert.Empty(t, env.pub.on(realtime.ConversationTopic(conv.ID)))

		// the same nonce from a different sender is a new message
		_, created, err = svc.SendMessage(bob.ID, conv.ID, "Hi Alice", "nonce-1")
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("send validates", func(t *testing.T) {
		_, _, err := svc.SendMessage(alice.ID, conv.ID, "", "")
		assert.ErrorIs(t, err, ErrInvalid)
		_, _, err = svc.SendMessage(alice.ID, conv.ID, strings.Repeat("x", 2001), "")
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("edit and delete", func(t *testing.T) {
		msg, _, err := svc.SendMessage(alice.ID, conv.ID, "draft", "")
		require.NoError(t, err)
		env.pub.reset()

		_, err = svc.EditMessage(bob.ID, conv.ID, msg.ID, "not yours")
		assert.ErrorIs(t, err, ErrForbidden)

		edited, err := svc.EditMessage(alice.ID, conv.ID, msg.ID, "final")
		require.NoError(t, err)
		assert.Equal(t, "final", edited.Content)
		require.NotNil(t, edited.EditedAt)

		require.NoError(t, svc.DeleteMessage(alice.ID, conv.ID, msg.ID))
		assert.ErrorIs(t, svc.DeleteMessage(alice.ID, conv.ID, msg.ID), repositories.ErrNotFound)

		changes := env.pub.on(realtime.ConversationTopic(conv.ID))
		require.Len(t, changes, 2)
		assert.Equal(t, realtime.Update, changes[0].Type)
		assert.Equal(t, "draft", changes[0].Old.(*models.Message).Content)
		assert.Equal(t, realtime.Delete, changes[1].Type)
		assert.Nil(t, changes[1].Record)
		assert.Equal(t, msg.ID, changes[1].Old.(*models.Message).ID)
	})

	t.Run("typing", func(t *testing.T) {
		env.pub.reset()
		require.NoError(t, svc.Typing(bob.ID, conv.ID))
		changes := env.pub.on(realtime.ConversationTopic(conv.ID))
		require.Len(t, changes, 1)
		assert.Equal(t, realtime.Typing, changes[0].Type)
		ev := changes[0].Record.(realtime.TypingEvent)
		assert.Equal(t, bob.ID, ev.UserID)
		assert.Equal(t, conv.ID, ev.ConversationID)

		msgs, err := svc.ListMessages(bob.ID, conv.ID, 0, 0)
		require.NoError(t, err)
		for _, m := range msgs {
			assert.NotEqual(t, "typing", m.Content)
		}
	})

	t.Run("list conversations", func(t *testing.T) {
		other, _, err := svc.StartDirect(alice.ID, carol.ID)
		require.NoError(t, err)
		_, _, err = svc.SendMessage(carol.ID, other.ID, "newest", "")
		require.NoError(t, err)

		convs, err := svc.ListConversations(alice.ID)
		require.NoError(t, err)
		require.Len(t, convs, 2)
		assert.Equal(t, other.ID, convs[0].ID)

		convs, err = svc.ListConversations(bob.ID)
		require.NoError(t, err)
		assert.Len(t, convs, 1)
	})
}

func TestChatServiceHistory(t *testing.T) {
	env := newTestEnv(t)
	svc := env.chat
	alice := env.signup(t, "alice", "")
	bob := env.signup(t, "bob", "")
	conv, _, err := svc.StartDirect(alice.ID, bob.ID)
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	var ids []int
	for i := 0; i < 5; i++ {
		msg, _, err := svc.SendMessage(alice.ID, conv.ID, "message", "")
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	page, err := svc.ListMessages(bob.ID, conv.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[3], page[0].ID, "ascending within the page")
	assert.Equal(t, ids[4], page[1].ID)

	older, err := svc.ListMessages(bob.ID, conv.ID, page[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, older, 3)
	assert.Equal(t, ids[0], older[0].ID)
	assert.True(t, older[0].CreatedAt.Before(older[2].CreatedAt))
}

func TestChatServiceCanSubscribe(t *testing.T) {
	env := newTestEnv(t)
	svc := env.chat
	alice := env.signup(t, "alice", "")
	bob := env.signup(t, "bob", "")
	carol := env.signup(t, "carol", "")

	conv, _, err := svc.StartDirect(alice.ID, bob.ID)
	require.NoError(t, err)
	private, err := env.communities.Create(alice.ID, CommunityInput{Name: "Quiet Place", Visibility: models.VisibilityPrivate})
	require.NoError(t, err)
	public, err := env.communities.Create(alice.ID, CommunityInput{Name: "Open Square"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		userID int
		topic  string
		want   bool
	}{
		{"member conversation", bob.ID, realtime.ConversationTopic(conv.ID), true},
		{"outsider conversation", carol.ID, realtime.ConversationTopic(conv.ID), false},
		{"missing conversation", alice.ID, realtime.ConversationTopic(999), false},
		{"own user topic", carol.ID, realtime.UserTopic(carol.ID), true},
		{"someone else's user topic", carol.ID, realtime.UserTopic(alice.ID), false},
		{"public community", carol.ID, realtime.CommunityTopic(public.ID), true},
		{"private community outsider", carol.ID, realtime.CommunityTopic(private.ID), false},
		{"private community owner", alice.ID, realtime.CommunityTopic(private.ID), true},
		{"community chat", alice.ID, realtime.ConversationTopic(private.ConversationID), true},
		{"feed", carol.ID, realtime.FeedTopic, true},
		{"presence", carol.ID, realtime.PresenceTopic, true},
		{"garbage", alice.ID, "nonsense:topic", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.CanSubscribe(tt.userID, tt.topic))
		})
	}
}

// interleavedConversations runs afterGet once, right after a conversation is
// read, to simulate a change landing between a read and a write.
type interleavedConversations struct {
	repositories.ConversationRepository
	afterGet func()
}

func (r *interleavedConversations) GetByID(id int) (*models.Conversation, error) {
	conv, err := r.ConversationRepository.GetByID(id)
	if f := r.afterGet; f != nil {
		r.afterGet = nil
		f()
	}
	return conv, err
}

func TestChatServiceSendKeepsMembershipChanges(t *testing.T) {
	env := newTestEnv(t)
	owner := env.signup(t, "owner", "")
	bob := env.signup(t, "bob", "")

	c, err := env.communities.Create(owner.ID, CommunityInput{Name: "Night Shift"})
	require.NoError(t, err)
	_, err = env.communities.Join(bob.ID, c.ID)
	require.NoError(t, err)

	convs := &interleavedConversations{ConversationRepository: env.store.Conversations}
	chat := NewChatService(convs, env.store.Messages, env.store.Users, NewAccess(env.store.Communities, env.store.Memberships))
	convs.afterGet = func() {
		require.NoError(t, env.communities.Leave(bob.ID, c.ID))
	}

	_, created, err := chat.SendMessage(owner.ID, c.ConversationID, "still here?", "")
	require.NoError(t, err)
	assert.True(t, created)

	conv, err := env.store.Conversations.GetByID(c.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, []int{owner.ID}, conv.MemberIDs)
	assert.False(t, conv.LastMessageAt.IsZero())

	_, err = env.chat.GetConversation(bob.ID, c.ConversationID)
	assert.ErrorIs(t, err, ErrForbidden)
}
