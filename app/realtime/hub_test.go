package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenStub accepts tokens of the form "user-<id>".
type tokenStub struct{}

func (tokenStub) Parse(token string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(token, "user-"))
	if err != nil || !strings.HasPrefix(token, "user-") {
		return 0, errors.New("bad token")
	}
	return id, nil
}

// membersOnly lets users 1 and 2 into conversation 1.
type membersOnly struct{}

func (membersOnly) CanSubscribe(userID int, topic string) bool {
	switch topic {
	case ConversationTopic(1):
		return userID == 1 || userID == 2
	case PresenceTopic, FeedTopic:
		return true
	}
	return false
}

type typingStub struct{ broker *Broker }

func (s typingStub) Typing(userID, conversationID int) error {
	if conversationID != 1 {
		return errors.New("not a member")
	}
	s.broker.Publish(NewChange(ConversationTopic(conversationID), TableTyping, Typing,
		TypingEvent{ConversationID: conversationID, UserID: userID, At: time.Now().UTC()}, nil))
	return nil
}

func setupHub(t *testing.T) (*Hub, *Broker, *httptest.Server) {
	t.Helper()
	broker := NewBroker(32)
	hub := NewHub(broker, tokenStub{}, membersOnly{}, typingStub{broker}, HubOptions{})
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	return hub, broker, srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, srv.URL, token)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	_, err = c.Await(ctx, func(f Frame) bool { return f.Status == "connected" }, nil)
	require.NoError(t, err)
	return c
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestHubRejectsMissingToken(t *testing.T) {
	_, _, srv := setupHub(t)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, err = Dial(context.Background(), srv.URL, "nope")
	assert.Error(t, err)
}

func TestHubSubscribeAndReceive(t *testing.T) {
	_, broker, srv := setupHub(t)
	alice := dial(t, srv, "user-1")
	ctx := waitCtx(t)

	require.NoError(t, alice.SubscribeAndWait(ctx, ConversationTopic(1)))

	broker.Publish(NewChange(ConversationTopic(1), TableMessages, Insert, map[string]any{"id": 1, "content": "hi"}, nil))
	f, err := alice.Await(ctx, Frame.IsChange, nil)
	require.NoError(t, err)
	assert.Equal(t, Insert, f.Type)
	assert.Equal(t, ConversationTopic(1), f.Topic)

	require.NoError(t, alice.Unsubscribe(ConversationTopic(1)))
	_, err = alice.Await(ctx, func(f Frame) bool { return f.Status == "unsubscribed" }, nil)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return broker.Subscribers(ConversationTopic(1)) == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubForbiddenTopic(t *testing.T) {
	_, _, srv := setupHub(t)
	mallory := dial(t, srv, "user-3")
	ctx := waitCtx(t)

	err := mallory.SubscribeAndWait(ctx, ConversationTopic(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")

	err = mallory.SubscribeAndWait(ctx, "bogus")
	require.Error(t, err)
}

func TestHubUserTopicIsAutomatic(t *testing.T) {
	_, broker, srv := setupHub(t)
	bob := dial(t, srv, "user-2")
	ctx := waitCtx(t)

	broker.Publish(NewChange(UserTopic(2), TableNotifications, Insert, map[string]any{"id": 1}, nil))
	f, err := bob.Await(ctx, Frame.IsChange, nil)
	require.NoError(t, err)
	assert.Equal(t, TableNotifications, f.Table)
}

func TestHubTypingAndPresence(t *testing.T) {
	hub, _, srv := setupHub(t)
	alice := dial(t, srv, "user-1")
	ctx := waitCtx(t)
	require.NoError(t, alice.SubscribeAndWait(ctx, ConversationTopic(1)))
	require.NoError(t, alice.SubscribeAndWait(ctx, PresenceTopic))

	bob := dial(t, srv, "user-2")
	f, err := alice.Await(ctx, func(f Frame) bool { return f.Type == Presence }, nil)
	require.NoError(t, err)
	var ev PresenceEvent
	require.NoError(t, DecodeRecord(f.Record, &ev))
	assert.Equal(t, PresenceEvent{UserID: 2, Online: true}, ev)
	assert.Equal(t, []int{1, 2}, hub.Online())

	require.NoError(t, bob.Typing(1))
	f, err = alice.Await(ctx, func(f Frame) bool { return f.Type == Typing }, nil)
	require.NoError(t, err)
	mirror := NewMessageMirror(1, 1)
	require.NoError(t, mirror.Apply(f.Change))
	assert.Equal(t, []int{2}, mirror.TypingUsers(time.Now(), 5*time.Second))

	require.NoError(t, bob.Typing(99))
	_, err = bob.Await(ctx, func(f Frame) bool { return f.Error != "" }, nil)
	require.NoError(t, err)

	bob.Close()
	f, err = alice.Await(ctx, func(f Frame) bool { return f.Type == Presence }, nil)
	require.NoError(t, err)
	require.NoError(t, DecodeRecord(f.Record, &ev))
	assert.False(t, ev.Online)
	assert.Eventually(t, func() bool { return !hub.IsOnline(2) }, time.Second, 10*time.Millisecond)
}

// grants is an Authorizer whose answers change while sessions are open.
type grants struct {
	mu      sync.Mutex
	allowed map[string]bool
}

func (g *grants) set(userID int, topic string, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.allowed[strconv.Itoa(userID)+"@"+topic] = ok
}

func (g *grants) CanSubscribe(userID int, topic string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.allowed[strconv.Itoa(userID)+"@"+topic]
}

func TestHubRevokesLostAccess(t *testing.T) {
	broker := NewBroker(32)
	authz := &grants{allowed: make(map[string]bool)}
	hub := NewHub(broker, tokenStub{}, authz, nil, HubOptions{})
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	bob := dial(t, srv, "user-2")
	ctx := waitCtx(t)
	authz.set(2, ConversationTopic(7), true)
	authz.set(2, CommunityTopic(3), true)
	require.NoError(t, bob.SubscribeAndWait(ctx, ConversationTopic(7)))
	require.NoError(t, bob.SubscribeAndWait(ctx, CommunityTopic(3)))

	t.Run("left conversation", func(t *testing.T) {
		authz.set(2, ConversationTopic(7), false)
		broker.Publish(NewChange(ConversationTopic(7), TableMessages, Insert, map[string]any{"id": 1, "content": "secret"}, nil))

		var leaked []Frame
		f, err := bob.Await(ctx, func(f Frame) bool { return f.Status == "revoked" }, func(f Frame) { leaked = append(leaked, f) })
		require.NoError(t, err)
		assert.Equal(t, ConversationTopic(7), f.Topic)
		for _, l := range leaked {
			assert.False(t, l.IsChange(), "no change may reach a revoked subscriber")
		}
		assert.Eventually(t, func() bool { return broker.Subscribers(ConversationTopic(7)) == 0 }, time.Second, 10*time.Millisecond)
	})

	t.Run("community deleted", func(t *testing.T) {
		authz.set(2, CommunityTopic(3), false)
		broker.Publish(NewChange(CommunityTopic(3), TableCommunities, Delete, nil, map[string]any{"id": 3}))

		f, err := bob.Await(ctx, Frame.IsChange, nil)
		require.NoError(t, err)
		assert.Equal(t, Delete, f.Type)
		assert.Equal(t, TableCommunities, f.Table)

		f, err = bob.Await(ctx, func(f Frame) bool { return f.Status == "revoked" }, nil)
		require.NoError(t, err)
		assert.Equal(t, CommunityTopic(3), f.Topic)
	})
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/realtime?access_token=abc", nil)
	assert.Equal(t, "abc", BearerToken(r))

	r.Header.Set("Authorization", "Bearer xyz")
	assert.Equal(t, "xyz", BearerToken(r))

	r.Header.Set("Authorization", "Basic xyz")
	assert.Empty(t, BearerToken(r))
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.org/"})
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(r))
	r.Header.Set("Origin", "https://app.example.org")
	assert.True(t, check(r))
	r.Header.Set("Origin", "https://evil.example.org")
	assert.False(t, check(r))
}
