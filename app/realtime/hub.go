package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 4096
	controlBacklog = 16
)

// TokenParser resolves a bearer token to a user id.
type TokenParser interface {
	Parse(token string) (int, error)
}

// Authorizer decides whether a user may listen on a topic.
type Authorizer interface {
	CanSubscribe(userID int, topic string) bool
}

// TypingSender publishes an ephemeral typing event for a conversation.
type TypingSender interface {
	Typing(userID, conversationID int) error
}

// HubOptions tunes websocket sessions.
type HubOptions struct {
	// AllowedOrigins lists accepted Origin headers. Empty accepts any origin.
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Hub upgrades HTTP requests to websocket sessions that stream broker
// changes, and tracks which users are online.
type Hub struct {
	broker   *Broker
	tokens   TokenParser
	authz    Authorizer
	typing   TypingSender
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu     sync.Mutex
	online map[int]int
}

// NewHub creates a Hub. typing may be nil, in which case typing frames are
// rejected.
func NewHub(broker *Broker, tokens TokenParser, authz Authorizer, typing TypingSender, opts HubOptions) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		broker: broker,
		tokens: tokens,
		authz:  authz,
		typing: typing,
		logger: logger,
		online: make(map[int]int),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return set[u.Scheme+"://"+u.Host]
	}
}

// BearerToken extracts the token from an Authorization header or, for
// browsers that cannot set headers on websocket requests, access_token.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

// clientFrame is a message sent by the websocket client.
type clientFrame struct {
	Action         string `json:"action"`
	Topic          string `json:"topic,omitempty"`
	ConversationID int    `json:"conversation_id,omitempty"`
}

// statusFrame acknowledges a client frame or reports an error.
type statusFrame struct {
	Status    string `json:"status,omitempty"`
	Topic     string `json:"topic,omitempty"`
	UserID    int    `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ServeWS authenticates the request and runs a websocket session until the
// client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.Parse(BearerToken(r))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s := &session{
		id:      uuid.NewString(),
		userID:  userID,
		hub:     h,
		conn:    conn,
		sub:     h.broker.Subscribe(UserTopic(userID)),
		control: make(chan statusFrame, controlBacklog),
		done:    make(chan struct{}),
	}
	s.run()
}

// Online returns the ids of users with at least one open session.
func (h *Hub) Online() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]int, 0, len(h.online))
	for id := range h.online {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// IsOnline reports whether userID has an open session.
func (h *Hub) IsOnline(userID int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.online[userID] > 0
}

func (h *Hub) connected(userID int) {
	h.mu.Lock()
	h.online[userID]++
	first := h.online[userID] == 1
	h.mu.Unlock()
	if first {
		h.broker.Publish(NewChange(PresenceTopic, TablePresence, Presence, PresenceEvent{UserID: userID, Online: true}, nil))
	}
}

func (h *Hub) disconnected(userID int) {
	h.mu.Lock()
	h.online[userID]--
	last := h.online[userID] <= 0
	if last {
		delete(h.online, userID)
	}
	h.mu.Unlock()
	if last {
		h.broker.Publish(NewChange(PresenceTopic, TablePresence, Presence, PresenceEvent{UserID: userID, Online: false}, nil))
	}
}

type session struct {
	id      string
	userID  int
	hub     *Hub
	conn    *websocket.Conn
	sub     *Subscription
	control chan statusFrame
	done    chan struct{}
}

func (s *session) run() {
	log := s.hub.logger.With("session", s.id, "user_id", s.userID)
	log.Debug("websocket session opened")

	s.hub.connected(s.userID)
	s.reply(statusFrame{Status: "connected", UserID: s.userID, SessionID: s.id})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writeLoop()
	}()

	s.readLoop(log)

	s.sub.Close()
	close(s.done)
	wg.Wait()
	s.conn.Close()
	s.hub.disconnected(s.userID)
	log.Debug("websocket session closed")
}

func (s *session) reply(f statusFrame) {
	select {
	case s.control <- f:
	default:
	}
}

func (s *session) readLoop(log *slog.Logger) {
	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f clientFrame
		if err := s.conn.ReadJSON(&f); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				s.reply(statusFrame{Error: "invalid frame"})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket read failed", "error", err)
			}
			return
		}
		s.handle(f)
	}
}

func (s *session) handle(f clientFrame) {
	switch f.Action {
	case "subscribe":
		if _, _, err := ParseTopic(f.Topic); err != nil {
			s.reply(statusFrame{Error: err.Error(), Topic: f.Topic})
			return
		}
		if !s.hub.authz.CanSubscribe(s.userID, f.Topic) {
			s.reply(statusFrame{Error: "forbidden", Topic: f.Topic})
			return
		}
		s.sub.Add(f.Topic)
		s.reply(statusFrame{Status: "subscribed", Topic: f.Topic})
	case "unsubscribe":
		s.sub.Remove(f.Topic)
		s.reply(statusFrame{Status: "unsubscribed", Topic: f.Topic})
	case "typing":
		if s.hub.typing == nil {
			s.reply(statusFrame{Error: "typing not supported"})
			return
		}
		if err := s.hub.typing.Typing(s.userID, f.ConversationID); err != nil {
			s.reply(statusFrame{Error: err.Error()})
		}
	default:
		s.reply(statusFrame{Error: "unknown action " + f.Action})
	}
}

// stillAllowed re-checks membership-gated topics on every delivery, since
// access can be lost after subscribing.
func (s *session) stillAllowed(topic string) bool {
	kind, _, err := ParseTopic(topic)
	if err != nil {
		return false
	}
	if kind != "conversation" && kind != "community" {
		return true
	}
	return s.hub.authz.CanSubscribe(s.userID, topic)
}

// revoke drops a topic the user may no longer read. The deletion of the
// conversation or community itself is still delivered, followed by a
// "revoked" status.
func (s *session) revoke(c Change) []any {
	if !s.sub.Has(c.Topic) {
		return nil
	}
	s.sub.Remove(c.Topic)
	var frames []any
	if c.Type == Delete && (c.Table == TableConversations || c.Table == TableCommunities) {
		frames = append(frames, c)
	}
	return append(frames, statusFrame{Status: "revoked", Topic: c.Topic})
}

// writeLoop is the only writer on the connection.
func (s *session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(v any) error {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return s.conn.WriteJSON(v)
	}

	for {
		select {
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case f := <-s.control:
			if err := write(f); err != nil {
				s.conn.Close()
				return
			}
		case c, ok := <-s.sub.C:
			if !ok {
				return
			}
			frames := []any{c}
			if !s.stillAllowed(c.Topic) {
				frames = s.revoke(c)
			}
			for _, f := range frames {
				if err := write(f); err != nil {
					s.conn.Close()
					return
				}
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.conn.Close()
				return
			}
		}
	}
}
