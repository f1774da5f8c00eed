package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is anything the server sends: either a Change or a status reply.
type Frame struct {
	Change
	Status    string `json:"status,omitempty"`
	UserID    int    `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// IsChange reports whether the frame carries a row change.
func (f Frame) IsChange() bool {
	return f.Type != "" && f.Status == "" && f.Error == ""
}

// Client is a websocket connection to a Hub.
type Client struct {
	conn   *websocket.Conn
	frames chan Frame
	wmu    sync.Mutex
	err    error
}

// Dial connects to a realtime endpoint. serverURL may use http(s) or ws(s).
func Dial(ctx context.Context, serverURL, token string) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("bad realtime url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("realtime dial failed: %w", err)
	}

	c := &Client{conn: conn, frames: make(chan Frame, 64)}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.frames)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.err = err
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		c.frames <- f
	}
}

// Frames yields server frames until the connection closes.
func (c *Client) Frames() <-chan Frame {
	return c.frames
}

// Err returns the error that ended the read loop, if any.
func (c *Client) Err() error {
	return c.err
}

func (c *Client) send(f clientFrame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(f)
}

// Subscribe asks for changes on topic.
func (c *Client) Subscribe(topic string) error {
	return c.send(clientFrame{Action: "subscribe", Topic: topic})
}

// Unsubscribe stops changes on topic.
func (c *Client) Unsubscribe(topic string) error {
	return c.send(clientFrame{Action: "unsubscribe", Topic: topic})
}

// Typing signals that the user is typing in a conversation.
func (c *Client) Typing(conversationID int) error {
	return c.send(clientFrame{Action: "typing", ConversationID: conversationID})
}

// Await reads frames until one satisfies match, returning it. Frames that do
// not match are passed to skip when it is non-nil.
func (c *Client) Await(ctx context.Context, match func(Frame) bool, skip func(Frame)) (Frame, error) {
	for {
		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case f, ok := <-c.frames:
			if !ok {
				if c.err != nil {
					return Frame{}, c.err
				}
				return Frame{}, errors.New("realtime connection closed")
			}
			if match(f) {
				return f, nil
			}
			if skip != nil {
				skip(f)
			}
		}
	}
}

// SubscribeAndWait subscribes and blocks until the server acknowledges it.
func (c *Client) SubscribeAndWait(ctx context.Context, topic string) error {
	if err := c.Subscribe(topic); err != nil {
		return err
	}
	f, err := c.Await(ctx, func(f Frame) bool {
		return f.Topic == topic && (f.Status == "subscribed" || f.Error != "")
	}, nil)
	if err != nil {
		return err
	}
	if f.Error != "" {
		return fmt.Errorf("subscribe %s: %s", topic, f.Error)
	}
	return nil
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	c.wmu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.wmu.Unlock()
	return c.conn.Close()
}
