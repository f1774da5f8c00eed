// Package client talks to a rightsnet server over its JSON API and
// realtime channel.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rightsnet/app/models"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rightsnet api: %d %s", e.Status, e.Message)
}

// Client is an authenticated API client.
type Client struct {
	baseURL string
	token   string
	userID  int
	http    *http.Client
}

// New creates a client for the server at baseURL. token may be empty until
// Login is called.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Token is the bearer token in use.
func (c *Client) Token() string { return c.token }

// UserID is the authenticated user, known after Login, Signup or Me.
func (c *Client) UserID() int { return c.userID }

// BaseURL is the server root.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return resp.StatusCode, &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

type session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login exchanges credentials for a token and keeps it.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var s session
	_, err := c.do(ctx, "POST", "/api/auth/login", map[string]string{"email": email, "password": password}, &s)
	if err != nil {
		return nil, err
	}
	c.token = s.Token
	c.userID = s.User.ID
	return s.User, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if _, err := c.do(ctx, "GET", "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	c.userID = u.ID
	return &u, nil
}

// Conversation fetches one conversation.
func (c *Client) Conversation(ctx context.Context, id int) (*models.Conversation, error) {
	var conv models.Conversation
	if _, err := c.do(ctx, "GET", "/api/conversations/"+strconv.Itoa(id), nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// Messages fetches a page of history ending before beforeID (0 = latest).
func (c *Client) Messages(ctx context.Context, convID, beforeID, limit int) ([]*models.Message, error) {
	q := url.Values{}
	if beforeID > 0 {
		q.Set("before", strconv.Itoa(beforeID))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := fmt.Sprintf("/api/conversations/%d/messages", convID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Messages []*models.Message `json:"messages"`
	}
	if _, err := c.do(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// SendMessage posts a message carrying the client nonce.
func (c *Client) SendMessage(ctx context.Context, convID int, content, nonce string) (*models.Message, error) {
	var msg models.Message
	_, err := c.do(ctx, "POST", fmt.Sprintf("/api/conversations/%d/messages", convID),
		map[string]string{"content": content, "client_nonce": nonce}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Typing announces that the user is typing.
func (c *Client) Typing(ctx context.Context, convID int) error {
	_, err := c.do(ctx, "POST", fmt.Sprintf("/api/conversations/%d/typing", convID), nil, nil)
	return err
}

// Signup registers an account and keeps its token. fields uses the signup
// JSON names (email, username, password, country_code...).
func (c *Client) Signup(ctx context.Context, fields map[string]string) (*models.User, error) {
	var s session
	if _, err := c.do(ctx, "POST", "/api/auth/signup", fields, &s); err != nil {
		return nil, err
	}
	c.token = s.Token
	c.userID = s.User.ID
	return s.User, nil
}

// StartDirect opens the direct conversation with userID.
func (c *Client) StartDirect(ctx context.Context, userID int) (*models.Conversation, error) {
	var conv models.Conversation
	if _, err := c.do(ctx, "POST", "/api/conversations", map[string]int{"user_id": userID}, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}
