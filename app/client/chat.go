package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rightsnet/app/realtime"
)

// Chat follows one conversation: history, live changes and optimistic
// sends all land in a MessageMirror.
type Chat struct {
	api    *Client
	rt     *realtime.Client
	mirror *realtime.MessageMirror
	convID int
	logger *slog.Logger
}

// OpenChat loads the conversation history and subscribes to its topic.
func OpenChat(ctx context.Context, api *Client, convID int, logger *slog.Logger) (*Chat, error) {
	if logger == nil {
		logger = slog.Default()
	}
	me, err := api.Me(ctx)
	if err != nil {
		return nil, err
	}

	rt, err := realtime.Dial(ctx, api.BaseURL()+"/api/realtime", api.Token())
	if err != nil {
		return nil, err
	}
	if err := rt.SubscribeAndWait(ctx, realtime.ConversationTopic(convID)); err != nil {
		rt.Close()
		return nil, err
	}

	// subscribe first so nothing sent between the two calls is missed
	history, err := api.Messages(ctx, convID, 0, 0)
	if err != nil {
		rt.Close()
		return nil, err
	}
	mirror := realtime.NewMessageMirror(convID, me.ID)
	mirror.Load(history)

	return &Chat{api: api, rt: rt, mirror: mirror, convID: convID, logger: logger}, nil
}

// Mirror exposes the local view.
func (c *Chat) Mirror() *realtime.MessageMirror { return c.mirror }

// Send shows the message immediately as pending, then settles it with the
// server's row. On failure the entry is kept and marked failed.
func (c *Chat) Send(ctx context.Context, content string) (realtime.MirrorEntry, error) {
	entry := c.mirror.AddPending(content)
	msg, err := c.api.SendMessage(ctx, c.convID, content, entry.ClientNonce)
	if err != nil {
		c.mirror.FailPending(entry.ClientNonce)
		return entry, fmt.Errorf("send failed: %w", err)
	}
	c.mirror.Confirm(msg)
	return realtime.MirrorEntry{Message: *msg, State: realtime.StateConfirmed}, nil
}

// Run applies realtime changes until ctx ends or the connection drops.
// onChange is called after every applied change.
func (c *Chat) Run(ctx context.Context, onChange func(realtime.Change)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-c.rt.Frames():
			if !ok {
				if err := c.rt.Err(); err != nil {
					return err
				}
				return errors.New("realtime connection closed")
			}
			if f.Error != "" {
				c.logger.Warn("realtime error frame", "error", f.Error)
				continue
			}
			if !f.IsChange() {
				continue
			}
			if err := c.mirror.Apply(f.Change); err != nil {
				c.logger.Warn("failed to apply change", "error", err)
				continue
			}
			if onChange != nil {
				onChange(f.Change)
			}
		}
	}
}

// Close ends the realtime session.
func (c *Chat) Close() error {
	return c.rt.Close()
}
