package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"rightsnet/app/client"
	"rightsnet/app/models"
	"rightsnet/app/realtime"

	"github.com/spf13/cobra"
)

func (c *cli) chatCmd() *cobra.Command {
	var (
		serverURL string
		token     string
		email     string
		convID    int
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Follow a conversation and send lines read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(background(cmd), os.Interrupt)
			defer stop()

			api := client.New(serverURL, token)
			if token == "" {
				password := os.Getenv("RIGHTSNET_PASSWORD")
				if email == "" || password == "" {
					return errors.New("either --token or --email with RIGHTSNET_PASSWORD is required")
				}
				if _, err := api.Login(ctx, email, password); err != nil {
					return err
				}
			}

			chat, err := client.OpenChat(ctx, api, convID, c.logger)
			if err != nil {
				return err
			}
			defer chat.Close()

			out := cmd.OutOrStdout()
			for _, e := range chat.Mirror().Messages() {
				printEntry(out, e)
			}
			return runChat(ctx, chat, cmd.InOrStdin(), out, c.cfg.Realtime.TypingTTL)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server base URL")
	cmd.Flags().StringVar(&token, "token", os.Getenv("RIGHTSNET_TOKEN"), "Bearer token")
	cmd.Flags().StringVar(&email, "email", "", "Log in with this email (password from RIGHTSNET_PASSWORD)")
	cmd.Flags().IntVar(&convID, "conversation", 0, "Conversation id")
	cmd.MarkFlagRequired("conversation")
	return cmd
}

// runChat prints incoming changes and sends each input line until input
// ends or ctx is cancelled.
func runChat(ctx context.Context, chat *client.Chat, in io.Reader, out io.Writer, typingTTL time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- chat.Run(ctx, func(ch realtime.Change) {
			switch {
			case ch.Type == realtime.Typing:
				if ids := chat.Mirror().TypingUsers(time.Now(), typingTTL); len(ids) > 0 {
					fmt.Fprintf(out, "... user %v typing\n", ids)
				}
			case ch.Table == realtime.TableMessages:
				var msg models.Message
				row := ch.Record
				if ch.Type == realtime.Delete {
					row = ch.Old
				}
				if err := realtime.DecodeRecord(row, &msg); err == nil {
					printChange(out, ch.Type, msg)
				}
			}
		})
	}()

	lines := bufio.NewScanner(in)
	for lines.Scan() {
		text := strings.TrimSpace(lines.Text())
		if text == "" {
			continue
		}
		if _, err := chat.Send(ctx, text); err != nil {
			fmt.Fprintf(out, "! %v\n", err)
		}
	}

	cancel()
	return <-errCh
}

func printEntry(out io.Writer, e realtime.MirrorEntry) {
	fmt.Fprintf(out, "[%d] user %d: %s\n", e.ID, e.SenderID, e.Content)
}

func printChange(out io.Writer, typ realtime.ChangeType, msg models.Message) {
	switch typ {
	case realtime.Insert:
		fmt.Fprintf(out, "[%d] user %d: %s\n", msg.ID, msg.SenderID, msg.Content)
	case realtime.Update:
		fmt.Fprintf(out, "[%d] user %d (edited): %s\n", msg.ID, msg.SenderID, msg.Content)
	case realtime.Delete:
		fmt.Fprintf(out, "[%d] deleted\n", msg.ID)
	}
}
