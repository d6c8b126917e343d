package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/momento-app/momento/internal/chat"
	"github.com/momento-app/momento/internal/client"
	"github.com/momento-app/momento/internal/protocol"
	"github.com/momento-app/momento/internal/records"
	"github.com/momento-app/momento/internal/viewcache"
)

func init() {
	chatCmd := &cobra.Command{Use: "chat", Short: "Talk with the companion"}

	sendCmd := &cobra.Command{
		Use:   "send TEXT...",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChatSend(cmd.Context(), newClient(), strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
	chatCmd.AddCommand(sendCmd)

	var last int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Print the conversation, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := newClient().ChatHistory(cmd.Context())
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), items, last)
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&last, "last", "n", 0, "only print the last N messages")
	chatCmd.AddCommand(historyCmd)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the whole conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := newClient().ClearChat(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d messages\n", n)
			return nil
		},
	}
	chatCmd.AddCommand(clearCmd)

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive chat over the websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChatREPL(cmd.Context(), newClient(), timeoutFlag, os.Stdin, cmd.OutOrStdout())
		},
	}
	chatCmd.AddCommand(replCmd)

	rootCmd.AddCommand(chatCmd)
}

func runChatSend(ctx context.Context, c *client.Client, text string, out io.Writer) error {
	ex, err := c.SendChat(ctx, text)
	if err != nil {
		return err
	}
	if ex.Fallback {
		log.Debug().Int64("message_id", ex.AssistantMessage.ID).Msg("reply came from the fallback pool")
	}
	_, _ = fmt.Fprintf(out, "momento: %s\n", ex.AssistantMessage.Content)
	return nil
}

func printHistory(out io.Writer, items []chat.Message, last int) {
	if last > 0 && len(items) > last {
		items = items[len(items)-last:]
	}
	if len(items) == 0 {
		_, _ = fmt.Fprintln(out, "no messages yet")
		return
	}
	for _, m := range items {
		who := "you"
		if m.Role == chat.RoleAssistant {
			who = "momento"
		}
		_, _ = fmt.Fprintf(out, "[%s] %s: %s\n", shortTime(m.Timestamp), who, m.Content)
	}
}

func messageFromEvent(ev protocol.ChatMessage) chat.Message {
	ts, err := records.ParseTime(ev.Timestamp)
	if err != nil {
		log.Debug().Err(err).Int64("message_id", ev.ID).Msg("unparsed chat timestamp")
	}
	return chat.Message{ID: ev.ID, Role: ev.Role, Content: ev.Content, Timestamp: ts}
}

// runChatREPL keeps a local copy of the conversation seeded from history and
// extended only with messages the server confirmed.
func runChatREPL(ctx context.Context, c *client.Client, turnTimeout time.Duration, in io.Reader, out io.Writer) error {
	if turnTimeout <= 0 {
		turnTimeout = 45 * time.Second
	}
	history, err := c.ChatHistory(ctx)
	if err != nil {
		return err
	}
	cache := viewcache.New(func(m chat.Message) int64 { return m.ID })
	cache.Reset(history)

	sock, err := c.DialChat(ctx)
	if err != nil {
		return err
	}
	defer sock.Close()

	_, _ = fmt.Fprintf(out, "connected to %s (%d earlier messages). /history /clear /quit\n", c.BaseURL(), cache.Len())
	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			printHistory(out, cache.Items(), 0)
			continue
		case "/clear":
			n, err := c.ClearChat(ctx)
			if err != nil {
				return err
			}
			cache.Reset(nil)
			_, _ = fmt.Fprintf(out, "deleted %d messages\n", n)
			continue
		}

		turnCtx, cancel := context.WithTimeout(ctx, turnTimeout)
		turn, err := sock.Send(turnCtx, line, func(state string) {
			log.Debug().Str("state", state).Msg("turn state")
		})
		cancel()
		if err != nil {
			return err
		}
		cache.Append(messageFromEvent(turn.User))
		cache.Append(messageFromEvent(turn.Reply))
		_, _ = fmt.Fprintf(out, "momento: %s\n", turn.Reply.Content)
	}
	return scanner.Err()
}
