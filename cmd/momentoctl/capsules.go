package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/momento-app/momento/internal/client"
	"github.com/momento-app/momento/internal/records"
)

func init() {
	capsulesCmd := &cobra.Command{Use: "capsules", Short: "Time capsules"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List capsules, soonest unlock first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapsulesList(cmd.Context(), newClient(), cmd.OutOrStdout())
		},
	}
	capsulesCmd.AddCommand(listCmd)

	var (
		unlockAt  string
		unlockIn  time.Duration
		recipient string
		tags      []string
	)
	addCmd := &cobra.Command{
		Use:   "add MESSAGE...",
		Short: "Seal a message for a future date",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := resolveUnlockDate(unlockAt, unlockIn, time.Now())
			if err != nil {
				return err
			}
			return runCapsulesAdd(cmd.Context(), newClient(), strings.Join(args, " "), when, recipient, tags, cmd.OutOrStdout())
		},
	}
	addCmd.Flags().StringVar(&unlockAt, "at", "", "unlock date, e.g. 2025-01-01 or 2025-01-01T09:00 (UTC)")
	addCmd.Flags().DurationVar(&unlockIn, "in", 0, "unlock after this long, e.g. 720h")
	addCmd.Flags().StringVar(&recipient, "to", "", "recipient email")
	addCmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag, repeatable")
	capsulesCmd.AddCommand(addCmd)

	unlockCmd := &cobra.Command{
		Use:   "unlock ID",
		Short: "Open a capsule whose date has passed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			v, err := newClient().UnlockCapsule(cmd.Context(), id)
			if err != nil {
				var apiErr *client.APIError
				if errors.As(err, &apiErr) && apiErr.Code == "still_locked" {
					return fmt.Errorf("capsule #%d is still locked", id)
				}
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "🔓 #%d %s\n", v.ID, v.Message)
			return nil
		},
	}
	capsulesCmd.AddCommand(unlockCmd)

	rootCmd.AddCommand(capsulesCmd)
}

// resolveUnlockDate takes exactly one of an absolute date or an offset.
func resolveUnlockDate(at string, in time.Duration, now time.Time) (time.Time, error) {
	at = strings.TrimSpace(at)
	switch {
	case at != "" && in != 0:
		return time.Time{}, errors.New("use either --at or --in, not both")
	case in > 0:
		return now.Add(in), nil
	case in < 0:
		return time.Time{}, errors.New("--in must be positive")
	case at == "":
		return time.Time{}, errors.New("--at or --in is required")
	}
	return records.ParseTime(at)
}

func runCapsulesList(ctx context.Context, c *client.Client, out io.Writer) error {
	items, err := c.ListCapsules(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		_, _ = fmt.Fprintln(out, "no capsules yet")
		return nil
	}
	for _, v := range items {
		if v.Unlocked {
			_, _ = fmt.Fprintf(out, "#%d 🔓 %s  %s\n", v.ID, shortTime(v.UnlockDate), v.Message)
			continue
		}
		_, _ = fmt.Fprintf(out, "#%d 🔒 opens in %s  (%s)\n", v.ID, v.TimeUntilUnlock, shortTime(v.UnlockDate))
	}
	return nil
}

func runCapsulesAdd(ctx context.Context, c *client.Client, message string, unlockDate time.Time, recipient string, tags []string, out io.Writer) error {
	v, err := c.CreateCapsule(ctx, message, unlockDate, recipient, tags)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "sealed capsule #%d, opens in %s\n", v.ID, v.TimeUntilUnlock)
	return nil
}
