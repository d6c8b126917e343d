package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/momento-app/momento/internal/client"
	"github.com/momento-app/momento/internal/journal"
)

func init() {
	memoriesCmd := &cobra.Command{Use: "memories", Short: "Journal entries"}

	var listMood string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List memories, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMemoriesList(cmd.Context(), newClient(), listMood, cmd.OutOrStdout())
		},
	}
	listCmd.Flags().StringVarP(&listMood, "mood", "m", "", "only show memories with this mood")
	memoriesCmd.AddCommand(listCmd)

	var req journal.CreateRequest
	addCmd := &cobra.Command{
		Use:   "add TEXT...",
		Short: "Save a memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Content = strings.Join(args, " ")
			return runMemoriesAdd(cmd.Context(), newClient(), req, cmd.OutOrStdout())
		},
	}
	addCmd.Flags().StringVarP(&req.Mood, "mood", "m", "", "mood: happy, excited, calm, love or sad")
	addCmd.Flags().StringSliceVarP(&req.Tags, "tag", "t", nil, "tag, repeatable")
	addCmd.Flags().StringVar(&req.Type, "type", "", "entry type")
	memoriesCmd.AddCommand(addCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := newClient().DeleteMemory(cmd.Context(), id); err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("memory #%d not found", id)
				}
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted memory #%d\n", id)
			return nil
		},
	}
	memoriesCmd.AddCommand(deleteCmd)

	rootCmd.AddCommand(memoriesCmd)
}

func runMemoriesList(ctx context.Context, c *client.Client, mood string, out io.Writer) error {
	items, err := c.ListMemories(ctx, mood)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		_, _ = fmt.Fprintln(out, "no memories yet")
		return nil
	}
	for _, m := range items {
		line := fmt.Sprintf("#%d %s %s  %s", m.ID, m.MoodEmoji, shortTime(m.Timestamp), m.Content)
		if len(m.Tags) > 0 {
			line += "  [" + strings.Join(m.Tags, ", ") + "]"
		}
		_, _ = fmt.Fprintln(out, line)
	}
	return nil
}

func runMemoriesAdd(ctx context.Context, c *client.Client, req journal.CreateRequest, out io.Writer) error {
	res, err := c.CreateMemory(ctx, req)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "saved memory #%d %s\n", res.Memory.ID, res.Memory.MoodEmoji)
	switch {
	case res.Warning != "":
		log.Warn().Int64("memory_id", res.Memory.ID).Msg("reward not applied")
		_, _ = fmt.Fprintln(out, res.Warning)
	case res.Reward.Applied && res.Reward.Profile != nil:
		p := res.Reward.Profile
		_, _ = fmt.Fprintf(out, "level %d, %d XP, %d day streak\n", p.Level, p.XPPoints, p.StreakCount)
	}
	return nil
}
