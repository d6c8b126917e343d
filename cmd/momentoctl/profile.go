package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/momento-app/momento/internal/client"
)

func init() {
	profileCmd := &cobra.Command{Use: "profile", Short: "Profile and progress"}
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show level, XP, streak and badges",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileShow(cmd.Context(), newClient(), cmd.OutOrStdout())
		},
	}
	profileCmd.AddCommand(showCmd)
	rootCmd.AddCommand(profileCmd)

	promptCmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print today's journaling prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, greeting, err := newClient().DailyPrompt(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", greeting, prompt)
			return nil
		},
	}
	rootCmd.AddCommand(promptCmd)
}

func runProfileShow(ctx context.Context, c *client.Client, out io.Writer) error {
	p, err := c.Progress(ctx)
	if err != nil {
		if client.IsNotFound(err) {
			return fmt.Errorf("no profile on %s yet", c.BaseURL())
		}
		return err
	}
	_, _ = fmt.Fprintf(out, "%s, %s\n", p.Greeting, p.Profile.Name)
	_, _ = fmt.Fprintf(out, "level %d  %s %d/%d XP\n", p.Progress.Level, progressBar(p.Progress.Percent, 20), p.Progress.XP, p.Progress.NextLevelXP)
	_, _ = fmt.Fprintf(out, "%d day streak\n", p.Profile.StreakCount)
	var earned []string
	for _, b := range p.Badges {
		if b.Unlocked {
			earned = append(earned, b.Emoji+" "+b.Name)
		}
	}
	if len(earned) > 0 {
		_, _ = fmt.Fprintf(out, "badges: %s\n", strings.Join(earned, ", "))
	}
	return nil
}

func progressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(width, filled))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
