package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/momento-app/momento/internal/client"
)

type benchOptions struct {
	turns          int
	texts          []string
	startDelay     time.Duration
	interTurnDelay time.Duration
	turnTimeout    time.Duration
	clearAfter     bool
	verbose        bool
}

var defaultUtterances = []string{
	"Today I went for a long walk by the river.",
	"I finally finished the book I was reading.",
	"Work was stressful but I handled it.",
	"I'm grateful for a quiet evening.",
}

func init() {
	var (
		opts     benchOptions
		textsRaw string
	)
	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Replay chat turns over the websocket and report reply latency",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.texts = splitUtterances(textsRaw)
			if err := opts.validate(); err != nil {
				return err
			}
			return runBench(cmd.Context(), newClient(), opts, cmd.OutOrStdout())
		},
	}
	benchCmd.Flags().IntVar(&opts.turns, "turns", 10, "number of turns to replay")
	benchCmd.Flags().StringVar(&textsRaw, "texts", "", "utterances separated by '|' (optional)")
	benchCmd.Flags().DurationVar(&opts.startDelay, "start-delay", 0, "delay before the first turn")
	benchCmd.Flags().DurationVar(&opts.interTurnDelay, "inter-turn", 200*time.Millisecond, "delay between turns")
	benchCmd.Flags().DurationVar(&opts.turnTimeout, "turn-timeout", 15*time.Second, "timeout waiting for each reply")
	benchCmd.Flags().BoolVar(&opts.clearAfter, "clear", false, "clear chat history when done")
	benchCmd.Flags().BoolVar(&opts.verbose, "verbose", true, "print each turn")
	rootCmd.AddCommand(benchCmd)
}

func splitUtterances(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), defaultUtterances...)
	}
	var out []string
	for _, part := range strings.Split(raw, "|") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (o *benchOptions) validate() error {
	if o.turns <= 0 {
		return errors.New("turns must be > 0")
	}
	if len(o.texts) == 0 {
		return errors.New("texts produced no non-empty utterances")
	}
	if o.turnTimeout < time.Second {
		o.turnTimeout = time.Second
	}
	o.startDelay = max(o.startDelay, 0)
	o.interTurnDelay = max(o.interTurnDelay, 0)
	return nil
}

type benchResult struct {
	latencies []time.Duration
	fallbacks int
}

func runBench(ctx context.Context, c *client.Client, opts benchOptions, out io.Writer) error {
	sock, err := c.DialChat(ctx)
	if err != nil {
		return err
	}
	defer sock.Close()

	if opts.verbose {
		_, _ = fmt.Fprintf(out, "bench: api=%s turns=%d\n", c.BaseURL(), opts.turns)
	}
	if err := sleepCtx(ctx, opts.startDelay); err != nil {
		return err
	}

	var res benchResult
	for i := 0; i < opts.turns; i++ {
		text := opts.texts[i%len(opts.texts)]
		turnCtx, cancel := context.WithTimeout(ctx, opts.turnTimeout)
		start := time.Now()
		turn, err := sock.Send(turnCtx, text, nil)
		elapsed := time.Since(start)
		cancel()
		if err != nil {
			return fmt.Errorf("turn %d: %w", i+1, err)
		}
		res.latencies = append(res.latencies, elapsed)
		if turn.Reply.Fallback {
			res.fallbacks++
		}
		if opts.verbose {
			_, _ = fmt.Fprintf(out, "bench: turn %d/%d %s fallback=%t\n", i+1, opts.turns, elapsed.Round(time.Millisecond), turn.Reply.Fallback)
		}
		if i < opts.turns-1 {
			if err := sleepCtx(ctx, opts.interTurnDelay); err != nil {
				return err
			}
		}
	}
	res.print(out)

	if snap, err := c.PerfLatency(ctx); err != nil {
		log.Warn().Err(err).Msg("server latency snapshot unavailable")
	} else {
		for _, st := range snap.Stages {
			_, _ = fmt.Fprintf(out, "server %s: samples=%d p50=%.1fms p95=%.1fms\n", st.Stage, st.Samples, st.P50MS, st.P95MS)
		}
	}

	if opts.clearAfter {
		n, err := c.ClearChat(ctx)
		if err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		_, _ = fmt.Fprintf(out, "bench: cleared %d messages\n", n)
	}
	return nil
}

func (r benchResult) print(out io.Writer) {
	if len(r.latencies) == 0 {
		return
	}
	sorted := slices.Clone(r.latencies)
	slices.Sort(sorted)
	_, _ = fmt.Fprintf(out, "bench: turns=%d fallbacks=%d p50=%s p95=%s max=%s\n",
		len(sorted), r.fallbacks,
		percentile(sorted, 0.50).Round(time.Millisecond),
		percentile(sorted, 0.95).Round(time.Millisecond),
		sorted[len(sorted)-1].Round(time.Millisecond))
}

// percentile uses nearest rank over an ascending slice.
func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(q*float64(len(sorted)))) - 1
	idx = max(0, min(len(sorted)-1, idx))
	return sorted[idx]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
