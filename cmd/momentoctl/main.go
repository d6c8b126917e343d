package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/momento-app/momento/internal/client"
	"github.com/momento-app/momento/internal/logging"
)

var (
	apiFlag      string
	timeoutFlag  time.Duration
	logLevelFlag string
	log          = zerolog.Nop()
	rootCmd      = &cobra.Command{
		Use:           "momentoctl",
		Short:         "CLI client for the Momento journal API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log = logging.Console(logLevelFlag)
		},
	}
)

func init() {
	api := os.Getenv("MOMENTO_API")
	if api == "" {
		api = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", api, "Momento server base URL")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 45*time.Second, "HTTP request timeout")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "log level for diagnostics on stderr")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(apiFlag, timeoutFlag)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func shortTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
