package records

import (
	"context"
	"fmt"

	"github.com/momento-app/momento/internal/config"
)

// NewBackend creates the backend selected by cfg.StoreDriver. Load resolves
// "auto" before this is called.
func NewBackend(ctx context.Context, cfg config.Config) (Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory, config.DriverAuto, "":
		return NewMemoryBackend(), nil
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		return NewPostgresBackend(ctx, cfg.DatabaseURL)
	case config.DriverHosted:
		return NewHostedBackend(HostedConfig{
			BaseURL:    cfg.HostedURL,
			ProjectID:  cfg.HostedProjectID,
			PublicKey:  cfg.HostedPublicKey,
			Timeout:    cfg.HostedTimeout,
			MaxRetries: cfg.HostedMaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
