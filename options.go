package kiroku

import (
	"log/slog"

	"github.com/ashita-ai/kiroku/internal/config"
)

type resolvedOptions struct {
	logger  *slog.Logger
	cfg     *config.Config
	dataDir string
}

// Option configures New().
type Option func(*resolvedOptions)

// WithLogger sets the structured logger shared by every subsystem.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithConfig supplies a pre-built configuration, skipping the environment
// load entirely. The config is still validated.
func WithConfig(cfg config.Config) Option {
	return func(o *resolvedOptions) { o.cfg = &cfg }
}

// WithDataDir overrides the data directory, keeping the rest of the
// configuration from the environment or WithConfig.
func WithDataDir(dir string) Option {
	return func(o *resolvedOptions) { o.dataDir = dir }
}
