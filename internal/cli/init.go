// Package cli wires configuration, storage and the ledger behind the
// zombie command.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"zombiefinance/internal/backend"
	"zombiefinance/internal/config"
	"zombiefinance/internal/ledger"
	"zombiefinance/internal/log"
	"zombiefinance/internal/persist"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from cfg and makes it the slog
// default.
func SetupLogger(cfg *config.Config, out io.Writer) *log.Logger {
	logger := log.New(log.Config{
		Level:     cfg.SlogLevel(),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration, applies flag overrides and
// validates the result.
func LoadAndValidateConfig(o *rootOptions) (*config.Config, error) {
	if o.configFile != "" {
		if err := os.Setenv(config.EnvConfigFile, o.configFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.backend != "" {
		cfg.DataBackend = o.backend
	}
	if o.dbPath != "" {
		cfg.SQLiteDBPath = o.dbPath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// env is everything a ledger command needs. Close releases the backend.
type env struct {
	cfg     *config.Config
	logger  *log.Logger
	backend *backend.BackendResult
	persist *persist.Adapter
	ledger  *ledger.Store
}

// openEnv loads configuration and opens the configured backend.
func openEnv(ctx context.Context, o *rootOptions, logOut io.Writer) (*env, error) {
	cfg, err := LoadAndValidateConfig(o)
	if err != nil {
		return nil, err
	}
	logger := SetupLogger(cfg, logOut)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	adapter := persist.New(res.Backend,
		persist.WithPrefix(cfg.StoragePrefix),
		persist.WithLogger(logger))
	return &env{
		cfg:     cfg,
		logger:  logger,
		backend: res,
		persist: adapter,
		ledger:  ledger.NewStore(adapter, ledger.WithLogger(logger)),
	}, nil
}

func (e *env) Close() {
	if err := e.backend.Close(); err != nil {
		e.logger.Warn("Backend close failed", log.FieldError, err)
	}
}
