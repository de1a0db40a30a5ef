package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/lborres/agenda"
	pgxadapter "github.com/lborres/agenda/adapters/pgx"
	redisadapter "github.com/lborres/agenda/adapters/redis"
	"github.com/lborres/agenda/adapters/sqlite"
	"github.com/lborres/agenda/pkg/crypto"
	"github.com/lborres/agenda/pkg/tokenstore"
)

// App is one CLI invocation's Agenda plus the storage it owns
type App struct {
	Agenda *agenda.Agenda
	Config Config

	closers []func() error
}

func newApp(ctx context.Context, cfg Config, logger *slog.Logger, http agenda.HTTPAdapter) (*App, error) {
	app := &App{Config: cfg}

	storage, err := app.openStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	// Validate already checked it
	policy, _ := agenda.ParseMergePolicy(cfg.EventsPolicy)

	a, err := agenda.New(agenda.Config{
		BaseURL:      cfg.BaseURL,
		Timeout:      cfg.Timeout,
		TokenKey:     cfg.TokenKey,
		TokenStorage: storage,
		EventsPolicy: policy,
		HTTP:         http,
		Logger:       logger,
	})
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Agenda = a
	return app, nil
}

func (a *App) openStorage(ctx context.Context, cfg StorageConfig) (agenda.TokenStorage, error) {
	switch cfg.Driver {
	case DriverMemory:
		return tokenstore.NewMemoryStore(), nil

	case DriverFile:
		var opts []tokenstore.FileOption
		if cfg.Passphrase != "" {
			sealer, err := crypto.NewSealer(cfg.Passphrase)
			if err != nil {
				return nil, err
			}
			opts = append(opts, tokenstore.WithSealer(sealer))
		}
		return tokenstore.NewFileStore(cfg.Path, opts...)

	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil

	case DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("pgxpool.New: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		adapter := pgxadapter.New(pool)
		if err := adapter.EnsureSchema(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
		return adapter, nil

	case DriverRedis:
		opts, err := goredis.ParseURL(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid redis dsn: %w", err)
		}
		client := goredis.NewClient(opts)
		a.closers = append(a.closers, client.Close)

		if err := client.Ping(ctx).Err(); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return redisadapter.New(client, cfg.Prefix), nil

	default:
		return nil, fmt.Errorf("invalid storage driver %q", cfg.Driver)
	}
}

// Close releases the storage in reverse order of opening
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
