package backend

import (
	"context"
	"fmt"
	"log/slog"

	"spendwise/internal/storage"
	"spendwise/internal/storage/memory"
)

// Opener creates stores from settings.
type Opener interface {
	Open(ctx context.Context, s Settings) (*Result, error)
}

type opener struct {
	logger *slog.Logger
}

// NewOpener returns the default Opener. A nil logger uses slog.Default().
func NewOpener(logger *slog.Logger) Opener {
	if logger == nil {
		logger = slog.Default()
	}
	return &opener{logger: logger}
}

func (o *opener) Open(ctx context.Context, s Settings) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	switch s.Kind {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(s.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		o.logger.InfoContext(ctx, "Opened SQLite store", "db_path", s.SQLiteDBPath)
		return &Result{Store: repo, Cleanup: repo.Close}, nil
	case Postgres:
		repo, err := storage.NewPostgresRepository(s.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		o.logger.InfoContext(ctx, "Opened PostgreSQL store")
		return &Result{Store: repo, Cleanup: repo.Close}, nil
	default:
		store := memory.New()
		o.logger.InfoContext(ctx, "Using in-memory store; data is lost on exit")
		return &Result{Store: store, Cleanup: store.Close}, nil
	}
}
