// Package backend picks the ExpenseStore implementation named by DATA_BACKEND.
package backend

import (
	"fmt"
	"strings"

	"spendwise/internal/config"
	"spendwise/internal/services"
)

// Kind names a store implementation.
type Kind string

const (
	Memory   Kind = "memory"
	SQLite   Kind = "sqlite"
	Postgres Kind = "postgres"
)

// Kinds lists every supported store in the order they are documented.
func Kinds() []Kind {
	return []Kind{Memory, SQLite, Postgres}
}

func (k Kind) String() string { return string(k) }

func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// KindNames returns Kinds as plain strings, e.g. for error messages.
func KindNames() []string {
	kinds := Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}

// Settings is the subset of the application config a store needs.
type Settings struct {
	Kind         Kind
	SQLiteDBPath string
	DatabaseURL  string
}

// SettingsFrom extracts store settings from the application config.
func SettingsFrom(cfg *config.Config) (Settings, error) {
	if cfg == nil {
		return Settings{}, fmt.Errorf("app config is nil")
	}
	kind := Kind(strings.ToLower(strings.TrimSpace(cfg.DataBackend)))
	if !kind.Valid() {
		return Settings{}, fmt.Errorf("unknown DATA_BACKEND %q (want one of %s)",
			cfg.DataBackend, strings.Join(KindNames(), ", "))
	}
	return Settings{
		Kind:         kind,
		SQLiteDBPath: cfg.SQLiteDBPath,
		DatabaseURL:  cfg.DatabaseURL,
	}, nil
}

func (s Settings) Validate() error {
	switch s.Kind {
	case Memory:
		return nil
	case SQLite:
		if s.SQLiteDBPath == "" {
			return fmt.Errorf("SQLITE_DB_PATH is required for the sqlite backend")
		}
	case Postgres:
		if s.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", s.Kind)
	}
	return nil
}

// Result is an opened store and the function that releases it.
type Result struct {
	Store   services.Store
	Cleanup func() error
}
