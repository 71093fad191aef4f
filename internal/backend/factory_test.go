package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/config"
	"spendwise/internal/storage"
	"spendwise/internal/storage/memory"
)

func TestSettingsFrom(t *testing.T) {
	_, err := SettingsFrom(nil)
	assert.Error(t, err)

	_, err = SettingsFrom(&config.Config{DataBackend: "sheets"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory, sqlite, postgres")

	s, err := SettingsFrom(&config.Config{DataBackend: " Postgres ", DatabaseURL: "postgres://localhost/spendwise"})
	require.NoError(t, err)
	assert.Equal(t, Postgres, s.Kind)
	assert.Equal(t, "postgres://localhost/spendwise", s.DatabaseURL)
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		wantErr  bool
	}{
		{"memory", Settings{Kind: Memory}, false},
		{"sqlite without path", Settings{Kind: SQLite}, true},
		{"sqlite", Settings{Kind: SQLite, SQLiteDBPath: "x.db"}, false},
		{"postgres without url", Settings{Kind: Postgres}, true},
		{"unknown", Settings{Kind: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestKinds(t *testing.T) {
	assert.Equal(t, []string{"memory", "sqlite", "postgres"}, KindNames())
	assert.True(t, SQLite.Valid())
	assert.False(t, Kind("sheets").Valid())
}

func TestOpenMemory(t *testing.T) {
	res, err := NewOpener(nil).Open(context.Background(), Settings{Kind: Memory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, res.Store)
	assert.NoError(t, res.Cleanup())
}

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "spendwise.db")

	res, err := NewOpener(nil).Open(context.Background(), Settings{Kind: SQLite, SQLiteDBPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	repo, ok := res.Store.(*storage.Repository)
	require.True(t, ok)
	assert.Equal(t, storage.DialectSQLite, repo.Dialect())

	n, err := res.Store.CountTeamMembers(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenRejectsInvalidSettings(t *testing.T) {
	_, err := NewOpener(nil).Open(context.Background(), Settings{Kind: SQLite})
	assert.Error(t, err)
}
