package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/agenda"
	"github.com/lborres/agenda/pkg/crypto"
	"github.com/lborres/agenda/pkg/tokenstore"
)

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		app := &App{}
		storage, err := app.openStorage(ctx, StorageConfig{Driver: DriverMemory})
		require.NoError(t, err)
		assert.IsType(t, &tokenstore.MemoryStore{}, storage)
	})

	t.Run("sqlite creates the data directory", func(t *testing.T) {
		app := &App{}
		path := filepath.Join(t.TempDir(), "nested", "agenda.db")

		storage, err := app.openStorage(ctx, StorageConfig{Driver: DriverSQLite, Path: path})
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Close() })

		require.NoError(t, storage.Set(ctx, "k", "v"))
		_, err = os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("file with passphrase is sealed", func(t *testing.T) {
		app := &App{}
		path := filepath.Join(t.TempDir(), "token.json")

		storage, err := app.openStorage(ctx, StorageConfig{Driver: DriverFile, Path: path, Passphrase: "hunter2"})
		require.NoError(t, err)
		require.NoError(t, storage.Set(ctx, agenda.DefaultTokenKey, "secret-token"))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "secret-token")
		assert.True(t, strings.Contains(string(raw), "$argon2id-chacha20poly1305$"))

		got, err := storage.Get(ctx, agenda.DefaultTokenKey)
		require.NoError(t, err)
		assert.Equal(t, "secret-token", got)
	})

	t.Run("bad redis dsn", func(t *testing.T) {
		app := &App{}
		_, err := app.openStorage(ctx, StorageConfig{Driver: DriverRedis, DSN: "not-a-url"})
		assert.ErrorContains(t, err, "invalid redis dsn")
	})

	t.Run("unknown driver", func(t *testing.T) {
		app := &App{}
		_, err := app.openStorage(ctx, StorageConfig{Driver: "etcd"})
		assert.Error(t, err)
	})
}

func TestNewApp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage = StorageConfig{Driver: DriverMemory}
	cfg.EventsPolicy = "replace"

	app, err := newApp(context.Background(), cfg, newLogger(os.Stderr, false), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	require.NotNil(t, app.Agenda)
	assert.False(t, app.Agenda.Session.State().Initialized)
}

func TestSealedFileNeedsPassphrase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token.json")

	sealer, err := crypto.NewSealer("hunter2")
	require.NoError(t, err)
	sealed, err := tokenstore.NewFileStore(path, tokenstore.WithSealer(sealer))
	require.NoError(t, err)
	require.NoError(t, sealed.Set(ctx, agenda.DefaultTokenKey, "tok"))

	app := &App{}
	storage, err := app.openStorage(ctx, StorageConfig{Driver: DriverFile, Path: path})
	require.NoError(t, err)

	_, err = storage.Get(ctx, agenda.DefaultTokenKey)
	assert.ErrorIs(t, err, crypto.ErrPassphraseRequired)
}
