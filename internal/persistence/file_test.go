package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/salescrm/crm-portal/internal/config"
	"github.com/salescrm/crm-portal/internal/domain"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	fs, err := NewFileStore(path)
	require.NoError(t, err)

	ctx := context.Background()
	got, err := fs.Load(ctx, "auth-storage")
	require.NoError(t, err)
	assert.Nil(t, got)

	record := domain.PersistedSession{
		AccessToken:     "T1",
		RefreshToken:    "R1",
		User:            &domain.User{ID: "u1", Role: domain.RoleAgent},
		IsAuthenticated: true,
	}
	require.NoError(t, fs.Save(ctx, "auth-storage", record))

	got, err = fs.Load(ctx, "auth-storage")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record, *got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreKeepsOtherKeys(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Save(ctx, "a", domain.PersistedSession{AccessToken: "A", RefreshToken: "RA"}))
	require.NoError(t, fs.Save(ctx, "b", domain.PersistedSession{AccessToken: "B", RefreshToken: "RB"}))

	a, err := fs.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", a.AccessToken)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	fs, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = fs.Load(context.Background(), "auth-storage")
	assert.ErrorIs(t, err, ErrCorruptSessionFile)
	assert.Error(t, fs.Ping(context.Background()))
}

func TestFileStoreSaveRepairsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	fs, err := NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Save(ctx, "auth-storage", domain.PersistedSession{AccessToken: "T1", RefreshToken: "R1"}))
	require.NoError(t, fs.Ping(ctx))

	got, err := fs.Load(ctx, "auth-storage")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "T1", got.AccessToken)

	aside, err := os.ReadFile(path + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(aside))
}

func TestMemoryStoreIsolatesUser(t *testing.T) {
	m := NewMemoryStore()
	user := &domain.User{ID: "u1", Role: domain.RoleAgent}
	require.NoError(t, m.Save(context.Background(), "k", domain.PersistedSession{User: user}))

	user.Role = domain.RoleAdmin
	got, err := m.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, got.User.Role)
	assert.Equal(t, 1, m.Saves())
}

func TestOpenMemoryAndFile(t *testing.T) {
	cfg := &config.Config{Session: config.SessionConfig{Backend: config.SessionBackendMemory}}
	b, closeFn, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &MemoryStore{}, b)

	cfg.Session = config.SessionConfig{Backend: config.SessionBackendFile, FilePath: filepath.Join(t.TempDir(), "s.json")}
	b, closeFn, err = Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &FileStore{}, b)

	cfg.Session.Backend = "etcd"
	_, _, err = Open(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestMigrationNamesSorted(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_session_records.sql", names[0])
}
