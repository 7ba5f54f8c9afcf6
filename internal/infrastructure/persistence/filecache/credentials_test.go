package filecache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamwatch/internal/domain"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T) (*TokenCache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "dir", tokenFileName)
	cache, err := NewTokenCache(path, clockwork.NewFakeClockAt(now))
	require.NoError(t, err)
	return cache, path
}

func TestNewTokenCache_EmptyPath(t *testing.T) {
	_, err := NewTokenCache("", nil)
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	t.Setenv("HOME", "/tmp/home")

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, appDirName, filepath.Base(filepath.Dir(path)))
	assert.Equal(t, tokenFileName, filepath.Base(path))
}

func TestStoreThenLoad_RoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	token := domain.AuthToken{
		ClientID:    "client",
		AccessToken: "abc123",
		ExpiresAt:   now.Add(time.Hour),
	}

	require.NoError(t, cache.Store(token))

	loaded, ok := cache.Load()
	require.True(t, ok)
	assert.Equal(t, token.ClientID, loaded.ClientID)
	assert.Equal(t, token.AccessToken, loaded.AccessToken)
	assert.True(t, token.ExpiresAt.Equal(loaded.ExpiresAt))
}

func TestStore_CreatesDirectoriesAndRFC3339(t *testing.T) {
	cache, path := newTestCache(t)
	token := domain.AuthToken{ClientID: "client", AccessToken: "abc", ExpiresAt: now.Add(time.Hour)}

	require.NoError(t, cache.Store(token))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"client_id": "client"`)
	assert.Contains(t, string(content), `"access_token": "abc"`)
	assert.Contains(t, string(content), `"expires_at": "2024-03-01T13:00:00Z"`)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestStore_OverwritesPriorContent(t *testing.T) {
	cache, _ := newTestCache(t)

	require.NoError(t, cache.Store(domain.AuthToken{ClientID: "c", AccessToken: "old", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, cache.Store(domain.AuthToken{ClientID: "c", AccessToken: "new", ExpiresAt: now.Add(2 * time.Hour)}))

	loaded, ok := cache.Load()
	require.True(t, ok)
	assert.Equal(t, "new", loaded.AccessToken)
}

func TestStore_UnwritableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { os.Chmod(dir, 0o700) })

	cache, err := NewTokenCache(filepath.Join(dir, "sub", tokenFileName), clockwork.NewFakeClockAt(now))
	require.NoError(t, err)

	err = cache.Store(domain.AuthToken{ClientID: "c", AccessToken: "x", ExpiresAt: now.Add(time.Hour)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filecache: creating dir")
}

func TestLoad_MissingFile(t *testing.T) {
	cache, _ := newTestCache(t)

	_, ok := cache.Load()
	assert.False(t, ok)
}

func TestLoad_CorruptFile(t *testing.T) {
	cache, path := newTestCache(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, ok := cache.Load()
	assert.False(t, ok)
}

func TestLoad_ExpiredOrExpiringNow(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
	}{
		{"expired an hour ago", now.Add(-time.Hour)},
		{"expires exactly now", now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, _ := newTestCache(t)
			require.NoError(t, cache.Store(domain.AuthToken{ClientID: "c", AccessToken: "x", ExpiresAt: tt.expiresAt}))

			_, ok := cache.Load()
			assert.False(t, ok)
		})
	}
}

func TestLoad_ValidOneSecondBeforeExpiry(t *testing.T) {
	cache, _ := newTestCache(t)
	require.NoError(t, cache.Store(domain.AuthToken{ClientID: "c", AccessToken: "x", ExpiresAt: now.Add(time.Second)}))

	_, ok := cache.Load()
	assert.True(t, ok)
}
