package filecache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"

	"streamwatch/internal/domain"
)

const (
	appDirName    = "twitch-notif-daemon"
	tokenFileName = "cached_token.json"
)

var ErrEmptyPath = errors.New("filecache: empty cache path")

// TokenCache persiste el app access token en un archivo JSON.
// Solo el Auth Manager escribe en él.
type TokenCache struct {
	path  string
	clock clockwork.Clock
}

// DefaultPath returns the per-user cache location for the token file.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("filecache: resolve cache dir: %w", err)
	}
	return filepath.Join(dir, appDirName, tokenFileName), nil
}

func NewTokenCache(path string, clock clockwork.Clock) (*TokenCache, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenCache{
		path:  path,
		clock: clock,
	}, nil
}

func (c *TokenCache) Path() string {
	return c.path
}

// Load devuelve el token guardado si sigue vigente. Cualquier problema
// (archivo ausente, JSON roto, token vencido) se trata como cache miss.
func (c *TokenCache) Load() (domain.AuthToken, bool) {
	content, err := os.ReadFile(c.path)
	if err != nil {
		slog.Info("Cannot open cached token, a fresh one will be fetched", "path", c.path, "error", err)
		return domain.AuthToken{}, false
	}
	slog.Debug("Found a cached token", "path", c.path)

	var token domain.AuthToken
	if err := json.Unmarshal(content, &token); err != nil {
		slog.Info("Cannot parse cached token, a fresh one will be fetched", "path", c.path, "error", err)
		return domain.AuthToken{}, false
	}

	if !c.clock.Now().Before(token.ExpiresAt) {
		slog.Info("Cached token expired, a fresh one will be fetched", "expires_at", token.ExpiresAt)
		return domain.AuthToken{}, false
	}

	return token, true
}

// Store writes the token, replacing whatever the file held before. The write
// goes through a temp file and a rename so a crash never leaves a torn file.
func (c *TokenCache) Store(token domain.AuthToken) error {
	token.ExpiresAt = token.ExpiresAt.UTC()

	content, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("filecache: encode token: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("filecache: creating dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tokenFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("filecache: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("filecache: write %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("filecache: chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filecache: close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("filecache: cannot write token to %s: %w", c.path, err)
	}

	return nil
}

var _ domain.TokenCache = (*TokenCache)(nil)
