package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"streamwatch/internal/domain"
)

// DefaultRefreshMargin is how long before expiry a token is replaced.
const DefaultRefreshMargin = 5 * time.Second

// TokenFetcher performs the client-credentials grant.
type TokenFetcher interface {
	FreshToken(ctx context.Context, clientID, clientSecret string) (domain.AuthToken, error)
}

type Config struct {
	ClientID      string
	ClientSecret  string
	Cache         domain.TokenCache
	Fetcher       TokenFetcher
	Clock         clockwork.Clock
	RefreshMargin time.Duration
	// OnStoreError is called when the cache write fails. The in-memory token
	// stays valid, so the failure is never returned.
	OnStoreError func(err error)
}

// Manager mantiene el único token vigente del proceso y es el único que
// escribe en la cache.
type Manager struct {
	clientID     string
	clientSecret string
	cache        domain.TokenCache
	fetcher      TokenFetcher
	clock        clockwork.Clock
	margin       time.Duration
	onStoreError func(err error)

	mu      sync.RWMutex
	current domain.AuthToken
}

// NewManager loads the cached token or, on a miss, fetches and caches a fresh
// one. It fails only when no token can be obtained.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("credentials: client id and secret are required")
	}
	if cfg.Cache == nil || cfg.Fetcher == nil {
		return nil, errors.New("credentials: cache and fetcher are required")
	}

	m := &Manager{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		cache:        cfg.Cache,
		fetcher:      cfg.Fetcher,
		clock:        cfg.Clock,
		margin:       cfg.RefreshMargin,
		onStoreError: cfg.OnStoreError,
	}
	if m.clock == nil {
		m.clock = clockwork.NewRealClock()
	}
	if m.margin <= 0 {
		m.margin = DefaultRefreshMargin
	}

	if token, ok := m.cache.Load(); ok {
		if token.ClientID == m.clientID {
			slog.Debug("Using cached token", "expires_at", token.ExpiresAt)
			m.current = token
			return m, nil
		}
		slog.Info("Cached token belongs to another client id, getting a fresh one")
	}

	if err := m.refresh(ctx); err != nil {
		return nil, fmt.Errorf("credentials: initial token: %w", err)
	}

	return m, nil
}

// EnsureValid replaces the current token when it expires within the refresh
// margin. It makes no network call otherwise.
func (m *Manager) EnsureValid(ctx context.Context) error {
	if !m.needsRefresh() {
		return nil
	}

	slog.Info("Token about to expire, getting a fresh one", "expires_at", m.Current().ExpiresAt)
	if err := m.refresh(ctx); err != nil {
		return fmt.Errorf("credentials: refresh token: %w", err)
	}
	return nil
}

func (m *Manager) FreshToken(ctx context.Context) (domain.AuthToken, error) {
	return m.fetcher.FreshToken(ctx, m.clientID, m.clientSecret)
}

func (m *Manager) Current() domain.AuthToken {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *Manager) needsRefresh() bool {
	token := m.Current()
	if token.AccessToken == "" || token.ExpiresAt.IsZero() {
		return true
	}
	return token.ExpiresWithin(m.clock.Now(), m.margin)
}

func (m *Manager) refresh(ctx context.Context) error {
	token, err := m.FreshToken(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.current = token
	m.mu.Unlock()

	if err := m.cache.Store(token); err != nil {
		slog.Warn("Cannot cache token, the next run will authenticate again", "error", err)
		if m.onStoreError != nil {
			m.onStoreError(err)
		}
	}
	return nil
}

var _ domain.TokenProvider = (*Manager)(nil)
