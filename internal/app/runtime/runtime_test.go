package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamwatch/internal/domain"
	"streamwatch/internal/infrastructure/config"
	"streamwatch/internal/infrastructure/persistence/filecache"
)

type fakeTwitch struct {
	mu          sync.Mutex
	tokenCalls  int
	viewers     map[string]int
	authHeaders []string
}

func (f *fakeTwitch) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.tokenCalls++
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "app_token",
			"expires_in":   3600,
			"token_type":   "bearer",
		})
	})
	mux.HandleFunc("/helix/users", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"id":"1","login":"alice","display_name":"Alice"},
			{"id":"2","login":"bob","display_name":"Bob"}
		]}`))
	})
	mux.HandleFunc("/helix/streams", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))

		type stream struct {
			ID          string `json:"id"`
			UserID      string `json:"user_id"`
			ViewerCount int    `json:"viewer_count"`
		}
		data := []stream{}
		for _, id := range []string{"1", "2"} {
			if n, ok := f.viewers[id]; ok {
				data = append(data, stream{ID: "s" + id, UserID: id, ViewerCount: n})
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	})
	return mux
}

func (f *fakeTwitch) setViewers(v map[string]int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewers = v
}

type collectNotifier struct {
	sent []domain.Notification
}

func (c *collectNotifier) Notify(_ context.Context, n domain.Notification) error {
	c.sent = append(c.sent, n)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		TwitchClientID:     "client",
		TwitchClientSecret: "secret",
		TokenCachePath:     filepath.Join(t.TempDir(), "twitch-notif-daemon", "cached_token.json"),
		PollInterval:       10 * time.Second,
		TokenRefreshMargin: 5 * time.Second,
	}
}

func TestBuild_EndToEnd(t *testing.T) {
	fake := &fakeTwitch{viewers: map[string]int{"1": 5}}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	cfg := testConfig(t)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	notifier := &collectNotifier{}

	run, err := Build(context.Background(), cfg, Options{
		Logins:     []string{"alice", "bob"},
		TokenURL:   server.URL + "/oauth2/token",
		APIBaseURL: server.URL + "/helix",
		Clock:      clock,
		Notifier:   notifier,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.tokenCalls)

	cache, err := filecache.NewTokenCache(cfg.TokenCachePath, clock)
	require.NoError(t, err)
	cached, ok := cache.Load()
	require.True(t, ok)
	assert.Equal(t, "app_token", cached.AccessToken)

	poller := run.Poller()
	require.NoError(t, poller.Start(context.Background()))

	fake.setViewers(map[string]int{})
	require.NoError(t, poller.Tick(context.Background()))

	require.Len(t, notifier.sent, 2)
	assert.Equal(t, "Start monitoring some streams !\nAlice (5 viewer)\nBob (no viewer)", notifier.sent[0].Body)
	assert.Equal(t, domain.Notification{Title: "Alice", Body: "Updated viewer count: 0"}, notifier.sent[1])

	// Past expiry the next poll refreshes the token first.
	clock.Advance(time.Hour)
	require.NoError(t, poller.Tick(context.Background()))
	assert.Equal(t, 2, fake.tokenCalls)
	for _, h := range fake.authHeaders {
		assert.Equal(t, "Bearer app_token", h)
	}
}

func TestBuild_ReusesCachedToken(t *testing.T) {
	fake := &fakeTwitch{viewers: map[string]int{}}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	cfg := testConfig(t)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	opts := Options{
		Logins:     []string{"alice"},
		TokenURL:   server.URL + "/oauth2/token",
		APIBaseURL: server.URL + "/helix",
		Clock:      clock,
		Notifier:   &collectNotifier{},
	}

	_, err := Build(context.Background(), cfg, opts)
	require.NoError(t, err)
	run, err := Build(context.Background(), cfg, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.tokenCalls)
	assert.Equal(t, "app_token", run.Tokens().Current().AccessToken)
}

func TestBuild_TokenEndpointDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"status":403,"message":"invalid client secret"}`))
	}))
	defer server.Close()

	_, err := Build(context.Background(), testConfig(t), Options{
		Logins:   []string{"alice"},
		TokenURL: server.URL,
		Notifier: &collectNotifier{},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTokenFetchFailed)
}

func TestBuildNotifier(t *testing.T) {
	cfg := testConfig(t)
	cfg.DesktopNotifications = false

	n := buildNotifier(cfg)
	require.NoError(t, n.Notify(context.Background(), domain.Notification{Title: "t", Body: "b"}))
}
