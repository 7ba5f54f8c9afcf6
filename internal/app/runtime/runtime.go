package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"

	"streamwatch/internal/domain"
	"streamwatch/internal/infrastructure/config"
	"streamwatch/internal/infrastructure/logging"
	"streamwatch/internal/infrastructure/persistence/filecache"
	twitchinfra "streamwatch/internal/infrastructure/platform/twitch"
	"streamwatch/internal/interface/outs"
	credentialsusecase "streamwatch/internal/usecase/credentials"
	"streamwatch/internal/usecase/monitor"
)

type Options struct {
	Logins []string

	// Overrides, mostly for tests. Empty values use the Twitch endpoints,
	// the real clock and the notifiers from config.
	TokenURL   string
	APIBaseURL string
	Clock      clockwork.Clock
	Notifier   domain.Notifier
}

// Runtime agrupa los componentes armados a partir de la configuración.
type Runtime struct {
	cfg     *config.Config
	cache   *filecache.TokenCache
	tokens  *credentialsusecase.Manager
	streams *twitchinfra.TwitchStreamService
	poller  *monitor.Poller
}

// Run loads config, builds every component and blocks in the poll loop until
// ctx is cancelled or something fails.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	run, err := Build(ctx, cfg, opts)
	if err != nil {
		return err
	}
	return run.poller.Run(ctx)
}

func Build(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	cachePath := cfg.TokenCachePath
	if cachePath == "" {
		p, err := filecache.DefaultPath()
		if err != nil {
			return nil, err
		}
		cachePath = p
	}
	cache, err := filecache.NewTokenCache(cachePath, clock)
	if err != nil {
		return nil, err
	}
	slog.Debug("Token cache", "path", cache.Path())

	httpCli := &http.Client{Timeout: cfg.HTTPTimeout}

	identityOpts := []twitchinfra.IdentityOption{
		twitchinfra.WithIdentityHTTPClient(httpCli),
		twitchinfra.WithIdentityClock(clock),
	}
	if opts.TokenURL != "" {
		identityOpts = append(identityOpts, twitchinfra.WithTokenURL(opts.TokenURL))
	}

	tokens, err := credentialsusecase.NewManager(ctx, credentialsusecase.Config{
		ClientID:      cfg.TwitchClientID,
		ClientSecret:  cfg.TwitchClientSecret,
		Cache:         cache,
		Fetcher:       twitchinfra.NewIdentityClient(identityOpts...),
		Clock:         clock,
		RefreshMargin: cfg.TokenRefreshMargin,
	})
	if err != nil {
		return nil, err
	}

	streams, err := twitchinfra.NewStreamService(twitchinfra.StreamServiceConfig{
		ClientID:   cfg.TwitchClientID,
		Tokens:     tokens,
		HTTPClient: httpCli,
		APIBaseURL: opts.APIBaseURL,
	})
	if err != nil {
		return nil, err
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = buildNotifier(cfg)
	}

	poller, err := monitor.NewPoller(monitor.Config{
		Logins:   opts.Logins,
		API:      streams,
		Notifier: notifier,
		Clock:    clock,
		Interval: cfg.PollInterval,
	})
	if err != nil {
		return nil, err
	}

	return &Runtime{
		cfg:     cfg,
		cache:   cache,
		tokens:  tokens,
		streams: streams,
		poller:  poller,
	}, nil
}

func (r *Runtime) Poller() *monitor.Poller {
	return r.poller
}

func (r *Runtime) Tokens() *credentialsusecase.Manager {
	return r.tokens
}

func buildNotifier(cfg *config.Config) domain.Notifier {
	multi := outs.NewMultiNotifier()
	if cfg.DesktopNotifications {
		multi.Register("desktop", outs.NewDesktopNotifier(""))
	}
	multi.Register("log", outs.NewLogNotifier(slog.Default()))
	return multi
}
