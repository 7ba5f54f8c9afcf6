package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"streamwatch/internal/domain"
)

const DefaultInterval = 10 * time.Second

type Config struct {
	Logins   []string
	API      domain.StreamAPI
	Notifier domain.Notifier
	Clock    clockwork.Clock
	Interval time.Duration
}

// Poller vigila el conteo de viewers de los canales configurados. Es dueño
// de los usuarios resueltos y del snapshot anterior.
type Poller struct {
	logins   []string
	api      domain.StreamAPI
	notifier domain.Notifier
	clock    clockwork.Clock
	interval time.Duration

	users    []domain.TrackedUser
	previous domain.ViewerSnapshot
}

func NewPoller(cfg Config) (*Poller, error) {
	if len(cfg.Logins) == 0 {
		return nil, errors.New("monitor: no logins to watch")
	}
	if cfg.API == nil || cfg.Notifier == nil {
		return nil, errors.New("monitor: api and notifier are required")
	}

	p := &Poller{
		logins:   append([]string(nil), cfg.Logins...),
		api:      cfg.API,
		notifier: cfg.Notifier,
		clock:    cfg.Clock,
		interval: cfg.Interval,
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	return p, nil
}

// Run executes the startup phase and then polls until ctx is cancelled or a
// call fails. Cancellation returns nil.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.clock.After(p.interval):
		}

		if err := p.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Start resolves the logins, takes the first snapshot and sends the
// "now monitoring" notification.
func (p *Poller) Start(ctx context.Context) error {
	users, err := p.api.ResolveUsers(ctx, p.logins)
	if err != nil {
		return fmt.Errorf("monitor: resolve users: %w", err)
	}
	p.users = users
	p.warnUnknownLogins()
	slog.Debug("Resolved users", "users", users)

	records, err := p.api.FetchStreams(ctx, p.logins)
	if err != nil {
		return fmt.Errorf("monitor: fetch streams: %w", err)
	}
	p.previous = BuildSnapshot(p.users, records)
	slog.Debug("Initial viewer counts", "snapshot", p.previous)

	msg := StartupMessage(p.users, p.previous)
	slog.Debug("Startup message", "body", msg.Body)
	if err := p.notifier.Notify(ctx, msg); err != nil {
		return fmt.Errorf("monitor: notify: %w", err)
	}
	return nil
}

// Tick runs one steady-state cycle: fetch, diff against the previous
// snapshot, notify each change, keep the new snapshot.
func (p *Poller) Tick(ctx context.Context) error {
	records, err := p.api.FetchStreams(ctx, p.logins)
	if err != nil {
		return fmt.Errorf("monitor: fetch streams: %w", err)
	}
	current := BuildSnapshot(p.users, records)

	for _, change := range Diff(p.users, p.previous, current) {
		slog.Debug("Viewer count changed",
			"user", change.User.DisplayName,
			"previous", change.Previous,
			"current", change.Current,
		)
		if err := p.notifier.Notify(ctx, ChangeMessage(change)); err != nil {
			return fmt.Errorf("monitor: notify %s: %w", change.User.Login, err)
		}
	}

	p.previous = current
	return nil
}

func (p *Poller) Users() []domain.TrackedUser {
	return append([]domain.TrackedUser(nil), p.users...)
}

func (p *Poller) Previous() domain.ViewerSnapshot {
	out := make(domain.ViewerSnapshot, len(p.previous))
	for id, c := range p.previous {
		out[id] = c
	}
	return out
}

func (p *Poller) warnUnknownLogins() {
	known := make(map[string]struct{}, len(p.users))
	for _, u := range p.users {
		known[strings.ToLower(u.Login)] = struct{}{}
	}
	for _, login := range p.logins {
		if _, ok := known[strings.ToLower(login)]; !ok {
			slog.Warn("Login not found on Twitch, it will not be watched", "login", login)
		}
	}
}
