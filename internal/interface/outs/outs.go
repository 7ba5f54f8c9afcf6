package outs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/beeep"

	"streamwatch/internal/domain"
)

// MultiNotifier reparte cada notificación entre los sinks registrados, en
// orden de registro. El primer error corta el envío.
type MultiNotifier struct {
	mu    sync.RWMutex
	sinks []namedSink
}

type namedSink struct {
	name     string
	notifier domain.Notifier
}

// NewMultiNotifier crea un MultiNotifier vacío.
func NewMultiNotifier() *MultiNotifier {
	return &MultiNotifier{}
}

// Register agrega un sink. Un sink nil se ignora.
func (m *MultiNotifier) Register(name string, n domain.Notifier) {
	if m == nil || n == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, namedSink{name: name, notifier: n})
}

func (m *MultiNotifier) Len() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sinks)
}

func (m *MultiNotifier) Notify(ctx context.Context, n domain.Notification) error {
	if m == nil {
		return errors.New("outs: no hay notifier configurado")
	}
	m.mu.RLock()
	sinks := append([]namedSink(nil), m.sinks...)
	m.mu.RUnlock()

	if len(sinks) == 0 {
		return errors.New("outs: no hay sinks registrados")
	}

	for _, s := range sinks {
		if err := s.notifier.Notify(ctx, n); err != nil {
			return fmt.Errorf("outs: %s: %w", s.name, err)
		}
	}
	return nil
}

// DesktopNotifier muestra la notificación en el escritorio.
type DesktopNotifier struct {
	icon string
	send func(title, message, appIcon string) error
}

func NewDesktopNotifier(icon string) *DesktopNotifier {
	return &DesktopNotifier{
		icon: icon,
		send: beeep.Notify,
	}
}

func (d *DesktopNotifier) Notify(_ context.Context, n domain.Notification) error {
	if err := d.send(n.Title, n.Body, d.icon); err != nil {
		return fmt.Errorf("desktop notification: %w", err)
	}
	return nil
}

// LogNotifier writes notifications to the structured log. It is the only
// sink when desktop notifications are turned off.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n domain.Notification) error {
	l.logger.InfoContext(ctx, "Notification", "title", n.Title, "body", n.Body)
	return nil
}

var (
	_ domain.Notifier = (*MultiNotifier)(nil)
	_ domain.Notifier = (*DesktopNotifier)(nil)
	_ domain.Notifier = (*LogNotifier)(nil)
)
