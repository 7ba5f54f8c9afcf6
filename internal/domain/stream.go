package domain

import (
	"context"
	"time"
)

// StreamRecord es un stream en vivo tal como lo devuelve Helix en un poll.
type StreamRecord struct {
	ID          string
	UserID      string
	UserLogin   string
	UserName    string
	GameID      string
	GameName    string
	Title       string
	ViewerCount int
	StartedAt   time.Time
}

// ViewerSnapshot maps user id to viewer count as of one poll.
// A missing id means the user is offline.
type ViewerSnapshot map[string]int

func (s ViewerSnapshot) Count(userID string) int {
	return s[userID]
}

// StreamAPI is the read side of the Helix API used by the monitor.
type StreamAPI interface {
	ResolveUsers(ctx context.Context, logins []string) ([]TrackedUser, error)
	FetchStreams(ctx context.Context, logins []string) ([]StreamRecord, error)
}
