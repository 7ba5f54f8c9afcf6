package monitor

import (
	"fmt"
	"sort"
	"strings"

	"streamwatch/internal/domain"
)

const (
	AppName             = "stream watcher"
	startupBodyHeader   = "Start monitoring some streams !"
	updatedCountMessage = "Updated viewer count: %d"
)

// ViewerChange is one user whose count moved between two polls.
type ViewerChange struct {
	User     domain.TrackedUser
	Previous int
	Current  int
}

// BuildSnapshot gives every tracked user an entry. Users without a live
// stream record get 0.
func BuildSnapshot(users []domain.TrackedUser, records []domain.StreamRecord) domain.ViewerSnapshot {
	snap := make(domain.ViewerSnapshot, len(users))
	for _, u := range users {
		snap[u.ID] = 0
	}
	for _, r := range records {
		if _, tracked := snap[r.UserID]; !tracked {
			continue
		}
		snap[r.UserID] = max(r.ViewerCount, 0)
	}
	return snap
}

// Diff returns the users whose count differs between prev and curr, ordered
// by user id.
func Diff(users []domain.TrackedUser, prev, curr domain.ViewerSnapshot) []ViewerChange {
	ordered := sortedByID(users)

	var changes []ViewerChange
	for _, u := range ordered {
		before, after := prev.Count(u.ID), curr.Count(u.ID)
		if before != after {
			changes = append(changes, ViewerChange{User: u, Previous: before, Current: after})
		}
	}
	return changes
}

// ViewerPhrase keeps the singular "viewer" for every count.
func ViewerPhrase(count int) string {
	switch count {
	case 0:
		return "no viewer"
	case 1:
		return "1 viewer"
	default:
		return fmt.Sprintf("%d viewer", count)
	}
}

func StartupMessage(users []domain.TrackedUser, snap domain.ViewerSnapshot) domain.Notification {
	lines := make([]string, 0, len(users)+1)
	lines = append(lines, startupBodyHeader)
	for _, u := range users {
		lines = append(lines, fmt.Sprintf("%s (%s)", u.DisplayName, ViewerPhrase(snap.Count(u.ID))))
	}
	return domain.Notification{
		Title: AppName,
		Body:  strings.Join(lines, "\n"),
	}
}

func ChangeMessage(c ViewerChange) domain.Notification {
	return domain.Notification{
		Title: c.User.DisplayName,
		Body:  fmt.Sprintf(updatedCountMessage, c.Current),
	}
}

func sortedByID(users []domain.TrackedUser) []domain.TrackedUser {
	out := append([]domain.TrackedUser(nil), users...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
