package models

import "log/slog"

// ActivityType names a state transition recorded in the activity log. Every
// transition line carries one, so the log can be filtered by kind.
type ActivityType string

const (
	ActivityRefresh  ActivityType = "refresh"
	ActivityFollow   ActivityType = "follow"
	ActivitySkip     ActivityType = "skip"
	ActivityCooldown ActivityType = "cooldown"
	ActivityPause    ActivityType = "pause"
	ActivityStop     ActivityType = "stop"
	ActivityPersist  ActivityType = "persist"
)

// Attr returns the log attribute for the activity.
func (a ActivityType) Attr() slog.Attr {
	return slog.String("activity", string(a))
}
