package service

import (
	"time"

	"github.com/and161185/maru-site/internal/model"
)

// ViewWindow is how long a reader's view suppresses further counting.
const ViewWindow = 24 * time.Hour

// shouldCount reports whether a read by viewer at now is a new view: no log
// entry from the same address and user agent within ViewWindow.
func shouldCount(logs []model.ViewLog, viewer model.Viewer, now time.Time) bool {
	cutoff := now.Add(-ViewWindow)
	for i := len(logs) - 1; i >= 0; i-- {
		l := logs[i]
		if l.IP == viewer.IP && l.UserAgent == viewer.UserAgent && l.Timestamp.After(cutoff) {
			return false
		}
	}
	return true
}

// pruneViews drops entries that can no longer suppress a view at now. Stores
// apply the same cutoff when they record a view, so view_logs stays bounded
// by the traffic of one window.
func pruneViews(logs []model.ViewLog, now time.Time) []model.ViewLog {
	cutoff := now.Add(-ViewWindow)
	kept := make([]model.ViewLog, 0, len(logs)+1)
	for _, l := range logs {
		if l.Timestamp.After(cutoff) {
			kept = append(kept, l)
		}
	}
	return kept
}
