package clientdata

import "time"

// TTL constants for cached data.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Closed historical windows never change
	TTLClosedHistory = 30 * 24 * time.Hour
	// Windows reaching into the present gain a bar every trading day
	TTLOpenHistory = 12 * time.Hour
)

// HistoryTTL picks the TTL of a price window ending at end
func HistoryTTL(end, now time.Time) time.Duration {
	if end.Before(now.Truncate(24 * time.Hour)) {
		return TTLClosedHistory
	}
	return TTLOpenHistory
}
