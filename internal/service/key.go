package service

import (
	"fmt"
	"strings"
	"time"
)

// cacheKeyVersion is bumped whenever the key layout or the cached payload
// shape changes, so stale entries from older builds are never deserialized.
const cacheKeyVersion = "v1"

// CacheKey derives the deterministic cache key for a lookup. The city is
// trimmed and lowercased and the country upper-cased so spelling variants
// share an entry. anchor is the archive window's end date (yesterday);
// embedding it makes every key roll over once per day without any explicit
// invalidation.
func CacheKey(city, country string, days int, anchor time.Time) string {
	return fmt.Sprintf("avg:%s:%s:%s:%d:end=%s",
		cacheKeyVersion,
		strings.ToUpper(strings.TrimSpace(country)),
		strings.ToLower(strings.TrimSpace(city)),
		days,
		anchor.Format("2006-01-02"),
	)
}
