package domain

import "time"

// NowUTC returns the current time in UTC truncated to whole seconds.
//
// All persisted timestamps go through this helper. The local store compares
// timestamps as their ISO-8601 JSON encoding, which is only ordered correctly
// when every value carries the same (zero) sub-second precision.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
