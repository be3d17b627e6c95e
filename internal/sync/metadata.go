package sync

import "time"

// MetadataKey is the fixed key of the single sync metadata record.
const MetadataKey = "singleton"

// Metadata is the persisted sync watermark. It lives as a single record
// in the sync_metadata collection and survives restarts, so an
// interrupted pull resumes from the last completed pass rather than
// refetching everything.
type Metadata struct {
	ID           string    `json:"id"`
	LastPulledAt time.Time `json:"lastPulledAt"`
	LastPushedAt time.Time `json:"lastPushedAt"`
}
