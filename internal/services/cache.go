package services

import "context"

// ParticipantCache caches per-event participant counts. The capacity policy
// is advisory, so a slightly stale count is acceptable for display purposes;
// mutating flows invalidate the entry after committing.
type ParticipantCache interface {
	// Get returns the cached count and whether an entry was present.
	Get(ctx context.Context, eventID string) (int, bool, error)
	Set(ctx context.Context, eventID string, count int) error
	Invalidate(ctx context.Context, eventID string) error
}

// NoopParticipantCache is used when no cache backend is configured.
type NoopParticipantCache struct{}

func (NoopParticipantCache) Get(ctx context.Context, eventID string) (int, bool, error) {
	return 0, false, nil
}
func (NoopParticipantCache) Set(ctx context.Context, eventID string, count int) error { return nil }
func (NoopParticipantCache) Invalidate(ctx context.Context, eventID string) error     { return nil }
