package domain

import "context"

// ManifestReader is the manifest collaborator. It enumerates playable units
// and surfaces supplementing annotations attached to each unit's canvas.
type ManifestReader interface {
	UnitCount(ctx context.Context) (int, error)
	UnitLabel(ctx context.Context, unitIndex int) (string, error)
	SupplementingSources(ctx context.Context, unitIndex int) ([]Source, error)
}

// Playback is the playback collaborator. The sync machine never drives
// playback directly; it only requests seeks and filters position ticks by
// the unit they belong to.
type Playback interface {
	RequestSeek(seconds float64)
	Position() float64
	ActiveUnit() int
}

// Fetcher retrieves raw transcript content. Fetch failures are reported as
// errors wrapping ErrUnreachableSource; the pipeline downgrades them to an
// invalid source instead of propagating.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
