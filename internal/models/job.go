package models

import "time"

// JobState is the lifecycle state of a download job.
type JobState string

const (
	StatePending     JobState = "Pending"
	StateDownloading JobState = "Downloading"
	StateTranscoding JobState = "Transcoding"
	StateCompleted   JobState = "Completed"
	StateFailed      JobState = "Failed"
	StateCancelled   JobState = "Cancelled"
	StatePaused      JobState = "Paused"
	StateNoResources JobState = "Cancelled (Insufficient Resources)"
)

// IsTerminal reports whether no further automatic transition can occur.
func (s JobState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled, StateNoResources:
		return true
	}
	return false
}

// IsActive reports whether the job currently occupies a worker slot.
func (s JobState) IsActive() bool {
	return s == StateDownloading || s == StateTranscoding
}

// MediaFormat is the requested output container.
type MediaFormat string

const (
	FormatMP4  MediaFormat = "mp4"
	FormatWebM MediaFormat = "webm"
	FormatM4A  MediaFormat = "m4a"
	FormatMP3  MediaFormat = "mp3"
)

// IsAudio reports whether the format is audio-only.
func (f MediaFormat) IsAudio() bool {
	return f == FormatM4A || f == FormatMP3
}

// Quality is the requested quality tier.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// ItemStatus is the per-entry state of a playlist download.
type ItemStatus string

const (
	ItemPending     ItemStatus = "pending"
	ItemDownloading ItemStatus = "downloading"
	ItemCompleted   ItemStatus = "completed"
	ItemError       ItemStatus = "error"
)

// PlaylistItem tracks one playlist entry. URL is the concrete entry locator
// resolved at probe time; it is internal bookkeeping, not API surface.
type PlaylistItem struct {
	Title    string     `json:"title"`
	Progress float64    `json:"progress"`
	Status   ItemStatus `json:"status"`
	Error    string     `json:"error,omitempty"`
	URL      string     `json:"-"`
}

// Job is one user-submitted download (and optional transcode) request,
// tracked end to end. The id, url, format, quality and is_playlist fields
// are immutable after admission; the registry keeps them for the lifetime
// of the job so a paused job can be re-admitted with identical parameters.
type Job struct {
	ID          string         `json:"id"`
	URL         string         `json:"url"`
	Format      MediaFormat    `json:"format"`
	Quality     Quality        `json:"quality"`
	IsPlaylist  bool           `json:"is_playlist"`
	State       JobState       `json:"status"`
	Progress    float64        `json:"progress"`
	Title       string         `json:"title"`
	Error       string         `json:"error,omitempty"`
	CurrentItem int            `json:"current_item"`
	TotalItems  int            `json:"total_items"`
	Items       []PlaylistItem `json:"items"`
	Attempts    int            `json:"-"`
	OutputPath  string         `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Clone returns a deep copy safe to hand to API readers.
func (j *Job) Clone() *Job {
	cp := *j
	if j.Items != nil {
		cp.Items = make([]PlaylistItem, len(j.Items))
		copy(cp.Items, j.Items)
	}
	return &cp
}
