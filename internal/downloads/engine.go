package downloads

import (
	"context"

	"github.com/mediagrab/mediagrab/internal/models"
)

// ProbeEntry is one playlist entry discovered during source inspection.
type ProbeEntry struct {
	Title string
	URL   string
}

// ProbeResult is the outcome of inspecting a URL without downloading it.
type ProbeResult struct {
	IsPlaylist bool
	Title      string
	Entries    []ProbeEntry
}

// FetchResult reports where the extraction engine landed the file and the
// container it came in.
type FetchResult struct {
	Path string
	Ext  string
}

// ProgressFunc receives progress at an engine-determined cadence. Total may
// be an estimate, or zero when unknown. It must be safe to call from the
// engine's own goroutine and must not block.
type ProgressFunc func(downloaded, total int64, filename string)

// Extractor is the driven port for the external extraction engine.
type Extractor interface {
	Probe(ctx context.Context, url string) (*ProbeResult, error)
	Fetch(ctx context.Context, url, query, outputDir string, onProgress ProgressFunc) (*FetchResult, error)
}

// Transcoder is the driven port for the external transcoding engine. It
// never deletes its input; the caller owns cleanup. The quality tier steers
// codec parameters such as audio bitrate.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string, format models.MediaFormat, quality models.Quality) error
}

// ResourceUsage is one sample of system load.
type ResourceUsage struct {
	CPUPercent  float64
	MemPercent  float64
	DiskPercent float64
}

// ResourceSampler is the driven port for system load sampling. dir is the
// output directory whose filesystem usage is measured.
type ResourceSampler interface {
	Sample(ctx context.Context, dir string) (*ResourceUsage, error)
}
