package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mediagrab/mediagrab/internal/config"
	"github.com/mediagrab/mediagrab/internal/downloads"
	"github.com/mediagrab/mediagrab/internal/downloads/repository"
	"github.com/mediagrab/mediagrab/internal/models"
	"github.com/mediagrab/mediagrab/pkg/logger"
)

func testLogger() logger.Logger {
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "Development"},
		Logger: config.Logger{Level: "error", Encoding: "console"},
	}
	l := logger.NewApiLogger(cfg)
	l.InitLogger()
	return l
}

func testConfig(t *testing.T) *config.DownloadsConfig {
	return &config.DownloadsConfig{
		Dir:            t.TempDir(),
		MaxConcurrent:  3,
		QueueSize:      16,
		MaxRetries:     5,
		MaxCPUPercent:  80,
		MaxMemPercent:  80,
		MaxDiskPercent: 90,
		RetryUnit:      time.Microsecond,
	}
}

type fakeSampler struct {
	usage downloads.ResourceUsage
	err   error
}

func (f *fakeSampler) Sample(context.Context, string) (*downloads.ResourceUsage, error) {
	if f.err != nil {
		return nil, f.err
	}
	u := f.usage
	return &u, nil
}

func idleSampler() *fakeSampler {
	return &fakeSampler{usage: downloads.ResourceUsage{CPUPercent: 10, MemPercent: 20, DiskPercent: 30}}
}

type fakeExtractor struct {
	mu         sync.Mutex
	fetchCalls int
	fetchFn    func(ctx context.Context, url, query, outputDir string, onProgress downloads.ProgressFunc) (*downloads.FetchResult, error)
	probeFn    func(ctx context.Context, url string) (*downloads.ProbeResult, error)
}

func (f *fakeExtractor) Probe(ctx context.Context, url string) (*downloads.ProbeResult, error) {
	if f.probeFn != nil {
		return f.probeFn(ctx, url)
	}
	return &downloads.ProbeResult{Title: "probe"}, nil
}

func (f *fakeExtractor) Fetch(ctx context.Context, url, query, outputDir string, onProgress downloads.ProgressFunc) (*downloads.FetchResult, error) {
	f.mu.Lock()
	f.fetchCalls++
	f.mu.Unlock()
	return f.fetchFn(ctx, url, query, outputDir, onProgress)
}

func (f *fakeExtractor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

type transcodeCall struct {
	input   string
	output  string
	format  models.MediaFormat
	quality models.Quality
}

type fakeTranscoder struct {
	mu    sync.Mutex
	err   error
	calls []transcodeCall
}

func (f *fakeTranscoder) Transcode(_ context.Context, inputPath, outputPath string, format models.MediaFormat, quality models.Quality) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, transcodeCall{input: inputPath, output: outputPath, format: format, quality: quality})
	return f.err
}

func (f *fakeTranscoder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// stateTrace records every job state written through Update, in order.
type stateTrace struct {
	downloads.Registry
	mu     sync.Mutex
	states []models.JobState
}

func (r *stateTrace) Update(id string, fn func(*models.Job)) error {
	return r.Registry.Update(id, func(j *models.Job) {
		fn(j)
		r.mu.Lock()
		r.states = append(r.states, j.State)
		r.mu.Unlock()
	})
}

func (r *stateTrace) trace() []models.JobState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.JobState(nil), r.states...)
}

type testEnv struct {
	cfg        *config.DownloadsConfig
	registry   downloads.Registry
	extractor  *fakeExtractor
	transcoder *fakeTranscoder
	sampler    *fakeSampler
	runner     *Runner
}

func newTestEnv(t *testing.T, extractor *fakeExtractor) *testEnv {
	t.Helper()
	cfg := testConfig(t)
	reg := repository.NewMemoryRegistry()
	transcoder := &fakeTranscoder{}
	sampler := idleSampler()
	log := testLogger()
	gate := NewResourceGate(cfg, sampler, reg, log)
	retry := NewRetryPolicy(cfg.MaxRetries, cfg.RetryUnit)
	runner := NewRunner(cfg, reg, extractor, transcoder, gate, retry, log)
	return &testEnv{
		cfg:        cfg,
		registry:   reg,
		extractor:  extractor,
		transcoder: transcoder,
		sampler:    sampler,
		runner:     runner,
	}
}

func (e *testEnv) addJob(t *testing.T, job *models.Job) {
	t.Helper()
	if job.State == "" {
		job.State = models.StatePending
	}
	if err := e.registry.Create(job); err != nil {
		t.Fatalf("create job: %v", err)
	}
}

// waitForState polls until the job reaches the wanted state or the deadline
// passes.
func waitForState(t *testing.T, reg downloads.Registry, id string, want models.JobState) *models.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := reg.Get(id)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.State == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := reg.Get(id)
	t.Fatalf("job %s never reached %s, stuck at %s", id, want, job.State)
	return nil
}
