package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/mediagrab/mediagrab/internal/config"
	"github.com/mediagrab/mediagrab/internal/downloads"
	"github.com/mediagrab/mediagrab/internal/downloads/repository"
	"github.com/mediagrab/mediagrab/internal/models"
	"github.com/mediagrab/mediagrab/pkg/logger"
)

type stubExtractor struct {
	probe    *downloads.ProbeResult
	probeErr error
}

func (s *stubExtractor) Probe(context.Context, string) (*downloads.ProbeResult, error) {
	if s.probeErr != nil {
		return nil, s.probeErr
	}
	return s.probe, nil
}

func (s *stubExtractor) Fetch(context.Context, string, string, string, downloads.ProgressFunc) (*downloads.FetchResult, error) {
	return nil, errors.New("not used")
}

type recordingScheduler struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingScheduler) Enqueue(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recordingScheduler) enqueued() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func newTestUC(extractor downloads.Extractor) (downloads.UseCase, downloads.Registry, *recordingScheduler) {
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "Development"},
		Logger: config.Logger{Level: "error", Encoding: "console"},
	}
	apiLogger := logger.NewApiLogger(cfg)
	apiLogger.InitLogger()
	registry := repository.NewMemoryRegistry()
	scheduler := &recordingScheduler{}
	uc := NewDownloadsUseCase(cfg, registry, extractor, scheduler, apiLogger)
	return uc, registry, scheduler
}

func TestSubmit_SingleReturnsIDImmediately(t *testing.T) {
	uc, registry, scheduler := newTestUC(&stubExtractor{probe: &downloads.ProbeResult{Title: "A Clip"}})

	id, err := uc.Submit(context.Background(), &models.DownloadInput{
		URL:    "https://media.example/watch?v=abc",
		Format: "mp3",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, err := registry.Get(id)
	require.NoError(t, err)
	require.Equal(t, models.StatePending, job.State)
	require.Equal(t, models.QualityHigh, job.Quality, "quality defaults to high")
	require.Equal(t, "A Clip", job.Title)
	require.False(t, job.IsPlaylist)
	require.Equal(t, []string{id}, scheduler.enqueued())
}

func TestSubmit_PlaylistBuildsItems(t *testing.T) {
	probe := &downloads.ProbeResult{
		IsPlaylist: true,
		Title:      "Mix",
		Entries: []downloads.ProbeEntry{
			{Title: "one", URL: "https://media.example/watch?v=1"},
			{Title: "two", URL: "https://media.example/watch?v=2"},
		},
	}
	uc, registry, _ := newTestUC(&stubExtractor{probe: probe})

	id, err := uc.Submit(context.Background(), &models.DownloadInput{
		URL:        "https://media.example/playlist?list=xyz",
		Format:     "mp4",
		Quality:    "medium",
		IsPlaylist: true,
	})
	require.NoError(t, err)

	job, err := registry.Get(id)
	require.NoError(t, err)
	require.True(t, job.IsPlaylist)
	require.Equal(t, 2, job.TotalItems)
	require.Len(t, job.Items, 2)
	require.Equal(t, models.ItemPending, job.Items[0].Status)
	require.Equal(t, "one", job.Items[0].Title)
}

func TestSubmit_PlaylistMismatchRejected(t *testing.T) {
	uc, _, scheduler := newTestUC(&stubExtractor{probe: &downloads.ProbeResult{IsPlaylist: true, Title: "Mix"}})

	_, err := uc.Submit(context.Background(), &models.DownloadInput{
		URL:    "https://media.example/playlist?list=xyz",
		Format: "mp3",
	})
	require.ErrorIs(t, err, downloads.ErrPlaylistMismatch)
	require.Empty(t, scheduler.enqueued())
}

func TestSubmit_InvalidInputRejected(t *testing.T) {
	uc, _, scheduler := newTestUC(&stubExtractor{probe: &downloads.ProbeResult{}})

	cases := []*models.DownloadInput{
		{URL: "", Format: "mp3"},
		{URL: "not a url", Format: "mp3"},
		{URL: "https://media.example/watch?v=abc", Format: "flac"},
		{URL: "https://media.example/watch?v=abc", Format: "mp3", Quality: "ultra"},
	}
	for _, input := range cases {
		_, err := uc.Submit(context.Background(), input)
		require.Error(t, err, "input %+v", input)
		var reqErr *downloads.RequestError
		require.ErrorAs(t, err, &reqErr, "input %+v", input)
	}
	require.Empty(t, scheduler.enqueued())
}

func TestSubmit_ProbeFailureSurfaces(t *testing.T) {
	uc, _, scheduler := newTestUC(&stubExtractor{probeErr: errors.New("Unsupported URL")})

	_, err := uc.Submit(context.Background(), &models.DownloadInput{
		URL:    "https://media.example/watch?v=abc",
		Format: "mp3",
	})
	require.Error(t, err)
	var reqErr *downloads.RequestError
	require.False(t, errors.As(err, &reqErr), "probe failures are not client errors")
	require.Empty(t, scheduler.enqueued())
}

func TestStatus_MapsFailureToErrorMessage(t *testing.T) {
	uc, registry, _ := newTestUC(&stubExtractor{probe: &downloads.ProbeResult{}})
	require.NoError(t, registry.Create(&models.Job{ID: "ok", State: models.StateDownloading}))
	require.NoError(t, registry.Create(&models.Job{ID: "bad", State: models.StateFailed, Error: "Video unavailable"}))

	status, err := uc.Status(context.Background(), "ok")
	require.NoError(t, err)
	require.Equal(t, models.StateDownloading, status.State)
	require.Equal(t, "Downloading", status.Status)

	status, err = uc.Status(context.Background(), "bad")
	require.NoError(t, err)
	require.Equal(t, "Video unavailable", status.Status)

	_, err = uc.Status(context.Background(), "nope")
	require.Error(t, err)
}

func TestList_SortedBySubmissionTime(t *testing.T) {
	uc, registry, _ := newTestUC(&stubExtractor{probe: &downloads.ProbeResult{}})
	base := time.Now()
	require.NoError(t, registry.Create(&models.Job{ID: "late", State: models.StateCompleted, CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, registry.Create(&models.Job{ID: "early", State: models.StatePending, CreatedAt: base}))

	jobs := uc.List(context.Background())
	require.Len(t, jobs, 2)
	require.Equal(t, "early", jobs[0].ID)
	require.Equal(t, "late", jobs[1].ID)
}

func TestControls_UnknownJob(t *testing.T) {
	uc, _, _ := newTestUC(&stubExtractor{probe: &downloads.ProbeResult{}})
	require.ErrorIs(t, uc.Pause(context.Background(), "nope"), downloads.ErrUnknownJob)
	require.ErrorIs(t, uc.Resume(context.Background(), "nope"), downloads.ErrUnknownJob)
	require.ErrorIs(t, uc.Cancel(context.Background(), "nope"), downloads.ErrUnknownJob)
}

func TestPauseAndCancel_SetControlFlags(t *testing.T) {
	uc, registry, _ := newTestUC(&stubExtractor{probe: &downloads.ProbeResult{}})
	require.NoError(t, registry.Create(&models.Job{ID: "d1", State: models.StateDownloading}))

	require.NoError(t, uc.Pause(context.Background(), "d1"))
	ctrl, ok := registry.Control("d1")
	require.True(t, ok)
	require.True(t, ctrl.PauseRequested())

	require.NoError(t, uc.Cancel(context.Background(), "d1"))
	require.True(t, ctrl.CancelRequested())
}

func TestResume_ReenqueuesOnlyPausedJobs(t *testing.T) {
	uc, registry, scheduler := newTestUC(&stubExtractor{probe: &downloads.ProbeResult{}})
	require.NoError(t, registry.Create(&models.Job{ID: "p1", State: models.StatePaused, Attempts: 3}))
	require.NoError(t, registry.Create(&models.Job{ID: "c1", State: models.StateCompleted}))

	require.NoError(t, uc.Resume(context.Background(), "p1"))
	job, err := registry.Get("p1")
	require.NoError(t, err)
	require.Equal(t, models.StatePending, job.State)
	require.Zero(t, job.Attempts)
	require.Equal(t, []string{"p1"}, scheduler.enqueued())

	// resuming a non-paused job is a no-op
	require.NoError(t, uc.Resume(context.Background(), "c1"))
	job, err = registry.Get("c1")
	require.NoError(t, err)
	require.Equal(t, models.StateCompleted, job.State)
	require.Equal(t, []string{"p1"}, scheduler.enqueued())
}

func TestResume_BeforePauseSettlesKeepsFlag(t *testing.T) {
	uc, registry, scheduler := newTestUC(&stubExtractor{probe: &downloads.ProbeResult{}})
	require.NoError(t, registry.Create(&models.Job{ID: "d1", State: models.StateDownloading}))

	// pause signalled but the runner has not settled the job to Paused yet
	require.NoError(t, uc.Pause(context.Background(), "d1"))
	require.NoError(t, uc.Resume(context.Background(), "d1"))

	ctrl, ok := registry.Control("d1")
	require.True(t, ok)
	require.True(t, ctrl.PauseRequested(), "resume must not clear a pause still in flight")

	job, err := registry.Get("d1")
	require.NoError(t, err)
	require.Equal(t, models.StateDownloading, job.State)
	require.Empty(t, scheduler.enqueued())
}
