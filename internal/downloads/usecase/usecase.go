package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mediagrab/mediagrab/internal/config"
	"github.com/mediagrab/mediagrab/internal/downloads"
	"github.com/mediagrab/mediagrab/internal/models"
	"github.com/mediagrab/mediagrab/pkg/logger"
	"github.com/mediagrab/mediagrab/pkg/utils"
)

// downloadsUC is the dispatcher: it admits requests into the registry and
// hands them to the worker pool. Submission never waits on the resource
// gate; that check happens inside the runner when a worker picks the job up.
type downloadsUC struct {
	cfg       *config.Config
	registry  downloads.Registry
	extractor downloads.Extractor
	scheduler downloads.Scheduler
	logger    logger.Logger
}

func NewDownloadsUseCase(
	cfg *config.Config,
	registry downloads.Registry,
	extractor downloads.Extractor,
	scheduler downloads.Scheduler,
	logger logger.Logger,
) downloads.UseCase {
	return &downloadsUC{
		cfg:       cfg,
		registry:  registry,
		extractor: extractor,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Submit validates the request, inspects the source once and schedules the
// job, returning a fresh id immediately.
func (d *downloadsUC) Submit(ctx context.Context, input *models.DownloadInput) (string, error) {
	input.Normalize()
	if err := utils.ValidateStruct(ctx, input); err != nil {
		d.logger.Errorf("Submit - ValidateStruct: %v", err)
		return "", &downloads.RequestError{Err: errors.Wrap(err, "invalid request")}
	}

	probe, err := d.extractor.Probe(ctx, input.URL)
	if err != nil {
		d.logger.Errorf("Submit - Probe %s: %v", input.URL, err)
		return "", err
	}
	if probe.IsPlaylist && !input.IsPlaylist {
		return "", downloads.ErrPlaylistMismatch
	}

	job := &models.Job{
		ID:         uuid.New().String(),
		URL:        input.URL,
		Format:     input.Format,
		Quality:    input.Quality,
		IsPlaylist: input.IsPlaylist && probe.IsPlaylist,
		State:      models.StatePending,
		Title:      probe.Title,
		CreatedAt:  time.Now(),
	}
	if job.IsPlaylist {
		job.TotalItems = len(probe.Entries)
		job.Items = make([]models.PlaylistItem, 0, len(probe.Entries))
		for _, entry := range probe.Entries {
			job.Items = append(job.Items, models.PlaylistItem{
				Title:  entry.Title,
				Status: models.ItemPending,
				URL:    entry.URL,
			})
		}
	}

	if err := d.registry.Create(job); err != nil {
		d.logger.Errorf("Submit - Create: %v", err)
		return "", err
	}
	d.scheduler.Enqueue(job.ID)
	d.logger.Infof("job %s submitted: %s (%s/%s, playlist=%t)", job.ID, job.URL, job.Format, job.Quality, job.IsPlaylist)
	return job.ID, nil
}

func (d *downloadsUC) Status(ctx context.Context, id string) (*models.StatusResponse, error) {
	job, err := d.registry.Get(id)
	if err != nil {
		return nil, err
	}
	status := string(job.State)
	if job.State == models.StateFailed && job.Error != "" {
		status = job.Error
	}
	return &models.StatusResponse{
		State:  job.State,
		Status: status,
	}, nil
}

func (d *downloadsUC) List(ctx context.Context) []*models.Job {
	jobs := d.registry.List()
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

// Pause signals the running job; the runner acts on it at the next
// checkpoint, so the state may briefly remain Downloading after Pause
// returns.
func (d *downloadsUC) Pause(ctx context.Context, id string) error {
	ctrl, ok := d.registry.Control(id)
	if !ok {
		return downloads.ErrUnknownJob
	}
	ctrl.RequestPause()
	d.logger.Infof("job %s pause requested", id)
	return nil
}

// Resume re-admits a paused job with its original, retained configuration.
// The pause flag is cleared only once the job is confirmed Paused, inside a
// single registry update, so a resume racing the runner's own settling
// cannot strip the flag from an interrupt still in flight.
func (d *downloadsUC) Resume(ctx context.Context, id string) error {
	ctrl, ok := d.registry.Control(id)
	if !ok {
		return downloads.ErrUnknownJob
	}
	resumed := false
	if err := d.registry.Update(id, func(j *models.Job) {
		if j.State != models.StatePaused {
			return
		}
		ctrl.ClearPause()
		j.State = models.StatePending
		j.Attempts = 0
		resumed = true
	}); err != nil {
		return downloads.ErrUnknownJob
	}
	if !resumed {
		return nil
	}
	d.scheduler.Enqueue(id)
	d.logger.Infof("job %s resumed", id)
	return nil
}

func (d *downloadsUC) Cancel(ctx context.Context, id string) error {
	ctrl, ok := d.registry.Control(id)
	if !ok {
		return downloads.ErrUnknownJob
	}
	ctrl.RequestCancel()
	d.logger.Infof("job %s cancel requested", id)
	return nil
}
