package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mediagrab/mediagrab/internal/config"
	"github.com/mediagrab/mediagrab/internal/downloads"
	"github.com/mediagrab/mediagrab/internal/models"
	"github.com/mediagrab/mediagrab/pkg/logger"
	"github.com/mediagrab/mediagrab/pkg/utils"
)

// errInterrupted marks an execution cut short by a cancel or pause signal;
// the caller settles the job state from the control flags.
var errInterrupted = errors.New("interrupted")

// Runner drives one job through admission, fetch with retry, optional
// transcode and a terminal (or Paused) registry write. Run always settles
// the job before returning, including on executor panics.
type Runner struct {
	cfg        *config.DownloadsConfig
	registry   downloads.Registry
	extractor  downloads.Extractor
	transcoder downloads.Transcoder
	gate       *ResourceGate
	retry      *RetryPolicy
	logger     logger.Logger
}

func NewRunner(
	cfg *config.DownloadsConfig,
	registry downloads.Registry,
	extractor downloads.Extractor,
	transcoder downloads.Transcoder,
	gate *ResourceGate,
	retry *RetryPolicy,
	logger logger.Logger,
) *Runner {
	return &Runner{
		cfg:        cfg,
		registry:   registry,
		extractor:  extractor,
		transcoder: transcoder,
		gate:       gate,
		retry:      retry,
		logger:     logger,
	}
}

// Run executes the job with the given id until it reaches a terminal or
// Paused state.
func (r *Runner) Run(ctx context.Context, id string) {
	job, err := r.registry.Get(id)
	if err != nil {
		r.logger.Errorf("runner: %v", err)
		return
	}
	ctrl, ok := r.registry.Control(id)
	if !ok {
		return
	}

	defer r.ensureSettled(id)

	// signals may have arrived while the job sat in the queue
	if r.settleSignal(id, ctrl) {
		return
	}
	if job.State != models.StatePending {
		return
	}

	if err := r.gate.Admit(ctx); err != nil {
		r.logger.Warnf("job %s rejected at admission: %v", id, err)
		r.setTerminal(id, models.StateNoResources, err.Error())
		return
	}

	query, err := ResolveQuery(job.Format, job.Quality)
	if err != nil {
		r.setTerminal(id, models.StateFailed, err.Error())
		return
	}

	jctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ctrl.Bind(cancel)
	defer ctrl.Unbind()

	_ = r.registry.Update(id, func(j *models.Job) {
		j.State = models.StateDownloading
	})

	if job.IsPlaylist && len(job.Items) > 0 {
		r.runPlaylist(jctx, ctrl, job, query)
		return
	}
	r.runSingle(jctx, ctrl, job, query)
}

func (r *Runner) runSingle(ctx context.Context, ctrl *downloads.JobControl, job *models.Job, query string) {
	id := job.ID
	res, err := r.fetchWithRetry(ctx, id, job.URL, query, -1)
	if err == nil {
		// checkpoint before starting transcode
		if r.settleSignal(id, ctrl) {
			return
		}
		var path string
		path, err = r.finishFile(ctx, id, job.Format, job.Quality, res)
		if err == nil {
			_ = r.registry.Update(id, func(j *models.Job) {
				j.State = models.StateCompleted
				j.Progress = 100
				j.OutputPath = path
				j.Title = utils.BaseTitle(path)
			})
			r.logger.Infof("job %s completed: %s", id, path)
			return
		}
	}
	if errors.Is(err, errInterrupted) || ctx.Err() != nil {
		r.settleInterrupt(id, ctrl)
		return
	}
	r.logger.Errorf("job %s failed: %v", id, err)
	r.setTerminal(id, models.StateFailed, err.Error())
}

// runPlaylist applies the single-item lifecycle to every entry. An item
// failure records the error on the item and the aggregate but does not stop
// the remaining entries; the aggregate fails only when every item failed.
func (r *Runner) runPlaylist(ctx context.Context, ctrl *downloads.JobControl, job *models.Job, query string) {
	id := job.ID
	failures := 0
	for i := range job.Items {
		// checkpoint between items
		if r.settleSignal(id, ctrl) {
			return
		}
		// resumed jobs keep what they already finished
		if job.Items[i].Status == models.ItemCompleted {
			continue
		}
		_ = r.registry.Update(id, func(j *models.Job) {
			j.State = models.StateDownloading
			j.Progress = 0
			j.Items[i].Status = models.ItemDownloading
		})

		res, err := r.fetchWithRetry(ctx, id, job.Items[i].URL, query, i)
		if err == nil {
			_, err = r.finishFile(ctx, id, job.Format, job.Quality, res)
		}
		if errors.Is(err, errInterrupted) || ctx.Err() != nil {
			r.settleInterrupt(id, ctrl)
			return
		}
		if err != nil {
			failures++
			r.logger.Warnf("job %s: item %d failed: %v", id, i, err)
		}
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		_ = r.registry.Update(id, func(j *models.Job) {
			it := &j.Items[i]
			if msg != "" {
				it.Status = models.ItemError
				it.Error = msg
				j.Error = msg
			} else {
				it.Status = models.ItemCompleted
				it.Progress = 100
			}
			j.CurrentItem = i + 1
		})
	}

	if failures == len(job.Items) {
		_ = r.registry.Update(id, func(j *models.Job) {
			j.State = models.StateFailed
		})
		return
	}
	_ = r.registry.Update(id, func(j *models.Job) {
		j.State = models.StateCompleted
		j.Progress = 100
	})
}

// fetchWithRetry performs up to MaxAttempts fetches, waiting out the retry
// policy between transient failures. It writes no terminal state; callers
// settle the job from the returned error.
func (r *Runner) fetchWithRetry(ctx context.Context, id, url, query string, itemIdx int) (*downloads.FetchResult, error) {
	for attempt := 0; ; attempt++ {
		_ = r.registry.Update(id, func(j *models.Job) {
			j.Attempts = attempt + 1
		})
		res, err := r.fetchOnce(ctx, id, url, query, itemIdx)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, errInterrupted
		}
		if !downloads.IsTransient(err) {
			return nil, err
		}
		if !r.retry.ShouldRetry(attempt) {
			return nil, err
		}
		delay := r.retry.NextDelay(attempt)
		r.logger.Infof("job %s: transient fetch error, retrying in %s: %v", id, delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, errInterrupted
		}
	}
}

func (r *Runner) fetchOnce(ctx context.Context, id, url, query string, itemIdx int) (*downloads.FetchResult, error) {
	onProgress := func(downloaded, total int64, filename string) {
		pct := 0.0
		if total > 0 {
			pct = float64(downloaded) / float64(total) * 100
			if pct > 100 {
				pct = 100
			}
		}
		title := ""
		if filename != "" {
			title = utils.BaseTitle(filename)
		}
		_ = r.registry.Update(id, func(j *models.Job) {
			if j.State != models.StateDownloading {
				return
			}
			if title != "" {
				j.Title = title
			}
			if itemIdx >= 0 && itemIdx < len(j.Items) {
				it := &j.Items[itemIdx]
				if title != "" {
					it.Title = title
				}
				if pct > it.Progress {
					it.Progress = pct
				}
				j.Progress = it.Progress
				return
			}
			if pct > j.Progress {
				j.Progress = pct
			}
		})
	}
	return r.extractor.Fetch(ctx, url, query, r.cfg.Dir, onProgress)
}

// finishFile transcodes the fetched file when its container differs from the
// requested format, removing the original on success. The fetched path is
// returned unchanged when no conversion is needed. The job is left in
// Transcoding; the caller writes the next state (Completed for singles, the
// next item's Downloading for playlists) so readers never see a backwards
// transition.
func (r *Runner) finishFile(ctx context.Context, id string, format models.MediaFormat, quality models.Quality, res *downloads.FetchResult) (string, error) {
	ext := strings.TrimPrefix(res.Ext, ".")
	if ext == "" {
		ext = strings.TrimPrefix(filepath.Ext(res.Path), ".")
	}
	if ext == string(format) {
		return res.Path, nil
	}

	target := utils.UniquePath(strings.TrimSuffix(res.Path, filepath.Ext(res.Path)) + "." + string(format))
	_ = r.registry.Update(id, func(j *models.Job) {
		if j.State == models.StateDownloading {
			j.State = models.StateTranscoding
		}
	})
	if err := r.transcoder.Transcode(ctx, res.Path, target, format, quality); err != nil {
		return "", errors.Wrap(err, "transcode failed")
	}
	if err := os.Remove(res.Path); err != nil {
		r.logger.Warnf("job %s: could not remove original %s: %v", id, res.Path, err)
	}
	return target, nil
}

// settleSignal handles a pending cancel or pause flag at a checkpoint.
func (r *Runner) settleSignal(id string, ctrl *downloads.JobControl) bool {
	switch {
	case ctrl.CancelRequested():
		r.setTerminal(id, models.StateCancelled, "")
		return true
	case ctrl.PauseRequested():
		_ = r.registry.Update(id, func(j *models.Job) {
			j.State = models.StatePaused
		})
		return true
	}
	return false
}

// settleInterrupt resolves an interrupted engine call into Paused or
// Cancelled. Shutdown cancellation lands on Cancelled as well.
func (r *Runner) settleInterrupt(id string, ctrl *downloads.JobControl) {
	if ctrl.PauseRequested() && !ctrl.CancelRequested() {
		_ = r.registry.Update(id, func(j *models.Job) {
			j.State = models.StatePaused
		})
		return
	}
	r.setTerminal(id, models.StateCancelled, "")
}

func (r *Runner) setTerminal(id string, state models.JobState, errMsg string) {
	_ = r.registry.Update(id, func(j *models.Job) {
		j.State = state
		if errMsg != "" {
			j.Error = errMsg
		}
		if state == models.StateCompleted {
			j.Progress = 100
		}
	})
}

// ensureSettled is the scoped completion guarantee: whatever happened inside
// Run, the job never stays in an active state once the worker exits.
func (r *Runner) ensureSettled(id string) {
	if rec := recover(); rec != nil {
		r.logger.Errorf("job %s: recovered panic: %v", id, rec)
		r.setTerminal(id, models.StateFailed, fmt.Sprintf("unexpected error: %v", rec))
		return
	}
	job, err := r.registry.Get(id)
	if err != nil {
		return
	}
	if job.State.IsActive() {
		r.setTerminal(id, models.StateFailed, "worker exited without completing the job")
	}
}
