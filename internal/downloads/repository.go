package downloads

import (
	"context"
	"sync"

	"github.com/mediagrab/mediagrab/internal/models"
)

// Registry is the in-memory table of all jobs: the single source of truth
// queried by the API layer. Entries are mutated only through Update so the
// per-job single-writer rule holds; Get and List return deep copies.
type Registry interface {
	Create(job *models.Job) error
	Get(id string) (*models.Job, error)
	Update(id string, fn func(*models.Job)) error
	List() []*models.Job
	ActiveCount() int
	Control(id string) (*JobControl, bool)
}

// JobControl is the per-job signaling handle shared between the dispatcher
// and the runner. Cancel and pause are cooperative: the runner checks the
// flags at attempt boundaries and before transcode, and any in-flight engine
// call is interrupted through the bound context.
type JobControl struct {
	mu              sync.Mutex
	cancelRequested bool
	pauseRequested  bool
	cancel          context.CancelFunc
}

// Bind attaches the runner's cancel function for the current execution. If a
// signal arrived while the job was queued, it fires immediately.
func (c *JobControl) Bind(cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel = cancel
	if c.cancelRequested || c.pauseRequested {
		cancel()
	}
}

// Unbind detaches the runner's cancel function after execution ends.
func (c *JobControl) Unbind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel = nil
}

// RequestCancel flags the job for cancellation and interrupts any bound
// execution.
func (c *JobControl) RequestCancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelRequested = true
	if c.cancel != nil {
		c.cancel()
	}
}

// RequestPause flags the job for pausing and interrupts any bound execution.
func (c *JobControl) RequestPause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pauseRequested = true
	if c.cancel != nil {
		c.cancel()
	}
}

// ClearPause resets the pause flag, used when a paused job is re-admitted.
func (c *JobControl) ClearPause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pauseRequested = false
}

// CancelRequested reports whether cancellation has been requested.
func (c *JobControl) CancelRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelRequested
}

// PauseRequested reports whether a pause has been requested.
func (c *JobControl) PauseRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pauseRequested
}
