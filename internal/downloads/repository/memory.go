package repository

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/mediagrab/mediagrab/internal/downloads"
	"github.com/mediagrab/mediagrab/internal/models"
)

type entry struct {
	mu   sync.Mutex
	job  *models.Job
	ctrl *downloads.JobControl
}

// memoryRegistry keeps every job in process memory. The map lock only guards
// membership; each entry carries its own mutex so one job's writer never
// contends with another's.
type memoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewMemoryRegistry() downloads.Registry {
	return &memoryRegistry{
		entries: make(map[string]*entry),
	}
}

func (r *memoryRegistry) Create(job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[job.ID]; ok {
		return errors.Errorf("duplicate job id %q", job.ID)
	}
	r.entries[job.ID] = &entry{
		job:  job.Clone(),
		ctrl: &downloads.JobControl{},
	}
	return nil
}

func (r *memoryRegistry) lookup(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

func (r *memoryRegistry) Get(id string) (*models.Job, error) {
	e, ok := r.lookup(id)
	if !ok {
		return nil, downloads.ErrUnknownJob
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job.Clone(), nil
}

func (r *memoryRegistry) Update(id string, fn func(*models.Job)) error {
	e, ok := r.lookup(id)
	if !ok {
		return downloads.ErrUnknownJob
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.job)
	return nil
}

func (r *memoryRegistry) List() []*models.Job {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	jobs := make([]*models.Job, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		jobs = append(jobs, e.job.Clone())
		e.mu.Unlock()
	}
	return jobs
}

func (r *memoryRegistry) ActiveCount() int {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	count := 0
	for _, e := range entries {
		e.mu.Lock()
		if e.job.State.IsActive() {
			count++
		}
		e.mu.Unlock()
	}
	return count
}

func (r *memoryRegistry) Control(id string) (*downloads.JobControl, bool) {
	e, ok := r.lookup(id)
	if !ok {
		return nil, false
	}
	return e.ctrl, true
}
