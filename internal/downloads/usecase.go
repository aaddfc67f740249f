package downloads

import (
	"context"

	"github.com/mediagrab/mediagrab/internal/models"
)

// UseCase is the dispatcher surface consumed by the delivery layer.
type UseCase interface {
	Submit(ctx context.Context, input *models.DownloadInput) (string, error)
	Status(ctx context.Context, id string) (*models.StatusResponse, error)
	List(ctx context.Context) []*models.Job
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) error
}

// Scheduler hands admitted jobs to the worker pool. Enqueue must never block
// the caller.
type Scheduler interface {
	Enqueue(id string)
}
