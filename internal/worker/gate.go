package worker

import (
	"context"
	"fmt"

	"github.com/mediagrab/mediagrab/internal/config"
	"github.com/mediagrab/mediagrab/internal/downloads"
	"github.com/mediagrab/mediagrab/pkg/logger"
)

// ResourceGate decides whether a new job may start consuming a worker slot.
// The check is advisory and runs once at job start; an admitted job is never
// preempted for resource reasons.
type ResourceGate struct {
	cfg      *config.DownloadsConfig
	sampler  downloads.ResourceSampler
	registry downloads.Registry
	logger   logger.Logger
}

func NewResourceGate(cfg *config.DownloadsConfig, sampler downloads.ResourceSampler, registry downloads.Registry, logger logger.Logger) *ResourceGate {
	return &ResourceGate{
		cfg:      cfg,
		sampler:  sampler,
		registry: registry,
		logger:   logger,
	}
}

// Admit returns nil when the job may start, or an AdmissionError naming the
// exhausted resource.
func (g *ResourceGate) Admit(ctx context.Context) error {
	usage, err := g.sampler.Sample(ctx, g.cfg.Dir)
	if err != nil {
		g.logger.Warnf("resource sampling failed: %v", err)
		return &downloads.AdmissionError{Reason: "resource sampling failed"}
	}
	if usage.CPUPercent > g.cfg.MaxCPUPercent {
		return &downloads.AdmissionError{Reason: fmt.Sprintf("cpu usage %.1f%% exceeds %.1f%%", usage.CPUPercent, g.cfg.MaxCPUPercent)}
	}
	if usage.MemPercent > g.cfg.MaxMemPercent {
		return &downloads.AdmissionError{Reason: fmt.Sprintf("memory usage %.1f%% exceeds %.1f%%", usage.MemPercent, g.cfg.MaxMemPercent)}
	}
	if usage.DiskPercent > g.cfg.MaxDiskPercent {
		return &downloads.AdmissionError{Reason: fmt.Sprintf("disk usage %.1f%% exceeds %.1f%%", usage.DiskPercent, g.cfg.MaxDiskPercent)}
	}
	if active := g.registry.ActiveCount(); active >= g.cfg.MaxConcurrent {
		return &downloads.AdmissionError{Reason: fmt.Sprintf("%d downloads already running", active)}
	}
	return nil
}
