package engine

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"

	"github.com/mediagrab/mediagrab/internal/downloads"
)

// SystemSampler reads CPU, memory and disk utilization from the host.
type SystemSampler struct{}

func NewSystemSampler() *SystemSampler {
	return &SystemSampler{}
}

func (s *SystemSampler) Sample(_ context.Context, dir string) (*downloads.ResourceUsage, error) {
	cpuPercents, err := cpu.Percent(0, false)
	if err != nil || len(cpuPercents) == 0 {
		return nil, errors.Wrap(err, "cpu sample")
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, errors.Wrap(err, "memory sample")
	}
	du, err := disk.Usage(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "disk sample for %s", dir)
	}
	return &downloads.ResourceUsage{
		CPUPercent:  cpuPercents[0],
		MemPercent:  vm.UsedPercent,
		DiskPercent: du.UsedPercent,
	}, nil
}
