// Package hardware computes CPU/RAM-scaled concurrency limits for the
// pipeline's worker pools, per spec.md §4.7.
package hardware

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Profile holds the concurrency limits the rest of the pipeline reads.
// Fields are fixed at construction time ("static-at-startup" per §4.7).
type Profile struct {
	HashWorkers        int
	CopyWorkers        int
	CopyWorkersNetwork int

	LogicalCPUs  int
	TotalMemMB   uint64
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Detect reads the host's CPU count and RAM via gopsutil and derives worker
// pool sizes. Failures reading hardware info fall back to a conservative
// single-core profile rather than failing the import.
func Detect() Profile {
	cpuCount, err := cpu.Counts(true)
	if err != nil || cpuCount <= 0 {
		cpuCount = 1
	}

	var totalMB uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		totalMB = vm.Total / (1024 * 1024)
	}

	return buildProfile(cpuCount, totalMB)
}

// Static builds a Profile from explicit values, bypassing hardware
// detection. Used by the CLI's --hash-workers/--copy-workers/
// --copy-workers-network overrides and by tests that need
// deterministic concurrency.
func Static(hashWorkers, copyWorkers, copyWorkersNetwork int) Profile {
	return Profile{
		HashWorkers:        hashWorkers,
		CopyWorkers:        copyWorkers,
		CopyWorkersNetwork: copyWorkersNetwork,
	}
}

func buildProfile(cpuCount int, totalMB uint64) Profile {
	hashWorkers := clamp(cpuCount, 2, 16)

	// RAM-constrained hosts (< 4GB) get a smaller copy pool regardless of
	// CPU count: each in-flight copy holds a 1MB-64KiB buffer plus OS page
	// cache pressure, and low-memory machines are usually also the ones on
	// spinning disks where high parallelism doesn't help anyway.
	copyWorkers := clamp(cpuCount/2, 2, 22)
	if totalMB > 0 && totalMB < 4096 {
		copyWorkers = clamp(copyWorkers, 1, 4)
	}

	return Profile{
		HashWorkers:        hashWorkers,
		CopyWorkers:        copyWorkers,
		CopyWorkersNetwork: 1,
		LogicalCPUs:        cpuCount,
		TotalMemMB:         totalMB,
	}
}
