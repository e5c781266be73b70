// Package guard watches the process's resident memory and fail-fast exits
// over a configured ceiling, trusting the supervisor to restart the process
// with a clean slate.
package guard

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/halcyonlabs/trumpbot/internal/config"
)

const warnFraction = 0.9

// Sampler returns current resident memory in MB. Injectable for tests.
type Sampler func() (float64, error)

// ProcessRSS samples this process's resident set size.
func ProcessRSS() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, fmt.Errorf("open process: %w", err)
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("read memory info: %w", err)
	}
	return float64(mem.RSS) / 1024 / 1024, nil
}

// Guard is a threshold state machine: Normal until a sample exceeds the
// ceiling, then Terminating. Terminating is absorbing; the exit fires once.
type Guard struct {
	limitMB float64
	sample  Sampler
	exit    func(code int)
	log     *slog.Logger

	terminating atomic.Bool
}

func New(cfg config.GuardConfig, log *slog.Logger) *Guard {
	return &Guard{
		limitMB: float64(cfg.MemoryLimitMB),
		sample:  ProcessRSS,
		exit:    os.Exit,
		log:     log,
	}
}

// NewWithHooks injects the sampler and exit func, for tests.
func NewWithHooks(limitMB float64, sample Sampler, exit func(int), log *slog.Logger) *Guard {
	return &Guard{limitMB: limitMB, sample: sample, exit: exit, log: log}
}

// Check samples memory once. Run from the periodic tick and inline after
// heavy operations. Over the ceiling it terminates the process; repeated
// over-limit samples never double-fire.
func (g *Guard) Check() {
	mem, err := g.sample()
	if err != nil {
		g.log.Warn("memory sample failed", "err", err)
		return
	}

	if mem > g.limitMB {
		if g.terminating.Swap(true) {
			return
		}
		g.log.Error("memory limit exceeded, exiting for supervisor restart",
			"rss_mb", fmt.Sprintf("%.2f", mem), "limit_mb", g.limitMB)
		g.exit(1)
		return
	}

	if mem > g.limitMB*warnFraction {
		g.log.Warn("memory usage approaching limit", "rss_mb", fmt.Sprintf("%.2f", mem), "limit_mb", g.limitMB)
	}
	g.log.Debug("memory check passed", "rss_mb", fmt.Sprintf("%.2f", mem), "limit_mb", g.limitMB)
}
