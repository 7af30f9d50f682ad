// Package poller implements the cooperative polling scheduler (spec.md
// §4.E): one goroutine per Readable/Drivable module, reading status at
// pollinterval/fast-poll cadence, draining writeDict each cycle.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/frappy-project/frappy-core/logging"
	"github.com/frappy-project/frappy-core/module"
	"github.com/frappy-project/frappy-core/observability"
)

// Target is the narrow module surface the poller drives.
type Target interface {
	ReadParam(pname string) (any, error)
	Get(pname string) (any, bool)
	PollOneParam(pname string)
	DrainWriteDict() map[string]any
	WriteParam(pname string, value any) (any, error)
}

// Poller runs one module's read cycle: status first (so the
// subsequent value read's busy-classification is consistent), then
// value at normal or fast cadence, then the remaining pollable
// parameters at slowinterval (spec.md §4.E ordering guarantee).
type Poller struct {
	mod    Target
	name   string
	logger logging.Logger

	pollInterval time.Duration
	slowInterval time.Duration
	slowEvery    int // fast/normal cycles between a slow sweep

	slowParams []string

	mu       sync.Mutex
	fast     bool
	fastStep time.Duration
	trigger  chan struct{}
}

// New builds a Poller for mod. slowParams are the non-value,
// non-status parameters read once per slowinterval sweep.
func New(mod Target, logger logging.Logger, pollInterval, slowInterval time.Duration, slowParams []string) *Poller {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Poller{
		mod:          mod,
		logger:       logger,
		pollInterval: pollInterval,
		slowInterval: slowInterval,
		slowEvery:    maxInt(1, int(slowInterval/pollInterval)),
		slowParams:   slowParams,
		fastStep:     pollInterval,
		trigger:      make(chan struct{}, 1),
	}
}

// SetName attaches the module name used to label poll-cycle metrics
// (empty by default, as in a bare New() for tests).
func (p *Poller) SetName(name string) { p.name = name }

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SetFastPoll flips the poller between normal and fast cadence
// (spec.md §4.E "setFastPoll(on, interval?)").
func (p *Poller) SetFastPoll(on bool, interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fast = on
	if on && interval > 0 {
		p.fastStep = interval
	}
}

// TriggerPoll wakes the poller immediately instead of waiting for the
// next scheduled tick (spec.md §4.E "triggerPoll()").
func (p *Poller) TriggerPoll() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *Poller) interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fast {
		return p.fastStep
	}
	return p.pollInterval
}

// Run drives the cycle loop until ctx is cancelled. It is meant to run
// in its own goroutine, one per module (spec.md §5 "one OS thread per
// module poller").
func (p *Poller) Run(ctx context.Context) {
	cycle := 0
	timer := time.NewTimer(p.interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.trigger:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timer.C:
		}

		p.tick(cycle)
		cycle++
		timer.Reset(p.interval())
	}
}

func (p *Poller) tick(cycle int) {
	_, span := observability.StartSpan(context.Background(), "poller.tick")
	defer span.End()
	start := time.Now()
	status := "ok"

	p.mod.PollOneParam("status")

	busy := false
	if v, ok := p.mod.Get("status"); ok {
		busy = module.IsBusy(v)
	} else {
		status = "error"
	}
	// status read precedes value read so its busy-classification is
	// consistent with the value about to be sampled (spec.md §4.E).
	p.SetFastPoll(busy, 0)
	p.mod.PollOneParam("value")

	if cycle%p.slowEvery == 0 {
		for _, pname := range p.slowParams {
			p.mod.PollOneParam(pname)
		}
	}

	observability.RecordPollCycle(p.name, status, time.Since(start).Seconds())

	for pname, value := range p.mod.DrainWriteDict() {
		if _, err := p.mod.WriteParam(pname, value); err != nil {
			p.logger.Error("deferred initial write failed", "param", pname, "err", err)
		}
	}
}
