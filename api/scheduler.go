/*
scheduler.go - Periodic batch runs

PURPOSE:
  Optionally runs the interface on an interval, catching up from the day
  after the last processed date through yesterday. This is still batch work:
  each tick is one ordinary run with one commit.

DESIGN:
  - Background goroutine with a configurable check interval
  - Skips a tick when nothing is due or a manual run holds the lock
  - Uses the same Handler.RunRange path as POST /api/runs

USAGE:
  scheduler := NewRunScheduler(handler)
  scheduler.CheckInterval = 6 * time.Hour
  scheduler.Start()
  // ... later
  scheduler.Stop()
*/
package api

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/warp/wfm-interface/schedule"
)

// RunScheduler triggers runs periodically.
type RunScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRunScheduler creates a new scheduler.
func NewRunScheduler(handler *Handler) *RunScheduler {
	return &RunScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (rs *RunScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *RunScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RunScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	rs.CheckAndRun(ctx)

	for {
		select {
		case <-ticker.C:
			rs.CheckAndRun(ctx)
		case <-stop:
			return
		}
	}
}

// DueRange returns the range a tick would process: from the prefill start
// through yesterday. ok is false when nothing is due.
func (rs *RunScheduler) DueRange() (schedule.DateRange, bool) {
	yesterday := rs.Handler.Today().AddDays(-1)
	next := rs.Handler.prefill()
	if next.From.After(yesterday) {
		return schedule.DateRange{}, false
	}
	return schedule.DateRange{From: next.From, To: yesterday}, true
}

// CheckAndRun processes the due range, if any.
func (rs *RunScheduler) CheckAndRun(ctx context.Context) {
	rng, ok := rs.DueRange()
	if !ok {
		log.Println("[Scheduler] Nothing due")
		return
	}

	req := schedule.RunRequest{Range: rng, Overwrite: true, ResetExceptions: true}
	if cfg := rs.Handler.Config; cfg != nil {
		req.Overwrite = cfg.Run.Overwrite
		req.ResetExceptions = cfg.Run.ResetExceptions
	}

	log.Printf("[Scheduler] Running %s", rng)
	res, err := rs.Handler.RunRange(ctx, req)
	switch {
	case errors.Is(err, ErrRunInProgress):
		log.Println("[Scheduler] Run already in progress, skipping")
	case err != nil:
		log.Printf("[Scheduler] Run %s failed: %v", rng, err)
	default:
		log.Printf("[Scheduler] Run %s: %d written, %d exceptions", res.RunID, res.Written, res.ExceptionCount)
	}
}
