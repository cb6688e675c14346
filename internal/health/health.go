// Package health runs dependency probes for the readiness endpoints.
package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

type Result struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

type Checker interface {
	Check(ctx context.Context) Result
}

// ProbeRunner holds readiness false during the startup grace period, then
// probes every dependency concurrently with a per-check timeout.
type ProbeRunner struct {
	checkers    []Checker
	timeout     time.Duration
	gracePeriod time.Duration
	startedAt   time.Time
}

func NewProbeRunner(timeout, gracePeriod time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = time.Second
	}
	live := make([]Checker, 0, len(checkers))
	for _, c := range checkers {
		if c != nil {
			live = append(live, c)
		}
	}
	return &ProbeRunner{
		checkers:    live,
		timeout:     timeout,
		gracePeriod: gracePeriod,
		startedAt:   time.Now(),
	}
}

func (r *ProbeRunner) Ready(ctx context.Context) (bool, []Result) {
	if r == nil {
		return true, nil
	}
	if r.gracePeriod > 0 && time.Since(r.startedAt) < r.gracePeriod {
		return false, []Result{{Name: "startup_grace", Healthy: false, Error: "startup grace period active"}}
	}

	results := make([]Result, len(r.checkers))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range r.checkers {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(gctx, r.timeout)
			defer cancel()
			results[i] = c.Check(checkCtx)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		if !res.Healthy {
			return false, results
		}
	}
	return true, results
}
