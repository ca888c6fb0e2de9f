// Package health probes the dependencies of the pricing engine.
package health

import (
	"context"
	"time"
)

// Check is a named dependency probe.
type Check struct {
	Name    string
	Timeout time.Duration
	Ping    func(ctx context.Context) error
}

// Report is the outcome of a probe run. Status holds "ok" or the error text
// per check.
type Report struct {
	OK     bool              `json:"ok"`
	Status map[string]string `json:"status"`
}

// Prober runs checks with a default timeout.
type Prober struct {
	Checks  []Check
	Timeout time.Duration
}

func (p Prober) timeout(c Check) time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	if p.Timeout > 0 {
		return p.Timeout
	}
	return 500 * time.Millisecond
}

// Run probes every check in order. An empty prober is not ready.
func (p Prober) Run(ctx context.Context) Report {
	report := Report{OK: len(p.Checks) > 0, Status: make(map[string]string, len(p.Checks))}
	for _, c := range p.Checks {
		status := "ok"
		if c.Ping == nil {
			status = "not configured"
		} else if err := ping(ctx, p.timeout(c), c.Ping); err != nil {
			status = err.Error()
		}
		if status != "ok" {
			report.OK = false
		}
		report.Status[c.Name] = status
	}
	return report
}

func ping(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
