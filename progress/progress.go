//
// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package progress provides the cooperative cancellation and progress
// reporting state shared by every long-running risk computation.
//
// A Monitor pairs a cancellation Token with a progress Reporter. Computations
// never block on either: they poll the token at loop boundaries and write
// progress values into the sub-range (Phase) they were handed by their caller.
// Both are safe to use from a second goroutine, e.g. a UI cancel action or a
// timer.
package progress

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrInterrupted is returned by any computation that observed a set
// cancellation token. It is a cooperative abort, not a failure: callers
// should return it unchanged (or wrapped) until it reaches the session
// boundary.
var ErrInterrupted = errors.New("computation interrupted")

// Token is a cancellation flag. The zero value is ready to use and not
// cancelled.
type Token struct {
	cancelled atomic.Bool
}

// Cancel sets the flag. It may be called from any goroutine, any number of
// times.
func (t *Token) Cancel() {
	t.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	return t.cancelled.Load()
}

// Reporter holds a progress value in [0, 100]. The stored value never
// decreases.
type Reporter struct {
	value atomic.Int32
}

// Value returns the current progress.
func (r *Reporter) Value() int {
	return int(r.value.Load())
}

// raise stores v if it is larger than the current value.
func (r *Reporter) raise(v int) {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	for {
		cur := r.value.Load()
		if int32(v) <= cur {
			return
		}
		if r.value.CompareAndSwap(cur, int32(v)) {
			return
		}
	}
}

// Monitor owns one Token/Reporter pair. A nil *Monitor is valid: it is never
// cancelled and discards progress.
type Monitor struct {
	token    Token
	reporter Reporter
}

// NewMonitor returns a Monitor that is not cancelled and at 0% progress.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Cancel sets the cancellation flag.
func (m *Monitor) Cancel() {
	if m == nil {
		return
	}
	m.token.Cancel()
}

// Cancelled reports whether the cancellation flag is set.
func (m *Monitor) Cancelled() bool {
	return m != nil && m.token.Cancelled()
}

// Check returns ErrInterrupted if the cancellation flag is set.
func (m *Monitor) Check() error {
	if m.Cancelled() {
		return ErrInterrupted
	}
	return nil
}

// Progress returns the current progress value.
func (m *Monitor) Progress() int {
	if m == nil {
		return 0
	}
	return m.reporter.Value()
}

// ResetProgress moves progress back to 0. Only the owner of m may call it,
// between two top-level computations.
func (m *Monitor) ResetProgress() {
	if m == nil {
		return
	}
	m.reporter.value.Store(0)
}

// CancelAfter sets the cancellation flag once d has elapsed. Stopping the
// returned timer before it fires disarms it.
func (m *Monitor) CancelAfter(d time.Duration) *time.Timer {
	return time.AfterFunc(d, m.Cancel)
}

// WatchContext sets the cancellation flag when ctx is done. The returned
// function releases the watcher; it must be called once the computation
// returns.
func (m *Monitor) WatchContext(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			select {
			case <-done:
			default:
				m.Cancel()
			}
		case <-done:
		}
	}()
	var stopped atomic.Bool
	return func() {
		if stopped.CompareAndSwap(false, true) {
			close(done)
		}
	}
}

// Phase returns the progress sub-range [lo, hi] of m. Values are clamped to
// [0, 100].
func (m *Monitor) Phase(lo, hi int) Phase {
	return Phase{m: m, lo: clampPercent(float64(lo)), hi: clampPercent(float64(hi))}
}

// Phase is a contiguous progress sub-range owned by one step of a
// computation. The zero Phase is never cancelled and reports nothing.
type Phase struct {
	m      *Monitor
	lo, hi float64
	silent bool
}

// Check returns ErrInterrupted if the underlying monitor was cancelled.
func (p Phase) Check() error {
	return p.m.Check()
}

// Monitor returns the monitor the phase writes to; it may be nil.
func (p Phase) Monitor() *Monitor {
	return p.m
}

// Report records that done of total work units have been processed.
func (p Phase) Report(done, total int) {
	if p.m == nil || p.silent || total <= 0 {
		return
	}
	f := float64(done) / float64(total)
	if f > 1 {
		f = 1
	}
	if f < 0 {
		f = 0
	}
	p.m.reporter.raise(int(p.lo + (p.hi-p.lo)*f))
}

// Done moves progress to the end of the phase.
func (p Phase) Done() {
	p.Report(1, 1)
}

// Sub returns the part of p between the fractions from and to, both in
// [0, 1].
func (p Phase) Sub(from, to float64) Phase {
	width := p.hi - p.lo
	return Phase{m: p.m, lo: p.lo + width*clampFraction(from), hi: p.lo + width*clampFraction(to), silent: p.silent}
}

// Silent returns a phase that still observes cancellation but no longer
// writes progress. Callers that account for progress at a coarser grain hand
// it to nested computations.
func (p Phase) Silent() Phase {
	p.silent = true
	return p
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

func clampFraction(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
