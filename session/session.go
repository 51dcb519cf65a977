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

// Package session runs risk queries against one table snapshot and one set
// of quasi-identifiers.
//
// A Session builds the equivalence classes of the sample on first use and
// keeps them for its lifetime. It owns a single cancellation flag and
// progress value: Cancel (or an expired CancelAfter timer, or a watched
// context) interrupts the running query and every later one. Queries must
// not run concurrently; Cancel, Progress and Interrupted may be called from
// any goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/golang/glog"
	"github.com/google/reidrisk/attrisk"
	"github.com/google/reidrisk/checks"
	"github.com/google/reidrisk/eqclass"
	"github.com/google/reidrisk/popmodel"
	"github.com/google/reidrisk/progress"
	"github.com/google/reidrisk/samplerisk"
	"github.com/google/reidrisk/table"
	"github.com/google/uuid"
)

// InterruptedError is returned by a query that observed the cancellation
// flag. It wraps progress.ErrInterrupted.
type InterruptedError struct {
	Session string
	Query   string
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("session %s: %s interrupted", e.Session, e.Query)
}

func (e *InterruptedError) Unwrap() error { return progress.ErrInterrupted }

// Options contains the options of a Session. The zero value is usable for
// sample risks; population uniqueness needs a population described by one of
// PopulationSize, Region, SamplingFraction or a table superset, tried in this
// order.
type Options struct {
	PopulationSize   int64
	Region           popmodel.Region
	SamplingFraction float64
	// Models configures the population uniqueness models.
	Models popmodel.Options
	// Wildcard is the suppressed-value token of WildcardRisk. Defaults to
	// samplerisk.DefaultWildcard.
	Wildcard string
}

// Session answers risk queries about one table.
type Session struct {
	id      string
	table   table.Table
	qis     table.QuasiIdentifiers
	cols    []int
	opt     Options
	monitor *progress.Monitor

	sample     *eqclass.Grouping
	histogram  *eqclass.Histogram
	population *eqclass.Grouping
	popBuilt   bool
}

// New returns a session over t for the quasi-identifiers qis.
func New(t table.Table, qis table.QuasiIdentifiers, opt *Options) (*Session, error) {
	cols, err := qis.Resolve(t)
	if err != nil {
		return nil, fmt.Errorf("session.New: %w", err)
	}
	if opt == nil {
		opt = &Options{}
	}
	o := *opt
	if o.Wildcard == "" {
		o.Wildcard = samplerisk.DefaultWildcard
	}
	if o.PopulationSize < 0 {
		return nil, fmt.Errorf("session.New: %w: PopulationSize is %d", checks.ErrInvalidArgument, o.PopulationSize)
	}
	if o.SamplingFraction != 0 {
		if err := checks.CheckSamplingFraction(o.SamplingFraction); err != nil {
			return nil, fmt.Errorf("session.New: %w", err)
		}
	}
	s := &Session{
		id:      uuid.NewString(),
		table:   t,
		qis:     append(table.QuasiIdentifiers(nil), qis...),
		cols:    cols,
		opt:     o,
		monitor: progress.NewMonitor(),
	}
	log.V(1).Infof("session %s: created for %d rows, quasi-identifiers %v", s.id, t.NumRows(), s.qis)
	return s, nil
}

// ID returns the session identifier used in log lines and errors.
func (s *Session) ID() string { return s.id }

// QuasiIdentifiers returns the quasi-identifiers of the session.
func (s *Session) QuasiIdentifiers() table.QuasiIdentifiers { return s.qis }

// Cancel interrupts the running query and all later ones.
func (s *Session) Cancel() {
	log.Infof("session %s: cancelled", s.id)
	s.monitor.Cancel()
}

// CancelAfter cancels the session once d has elapsed. Stopping the returned
// timer disarms it.
func (s *Session) CancelAfter(d time.Duration) *time.Timer {
	return s.monitor.CancelAfter(d)
}

// WatchContext cancels the session when ctx is done. The returned function
// releases the watcher.
func (s *Session) WatchContext(ctx context.Context) (stop func()) {
	return s.monitor.WatchContext(ctx)
}

// Progress returns the progress of the current or last query in [0, 100].
func (s *Session) Progress() int { return s.monitor.Progress() }

// Interrupted reports whether the session was cancelled.
func (s *Session) Interrupted() bool { return s.monitor.Cancelled() }

// begin starts a top-level query.
func (s *Session) begin() progress.Phase {
	s.monitor.ResetProgress()
	return s.monitor.Phase(0, 100)
}

// end translates err into the error returned by query.
func (s *Session) end(query string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, progress.ErrInterrupted) {
		log.Infof("session %s: %s interrupted at %d%%", s.id, query, s.monitor.Progress())
		return &InterruptedError{Session: s.id, Query: query}
	}
	return fmt.Errorf("session %s: %s: %w", s.id, query, err)
}

// classes returns the cached sample grouping and histogram, building them in
// p on first use. Nothing is cached if the build is interrupted.
func (s *Session) classes(p progress.Phase) (*eqclass.Grouping, *eqclass.Histogram, error) {
	if s.histogram != nil {
		if err := p.Check(); err != nil {
			return nil, nil, err
		}
		p.Done()
		return s.sample, s.histogram, nil
	}
	g, err := eqclass.GroupRows(s.table, s.cols, p.Sub(0, 0.8), nil)
	if err != nil {
		return nil, nil, err
	}
	h, err := eqclass.FromGrouping(g, p.Sub(0.8, 1))
	if err != nil {
		return nil, nil, err
	}
	s.sample, s.histogram = g, h
	log.V(1).Infof("session %s: built histogram %v", s.id, h)
	return g, h, nil
}

// populationClasses returns the cached grouping of the table's superset, or
// nil if there is none.
func (s *Session) populationClasses(p progress.Phase) (*eqclass.Grouping, error) {
	if s.popBuilt {
		p.Done()
		return s.population, nil
	}
	super := s.table.Superset()
	if super == nil {
		s.popBuilt = true
		return nil, nil
	}
	cols, err := s.qis.Resolve(super)
	if err != nil {
		return nil, fmt.Errorf("superset: %w", err)
	}
	g, err := eqclass.GroupRows(super, cols, p, nil)
	if err != nil {
		return nil, err
	}
	s.population, s.popBuilt = g, true
	return g, nil
}

// Histogram returns the equivalence class histogram of the sample.
func (s *Session) Histogram() (*eqclass.Histogram, error) {
	_, h, err := s.classes(s.begin())
	return h, s.end("Histogram", err)
}

// SampleRisks returns the risk profile of the sample.
func (s *Session) SampleRisks() (samplerisk.Risks, error) {
	_, h, err := s.classes(s.begin())
	if err != nil {
		return samplerisk.Risks{}, s.end("SampleRisks", err)
	}
	r, err := samplerisk.NewRisks(h)
	return r, s.end("SampleRisks", err)
}

// Distribution returns the distribution of the sample records over risk
// buckets.
func (s *Session) Distribution() (samplerisk.Distribution, error) {
	_, h, err := s.classes(s.begin())
	if err != nil {
		return samplerisk.Distribution{}, s.end("Distribution", err)
	}
	return samplerisk.NewDistribution(h), nil
}

// SampleSummary returns the prosecutor, journalist and marketer risks for
// threshold. Journalist and marketer risks use the table's superset when it
// has one.
func (s *Session) SampleSummary(threshold float64) (samplerisk.Summary, error) {
	const query = "SampleSummary"
	if err := checks.CheckThreshold(threshold); err != nil {
		return samplerisk.Summary{}, s.end(query, err)
	}
	p := s.begin()
	g, _, err := s.classes(p.Sub(0, 0.4))
	if err != nil {
		return samplerisk.Summary{}, s.end(query, err)
	}
	pop, err := s.populationClasses(p.Sub(0.4, 0.7))
	if err != nil {
		return samplerisk.Summary{}, s.end(query, err)
	}
	sum, err := samplerisk.Summarize(g, pop, threshold, p.Sub(0.7, 1))
	return sum, s.end(query, err)
}

// PopulationModel returns the population model configured for the session.
func (s *Session) PopulationModel() (popmodel.PopulationModel, error) {
	_, h, err := s.classes(s.begin())
	if err != nil {
		return popmodel.PopulationModel{}, s.end("PopulationModel", err)
	}
	pm, err := s.populationModel(int64(h.NumRecords()))
	return pm, s.end("PopulationModel", err)
}

func (s *Session) populationModel(sampleSize int64) (popmodel.PopulationModel, error) {
	switch {
	case s.opt.PopulationSize > 0:
		return popmodel.FromPopulationSize(sampleSize, s.opt.PopulationSize)
	case s.opt.Region != "":
		return popmodel.FromRegion(sampleSize, s.opt.Region)
	case s.opt.SamplingFraction > 0:
		return popmodel.NewPopulationModel(sampleSize, s.opt.SamplingFraction)
	case s.table.Superset() != nil:
		return popmodel.FromPopulationSize(sampleSize, int64(s.table.Superset().NumRows()))
	}
	return popmodel.PopulationModel{}, fmt.Errorf("%w: no population size, region, sampling fraction or superset configured", checks.ErrInvalidArgument)
}

// PopulationUniqueness estimates the population uniques with the model kind.
// A sample without sample uniques is rejected with an error wrapping
// checks.ErrPreconditionViolated.
func (s *Session) PopulationUniqueness(kind popmodel.Kind) (popmodel.Uniqueness, error) {
	query := "PopulationUniqueness(" + kind.String() + ")"
	p := s.begin()
	_, h, err := s.classes(p.Sub(0, 0.3))
	if err != nil {
		return popmodel.Uniqueness{}, s.end(query, err)
	}
	pm, err := s.populationModel(int64(h.NumRecords()))
	if err != nil {
		return popmodel.Uniqueness{}, s.end(query, err)
	}
	u, err := popmodel.EstimateUniqueness(kind, h, pm, p.Sub(0.3, 1), &s.opt.Models)
	if err == nil {
		log.V(1).Infof("session %s: %s = %v from %v under %v", s.id, query, u.Value, u.Source, pm)
	}
	return u, s.end(query, err)
}

// WildcardRisk returns the risk of the sample when the session's wildcard
// matches any value. Suppressed rows are included.
func (s *Session) WildcardRisk(threshold float64) (samplerisk.WildcardSummary, error) {
	w, err := samplerisk.WildcardRisk(s.table, s.qis, s.opt.Wildcard, threshold, s.begin())
	return w, s.end("WildcardRisk", err)
}

// AttributeRisks analyzes every non-empty subset of the session's
// quasi-identifiers.
func (s *Session) AttributeRisks() (*attrisk.Result, error) {
	r, err := attrisk.Analyze(s.table, s.qis, s.begin())
	return r, s.end("AttributeRisks", err)
}
