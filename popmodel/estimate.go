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

package popmodel

import (
	"fmt"
	"math"

	log "github.com/golang/glog"
	"github.com/google/reidrisk/checks"
	"github.com/google/reidrisk/eqclass"
	"github.com/google/reidrisk/progress"
	"github.com/google/reidrisk/rand"
	"github.com/google/reidrisk/solver"
)

// Kind identifies a population uniqueness model.
type Kind int

// Population uniqueness models.
const (
	Pitman Kind = iota
	Zayatz
	SNB
	Dankar
)

func (k Kind) String() string {
	switch k {
	case Pitman:
		return "Pitman"
	case Zayatz:
		return "Zayatz"
	case SNB:
		return "SNB"
	case Dankar:
		return "Dankar"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{Pitman, Zayatz, SNB, Dankar} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown population model %q", checks.ErrInvalidArgument, s)
}

// IsValid reports whether x is a usable estimate. NaN marks a model that
// could not be fitted and 0 a model that produced no information; both
// trigger the fallbacks of the Dankar rule.
func IsValid(x float64) bool {
	return !math.IsNaN(x) && x != 0
}

// UniquenessEstimate is the estimated number of population uniques.
type UniquenessEstimate struct {
	// Value is NaN when the model could not be fitted.
	Value float64
	// Kind is the model that was requested.
	Kind Kind
	// Source is the model that produced Value. It differs from Kind only
	// for Dankar.
	Source Kind
}

// Valid reports whether the estimate is usable.
func (e UniquenessEstimate) Valid() bool { return IsValid(e.Value) }

const defaultSNBRetries = 10

// Options contains the options necessary to fit the population models. The
// zero value selects the defaults.
type Options struct {
	// Accuracy is the solver's residual tolerance. Defaults to
	// solver.DefaultAccuracy.
	Accuracy float64
	// MaxIterations is the solver budget for Pitman. Defaults to
	// solver.DefaultMaxIterations.
	MaxIterations int
	// SNBMaxIterations is the solver budget for each SNB attempt. SNB starts
	// from random guesses and defaults to solver.LongMaxIterations.
	SNBMaxIterations int
	// SNBRetries bounds the number of SNB attempts. Defaults to 10.
	SNBRetries int
	// Rand draws SNB starting points. Defaults to rand.Uniform.
	Rand rand.Generator
}

type estimator struct {
	pitman     *solver.Solver
	snb        *solver.Solver
	snbRetries int
	rand       rand.Generator
}

func newEstimator(opt *Options) (*estimator, error) {
	if opt == nil {
		opt = &Options{}
	}
	pitman, err := solver.New(&solver.Options{Accuracy: opt.Accuracy, MaxIterations: opt.MaxIterations})
	if err != nil {
		return nil, err
	}
	snbIterations := opt.SNBMaxIterations
	if snbIterations == 0 {
		snbIterations = solver.LongMaxIterations
	}
	snb, err := solver.New(&solver.Options{Accuracy: opt.Accuracy, MaxIterations: snbIterations})
	if err != nil {
		return nil, err
	}
	retries := opt.SNBRetries
	if retries == 0 {
		retries = defaultSNBRetries
	}
	if err := checks.CheckRetries(retries); err != nil {
		return nil, err
	}
	return &estimator{pitman: pitman, snb: snb, snbRetries: retries, rand: opt.Rand.OrDefault()}, nil
}

// Estimate returns the number of population uniques that the model kind
// infers from the sample histogram h.
//
// The histogram must contain at least one class of size one; otherwise
// Estimate returns an error wrapping checks.ErrPreconditionViolated. A model
// that cannot be fitted yields an estimate with a NaN value, not an error.
func Estimate(kind Kind, h *eqclass.Histogram, pm PopulationModel, p progress.Phase, opt *Options) (UniquenessEstimate, error) {
	if h == nil {
		return UniquenessEstimate{}, fmt.Errorf("popmodel.Estimate: %w: nil histogram", checks.ErrInvalidArgument)
	}
	if err := checks.CheckSampleUniques(h.CountOfSize(1)); err != nil {
		return UniquenessEstimate{}, fmt.Errorf("popmodel.Estimate(%v): %w", kind, err)
	}
	if int64(h.NumRecords()) != pm.SampleSize() {
		log.Warningf("popmodel: histogram holds %d records, population model assumes a sample of %d", h.NumRecords(), pm.SampleSize())
	}
	e, err := newEstimator(opt)
	if err != nil {
		return UniquenessEstimate{}, fmt.Errorf("popmodel.Estimate(%v): %w", kind, err)
	}
	stats := newSampleStats(h)
	var est UniquenessEstimate
	switch kind {
	case Pitman:
		est, err = e.estimatePitman(stats, pm, p)
	case Zayatz:
		est, err = e.estimateZayatz(stats, pm, p)
	case SNB:
		est, err = e.estimateSNB(stats, pm, p)
	case Dankar:
		est, err = e.estimateDankar(stats, pm, p)
	default:
		return UniquenessEstimate{}, fmt.Errorf("popmodel.Estimate: %w: unknown model %v", checks.ErrInvalidArgument, kind)
	}
	if err != nil {
		return UniquenessEstimate{}, err
	}
	p.Done()
	return est, nil
}

// Uniqueness is a population uniqueness estimate together with its share of
// the population.
type Uniqueness struct {
	UniquenessEstimate
	PopulationSize int64
}

// Fraction returns the estimated fraction of the population that is unique,
// or NaN if the estimate is unavailable.
func (u Uniqueness) Fraction() float64 {
	if math.IsNaN(u.Value) || u.PopulationSize <= 0 {
		return math.NaN()
	}
	return math.Min(u.Value/float64(u.PopulationSize), 1)
}

// EstimateUniqueness is Estimate with the result related to the population
// size of pm.
func EstimateUniqueness(kind Kind, h *eqclass.Histogram, pm PopulationModel, p progress.Phase, opt *Options) (Uniqueness, error) {
	est, err := Estimate(kind, h, pm, p, opt)
	if err != nil {
		return Uniqueness{}, err
	}
	return Uniqueness{UniquenessEstimate: est, PopulationSize: pm.PopulationSize()}, nil
}

// sampleStats are the histogram-derived quantities shared by all models.
type sampleStats struct {
	classes []eqclass.Class
	n       float64 // records
	u       float64 // classes
	c1, c2  float64 // classes of size one and two
}

func newSampleStats(h *eqclass.Histogram) sampleStats {
	return sampleStats{
		classes: h.Classes(),
		n:       float64(h.NumRecords()),
		u:       float64(h.NumClasses()),
		c1:      float64(h.CountOfSize(1)),
		c2:      float64(h.CountOfSize(2)),
	}
}
