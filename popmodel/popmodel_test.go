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
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/reidrisk/checks"
	"github.com/google/reidrisk/eqclass"
	"github.com/google/reidrisk/progress"
	"github.com/google/reidrisk/rand"
	"github.com/google/reidrisk/solver"
	"gonum.org/v1/gonum/mat"
)

func mustHistogram(t *testing.T, classes ...eqclass.Class) *eqclass.Histogram {
	t.Helper()
	h, err := eqclass.NewHistogram(classes)
	if err != nil {
		t.Fatalf("NewHistogram(%v): %v", classes, err)
	}
	return h
}

func mustModel(t *testing.T, h *eqclass.Histogram, f float64) PopulationModel {
	t.Helper()
	pm, err := NewPopulationModel(int64(h.NumRecords()), f)
	if err != nil {
		t.Fatalf("NewPopulationModel(%d, %f): %v", h.NumRecords(), f, err)
	}
	return pm
}

func mustEstimator(t *testing.T, opt *Options) *estimator {
	t.Helper()
	e, err := newEstimator(opt)
	if err != nil {
		t.Fatalf("newEstimator(%+v): %v", opt, err)
	}
	return e
}

// skewed is a sample with a heavy tail of small classes.
var skewed = []eqclass.Class{{Size: 1, Count: 120}, {Size: 2, Count: 40}, {Size: 3, Count: 18}, {Size: 4, Count: 9}, {Size: 5, Count: 5}, {Size: 7, Count: 3}, {Size: 10, Count: 2}, {Size: 25, Count: 1}}

func TestPopulationModel(t *testing.T) {
	for _, tc := range []struct {
		desc       string
		sampleSize int64
		fraction   float64
		wantPop    int64
		wantErr    error
	}{
		{"tenth", 100, 0.1, 1000, nil},
		{"rounded", 3, 0.7, 4, nil},
		{"whole population", 42, 1, 42, nil},
		{"zero fraction", 10, 0, 0, checks.ErrInvalidArgument},
		{"fraction above one", 10, 1.5, 0, checks.ErrInvalidArgument},
		{"NaN fraction", 10, math.NaN(), 0, checks.ErrInvalidArgument},
		{"empty sample", 0, 0.5, 0, checks.ErrPreconditionViolated},
		{"population beyond int64", 10, 1e-300, 0, checks.ErrInvalidArgument},
	} {
		pm, err := NewPopulationModel(tc.sampleSize, tc.fraction)
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("NewPopulationModel: when %s got error %v, want %v", tc.desc, err, tc.wantErr)
			continue
		}
		if err == nil && pm.PopulationSize() != tc.wantPop {
			t.Errorf("PopulationSize: when %s got %d, want %d", tc.desc, pm.PopulationSize(), tc.wantPop)
		}
	}
}

func TestFromPopulationSize(t *testing.T) {
	pm, err := FromPopulationSize(250, 1000)
	if err != nil {
		t.Fatalf("FromPopulationSize: %v", err)
	}
	if pm.SamplingFraction() != 0.25 || pm.PopulationSize() != 1000 || pm.SampleSize() != 250 {
		t.Errorf("FromPopulationSize(250, 1000): got %v", pm)
	}
	if _, err := FromPopulationSize(10, 5); !errors.Is(err, checks.ErrInvalidArgument) {
		t.Errorf("FromPopulationSize(10, 5): got %v, want %v", err, checks.ErrInvalidArgument)
	}
}

func TestFromRegion(t *testing.T) {
	pm, err := FromRegion(1000, Germany)
	if err != nil {
		t.Fatalf("FromRegion: %v", err)
	}
	if want, _ := PopulationOf(Germany); pm.PopulationSize() != want {
		t.Errorf("FromRegion(Germany): got population %d, want %d", pm.PopulationSize(), want)
	}
	if _, err := FromRegion(1000, Region("Atlantis")); !errors.Is(err, checks.ErrInvalidArgument) {
		t.Errorf("FromRegion(Atlantis): got %v, want %v", err, checks.ErrInvalidArgument)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{Pitman, Zayatz, SNB, Dankar} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q): got (%v, %v), want %v", k.String(), got, err, k)
		}
	}
	if _, err := ParseKind("Poisson"); !errors.Is(err, checks.ErrInvalidArgument) {
		t.Errorf("ParseKind(Poisson): got %v, want %v", err, checks.ErrInvalidArgument)
	}
}

func TestIsValid(t *testing.T) {
	for _, tc := range []struct {
		x    float64
		want bool
	}{
		{math.NaN(), false},
		{0, false},
		{1e-300, true},
		{-1, true},
		{12.5, true},
		{math.Inf(1), true},
	} {
		if got := IsValid(tc.x); got != tc.want {
			t.Errorf("IsValid(%v): got %t, want %t", tc.x, got, tc.want)
		}
	}
}

func TestEstimateRequiresSampleUniques(t *testing.T) {
	h := mustHistogram(t, eqclass.Class{Size: 2, Count: 3}, eqclass.Class{Size: 5, Count: 1})
	pm := mustModel(t, h, 0.05)
	for _, k := range []Kind{Pitman, Zayatz, SNB, Dankar} {
		if _, err := Estimate(k, h, pm, progress.Phase{}, nil); !errors.Is(err, checks.ErrPreconditionViolated) {
			t.Errorf("Estimate(%v) without sample uniques: got %v, want %v", k, err, checks.ErrPreconditionViolated)
		}
	}
}

func TestModelsShortCircuitWithoutSampleUniques(t *testing.T) {
	h := mustHistogram(t, eqclass.Class{Size: 2, Count: 3}, eqclass.Class{Size: 5, Count: 1})
	s := newSampleStats(h)
	e := mustEstimator(t, nil)
	// A cancelled monitor makes any solver call or scan fail, so a nil error
	// shows that nothing was attempted.
	m := progress.NewMonitor()
	m.Cancel()
	for _, f := range []float64{0.05, 0.5} {
		pm := mustModel(t, h, f)
		for _, tc := range []struct {
			kind Kind
			fn   func(sampleStats, PopulationModel, progress.Phase) (UniquenessEstimate, error)
		}{
			{Pitman, e.estimatePitman},
			{Zayatz, e.estimateZayatz},
			{SNB, e.estimateSNB},
			{Dankar, e.estimateDankar},
		} {
			est, err := tc.fn(s, pm, m.Phase(0, 100))
			if err != nil || est.Value != 0 {
				t.Errorf("%v with f=%g and no sample uniques: got (%v, %v), want (0, nil)", tc.kind, f, est.Value, err)
			}
		}
	}
}

func TestAllUniqueUsesZayatz(t *testing.T) {
	h := mustHistogram(t, eqclass.Class{Size: 1, Count: 100})
	for _, f := range []float64{0.01, 0.1, 0.5} {
		pm := mustModel(t, h, f)
		est, err := Estimate(Dankar, h, pm, progress.Phase{}, nil)
		if err != nil {
			t.Fatalf("Estimate(Dankar): %v", err)
		}
		if est.Kind != Dankar || est.Source != Zayatz {
			t.Errorf("Estimate(Dankar) with f=%g on an all-unique sample: got %v from %v, want Dankar from Zayatz", f, est.Kind, est.Source)
		}
		// Every sample unique is a population unique under Zayatz.
		if want := 100 / f; !cmp.Equal(est.Value, want, cmpopts.EquateApprox(1e-9, 0)) {
			t.Errorf("Estimate(Dankar) with f=%g: got %v, want %v", f, est.Value, want)
		}
	}
}

func TestProbabilityOfOne(t *testing.T) {
	for _, tc := range []struct {
		N, k, n int64
		want    float64
	}{
		{1000, 1, 100, 0.1},
		{10, 2, 5, 5.0 / 9},
		{10, 10, 5, 0},
		{10, 3, 10, 0},
		{10, 11, 5, 0},
		{50, 0, 5, 0},
	} {
		if got := probabilityOfOne(tc.N, tc.k, tc.n); !cmp.Equal(got, tc.want, cmpopts.EquateApprox(1e-12, 1e-15)) {
			t.Errorf("probabilityOfOne(%d, %d, %d): got %v, want %v", tc.N, tc.k, tc.n, got, tc.want)
		}
	}
}

func TestZayatz(t *testing.T) {
	h := mustHistogram(t, eqclass.Class{Size: 1, Count: 3}, eqclass.Class{Size: 2, Count: 1})
	pm := mustModel(t, h, 0.5)
	est, err := Estimate(Zayatz, h, pm, progress.Phase{}, nil)
	if err != nil {
		t.Fatalf("Estimate(Zayatz): %v", err)
	}
	// P(unique | sample unique) = (3/4·1/2) / (3/4·1/2 + 1/4·5/9) = 27/37.
	if want := 3 * 27.0 / 37 / 0.5; !cmp.Equal(est.Value, want, cmpopts.EquateApprox(1e-12, 0)) {
		t.Errorf("Estimate(Zayatz): got %v, want %v", est.Value, want)
	}
}

func TestPitmanUniques(t *testing.T) {
	// Γ(2)/Γ(1.5)·100^0.5 = 10/Γ(1.5).
	if got, want := pitmanUniques(1, 0.5, 100), 10/math.Gamma(1.5); !cmp.Equal(got, want, cmpopts.EquateApprox(1e-12, 0)) {
		t.Errorf("pitmanUniques(1, 0.5, 100): got %v, want %v", got, want)
	}
	if got := pitmanUniques(1, 0, 100); !math.IsNaN(got) {
		t.Errorf("pitmanUniques with α = 0: got %v, want NaN", got)
	}
}

func TestPitmanInitialGuessIsInDomain(t *testing.T) {
	for _, classes := range [][]eqclass.Class{
		skewed,
		{{Size: 1, Count: 10}},
		{{Size: 1, Count: 1}, {Size: 40, Count: 3}},
		{{Size: 1, Count: 500}, {Size: 2, Count: 1}},
	} {
		x := pitmanInitialGuess(newSampleStats(mustHistogram(t, classes...)))
		if theta, alpha := x[0], x[1]; !(alpha > 0 && alpha < 1) || !(theta > -alpha) {
			t.Errorf("pitmanInitialGuess(%v): got θ=%v, α=%v outside the parameter space", classes, theta, alpha)
		}
	}
}

// checkJacobian compares the analytic Jacobian of sys with central
// differences at x.
func checkJacobian(t *testing.T, name string, sys solver.System, x []float64) {
	t.Helper()
	n := sys.Dim()
	j := mat.NewDense(n, n, nil)
	sys.Jacobian(x, j)
	fp, fm := make([]float64, n), make([]float64, n)
	for col := 0; col < n; col++ {
		h := 1e-6 * math.Max(math.Abs(x[col]), 1e-3)
		xp := append([]float64(nil), x...)
		xm := append([]float64(nil), x...)
		xp[col] += h
		xm[col] -= h
		sys.Evaluate(xp, fp)
		sys.Evaluate(xm, fm)
		for row := 0; row < n; row++ {
			want := (fp[row] - fm[row]) / (2 * h)
			if got := j.At(row, col); !cmp.Equal(got, want, cmpopts.EquateApprox(1e-4, 1e-6)) {
				t.Errorf("%s Jacobian at %v: ∂f%d/∂x%d got %v, finite difference %v", name, x, row, col, got, want)
			}
		}
	}
}

func TestPitmanJacobian(t *testing.T) {
	sys := pitmanSystem{s: newSampleStats(mustHistogram(t, skewed...))}
	for _, x := range [][]float64{{5, 0.4}, {50, 0.2}, {0.5, 0.7}} {
		checkJacobian(t, "Pitman", sys, x)
	}
}

func TestSNBJacobian(t *testing.T) {
	s := newSampleStats(mustHistogram(t, skewed...))
	for _, f := range []float64{0.2, 0.6} {
		sys := snbSystem{k: shlosser(s, f), f: f, c1: s.c1, c2: s.c2}
		for _, x := range [][]float64{{0.5, 0.5}, {1.3, 0.2}, {0.1, 0.9}} {
			checkJacobian(t, "SNB", sys, x)
		}
	}
}

func TestShlosser(t *testing.T) {
	s := newSampleStats(mustHistogram(t, skewed...))
	if got := shlosser(s, 1); got != s.u {
		t.Errorf("shlosser with f=1: got %v, want the number of sample classes %v", got, s.u)
	}
	if small, large := shlosser(s, 0.1), shlosser(s, 0.5); !(small > large && large > s.u) {
		t.Errorf("shlosser: got K(0.1)=%v, K(0.5)=%v, want K(0.1) > K(0.5) > u=%v", small, large, s.u)
	}
}

func TestSNBIsReproducibleWithSeededRand(t *testing.T) {
	h := mustHistogram(t, skewed...)
	pm := mustModel(t, h, 0.3)
	first, err := Estimate(SNB, h, pm, progress.Phase{}, &Options{Rand: rand.Seeded(11)})
	if err != nil {
		t.Fatalf("Estimate(SNB): %v", err)
	}
	second, err := Estimate(SNB, h, pm, progress.Phase{}, &Options{Rand: rand.Seeded(11)})
	if err != nil {
		t.Fatalf("Estimate(SNB): %v", err)
	}
	if !cmp.Equal(first, second, cmpopts.EquateNaNs()) {
		t.Errorf("Estimate(SNB) with the same seed: got %v and %v", first, second)
	}
	if first.Valid() && first.Value <= 0 {
		t.Errorf("Estimate(SNB): got %v, want a positive estimate", first.Value)
	}
}

// TestModelsFitSkewedSample pins the estimates of the solver-based models on a
// sample where every fit is expected to converge.
func TestModelsFitSkewedSample(t *testing.T) {
	h := mustHistogram(t, skewed...)
	for _, tc := range []struct {
		kind       Kind
		f          float64
		lo, hi     float64
		wantSource Kind
	}{
		{Pitman, 0.01, 440, 475, Pitman},
		{Pitman, 0.1, 245, 275, Pitman},
		{SNB, 0.3, 170, 200, SNB},
		{SNB, 0.6, 125, 155, SNB},
		{Dankar, 0.01, 440, 475, Pitman},
		{Dankar, 0.1, 245, 275, Pitman},
		{Dankar, 0.6, 125, 155, SNB},
	} {
		est, err := Estimate(tc.kind, h, mustModel(t, h, tc.f), progress.Phase{}, &Options{Rand: rand.Seeded(5)})
		if err != nil {
			t.Fatalf("Estimate(%v) with f=%g: %v", tc.kind, tc.f, err)
		}
		if !est.Valid() {
			t.Errorf("Estimate(%v) with f=%g: got invalid estimate %v", tc.kind, tc.f, est.Value)
			continue
		}
		if est.Value < tc.lo || est.Value > tc.hi {
			t.Errorf("Estimate(%v) with f=%g: got %f, want within [%g, %g]", tc.kind, tc.f, est.Value, tc.lo, tc.hi)
		}
		if est.Kind != tc.kind || est.Source != tc.wantSource {
			t.Errorf("Estimate(%v) with f=%g: got kind %v from %v, want %v from %v", tc.kind, tc.f, est.Kind, est.Source, tc.kind, tc.wantSource)
		}
	}
}

// TestDankarRule recomputes the decision rule from the individual models,
// using identically seeded generators so that SNB sees the same starting
// points.
func TestDankarRule(t *testing.T) {
	h := mustHistogram(t, skewed...)
	for _, f := range []float64{0.01, 0.1, 0.2, 0.6, 0.95} {
		pm := mustModel(t, h, f)
		estimate := func(k Kind) UniquenessEstimate {
			t.Helper()
			est, err := Estimate(k, h, pm, progress.Phase{}, &Options{Rand: rand.Seeded(5)})
			if err != nil {
				t.Fatalf("Estimate(%v) with f=%g: %v", k, f, err)
			}
			return est
		}
		pitman, zayatz, snb, dankar := estimate(Pitman), estimate(Zayatz), estimate(SNB), estimate(Dankar)

		var want UniquenessEstimate
		switch {
		case f <= smallSamplingFraction && pitman.Valid():
			want = pitman
		case f <= smallSamplingFraction:
			want = zayatz
		case snb.Valid() && zayatz.Value <= snb.Value:
			want = zayatz
		case snb.Valid():
			want = snb
		case zayatz.Valid():
			want = zayatz
		default:
			want = pitman
		}
		want.Kind = Dankar
		if !cmp.Equal(dankar, want, cmpopts.EquateNaNs()) {
			t.Errorf("Estimate(Dankar) with f=%g: got %+v, want %+v (Pitman %v, Zayatz %v, SNB %v)", f, dankar, want, pitman.Value, zayatz.Value, snb.Value)
		}
	}
}

func TestEstimateCancelled(t *testing.T) {
	h := mustHistogram(t, skewed...)
	pm := mustModel(t, h, 0.3)
	for _, k := range []Kind{Pitman, Zayatz, SNB, Dankar} {
		m := progress.NewMonitor()
		m.Cancel()
		if _, err := Estimate(k, h, pm, m.Phase(0, 100), nil); !errors.Is(err, progress.ErrInterrupted) {
			t.Errorf("Estimate(%v) with cancelled monitor: got %v, want %v", k, err, progress.ErrInterrupted)
		}
	}
}

func TestEstimateReportsProgress(t *testing.T) {
	h := mustHistogram(t, skewed...)
	pm := mustModel(t, h, 0.05)
	m := progress.NewMonitor()
	if _, err := Estimate(Dankar, h, pm, m.Phase(20, 60), nil); err != nil {
		t.Fatalf("Estimate(Dankar): %v", err)
	}
	if got := m.Progress(); got != 60 {
		t.Errorf("Progress after Estimate: got %d, want 60", got)
	}
}

func TestEstimateBadOptions(t *testing.T) {
	h := mustHistogram(t, skewed...)
	pm := mustModel(t, h, 0.3)
	for _, opt := range []*Options{
		{Accuracy: -1},
		{MaxIterations: -1},
		{SNBMaxIterations: -1},
		{SNBRetries: -2},
	} {
		if _, err := Estimate(SNB, h, pm, progress.Phase{}, opt); !errors.Is(err, checks.ErrInvalidArgument) {
			t.Errorf("Estimate with %+v: got %v, want %v", opt, err, checks.ErrInvalidArgument)
		}
	}
}

func TestUniquenessFraction(t *testing.T) {
	for _, tc := range []struct {
		u    Uniqueness
		want float64
	}{
		{Uniqueness{UniquenessEstimate{Value: 25}, 1000}, 0.025},
		{Uniqueness{UniquenessEstimate{Value: 2000}, 1000}, 1},
		{Uniqueness{UniquenessEstimate{Value: 0}, 1000}, 0},
		{Uniqueness{UniquenessEstimate{Value: math.NaN()}, 1000}, math.NaN()},
	} {
		if got := tc.u.Fraction(); !cmp.Equal(got, tc.want, cmpopts.EquateNaNs()) {
			t.Errorf("Fraction of %v: got %v, want %v", tc.u, got, tc.want)
		}
	}
	h := mustHistogram(t, eqclass.Class{Size: 1, Count: 10}, eqclass.Class{Size: 3, Count: 10})
	pm := mustModel(t, h, 0.5)
	u, err := EstimateUniqueness(Zayatz, h, pm, progress.Phase{}, nil)
	if err != nil {
		t.Fatalf("EstimateUniqueness: %v", err)
	}
	if u.PopulationSize != 80 || u.Source != Zayatz {
		t.Errorf("EstimateUniqueness: got %+v, want population 80 from Zayatz", u)
	}
}
