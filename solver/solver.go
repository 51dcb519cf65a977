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

// Package solver implements a multivariate Newton-Raphson solver for square
// systems of nonlinear equations with an analytic Jacobian.
//
// Numerical failure is not an error: a singular Jacobian, a NaN residual or
// an exhausted iteration budget yields a Solution whose Valid method reports
// false. The only errors returned by Solve are argument errors and
// progress.ErrInterrupted.
package solver

import (
	"errors"
	"fmt"
	"math"

	log "github.com/golang/glog"
	"github.com/google/reidrisk/checks"
	"github.com/google/reidrisk/progress"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultAccuracy is the residual norm at which iteration stops.
	DefaultAccuracy = 1e-9
	// DefaultMaxIterations is the default iteration budget.
	DefaultMaxIterations = 300
	// LongMaxIterations is the iteration budget used by callers that start
	// from poor initial guesses.
	LongMaxIterations = 1000
)

// System is a square system of nonlinear equations f(x) = 0.
type System interface {
	// Dim returns the number of variables and equations.
	Dim() int
	// Evaluate writes f(x) into f.
	Evaluate(x, f []float64)
	// Jacobian writes ∂fᵢ/∂xⱼ into the zeroed Dim×Dim matrix j.
	Jacobian(x []float64, j *mat.Dense)
}

// Funcs adapts a pair of functions to a System.
type Funcs struct {
	N int
	F func(x, f []float64)
	J func(x []float64, j *mat.Dense)
}

// Dim implements System.
func (fs Funcs) Dim() int { return fs.N }

// Evaluate implements System.
func (fs Funcs) Evaluate(x, f []float64) { fs.F(x, f) }

// Jacobian implements System.
func (fs Funcs) Jacobian(x []float64, j *mat.Dense) { fs.J(x, j) }

// Status describes how an iteration ended.
type Status int

// Ways in which Solve can end.
const (
	Converged Status = iota
	SingularJacobian
	ResidualNaN
	MaxIterationsExceeded
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "Converged"
	case SingularJacobian:
		return "SingularJacobian"
	case ResidualNaN:
		return "ResidualNaN"
	case MaxIterationsExceeded:
		return "MaxIterationsExceeded"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Solution is the outcome of Solve.
type Solution struct {
	// X is the root when Status is Converged. It holds NaN in every
	// component for SingularJacobian and MaxIterationsExceeded, and the
	// last (invalid) iterate for ResidualNaN.
	X []float64
	// Last is the last iterate reached, whatever the status.
	Last       []float64
	Iterations int
	Residual   float64
	Status     Status
}

// Valid reports whether the solution converged to a finite root.
func (s Solution) Valid() bool {
	if s.Status != Converged {
		return false
	}
	for _, v := range s.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Options contains the options necessary to initialize a Solver.
type Options struct {
	Accuracy      float64 // Residual norm at which iteration stops. Defaults to DefaultAccuracy.
	MaxIterations int     // Iteration budget. Defaults to DefaultMaxIterations.
}

// Solver is a Newton-Raphson solver. It holds no state between calls and may
// be shared.
type Solver struct {
	accuracy      float64
	maxIterations int
}

// New returns a Solver configured by opt.
func New(opt *Options) (*Solver, error) {
	if opt == nil {
		opt = &Options{}
	}
	accuracy := opt.Accuracy
	if accuracy == 0 {
		accuracy = DefaultAccuracy
	}
	maxIterations := opt.MaxIterations
	if maxIterations == 0 {
		maxIterations = DefaultMaxIterations
	}
	if err := checks.CheckAccuracy(accuracy); err != nil {
		return nil, fmt.Errorf("solver.New: %w", err)
	}
	if err := checks.CheckMaxIterations(maxIterations); err != nil {
		return nil, fmt.Errorf("solver.New: %w", err)
	}
	return &Solver{accuracy: accuracy, maxIterations: maxIterations}, nil
}

// Accuracy returns the configured accuracy.
func (s *Solver) Accuracy() float64 { return s.accuracy }

// MaxIterations returns the configured iteration budget.
func (s *Solver) MaxIterations() int { return s.maxIterations }

// Solve iterates x ← x - J(x)⁻¹·f(x) from initial until ‖f(x)‖₂ ≤ accuracy
// or the iteration budget is spent. p is polled for cancellation at the start
// of every iteration.
func (s *Solver) Solve(sys System, initial []float64, p progress.Phase) (Solution, error) {
	n := sys.Dim()
	if n <= 0 || len(initial) != n {
		return Solution{}, fmt.Errorf("%w: initial guess has %d components, system has %d", checks.ErrInvalidArgument, len(initial), n)
	}
	x := append([]float64(nil), initial...)
	f := make([]float64, n)
	jac := mat.NewDense(n, n, nil)
	fv := mat.NewVecDense(n, f)
	dx := mat.NewVecDense(n, nil)
	var lu mat.LU

	for it := 0; ; it++ {
		if err := p.Check(); err != nil {
			return Solution{}, err
		}
		sys.Evaluate(x, f)
		residual := floats.Norm(f, 2)
		switch {
		case math.IsNaN(residual):
			log.V(1).Infof("solver: residual became NaN after %d iterations at %v", it, x)
			return Solution{X: x, Last: x, Iterations: it, Residual: residual, Status: ResidualNaN}, nil
		case residual <= s.accuracy:
			return Solution{X: x, Last: x, Iterations: it, Residual: residual, Status: Converged}, nil
		case it >= s.maxIterations:
			log.V(1).Infof("solver: no convergence within %d iterations, residual %e", s.maxIterations, residual)
			return Solution{X: nanVector(n), Last: x, Iterations: it, Residual: residual, Status: MaxIterationsExceeded}, nil
		}

		jac.Zero()
		sys.Jacobian(x, jac)
		if hasNonFinite(jac) {
			return singular(n, x, it, residual), nil
		}
		lu.Factorize(jac)
		if det := lu.Det(); math.IsNaN(det) || det == 0 {
			return singular(n, x, it, residual), nil
		}
		if err := lu.SolveVecTo(dx, false, fv); err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) {
				return singular(n, x, it, residual), nil
			}
			// Ill-conditioned but solvable; the step may be inaccurate.
			log.V(2).Infof("solver: ill-conditioned Jacobian at iteration %d: %v", it, err)
		}
		for i := range x {
			x[i] -= dx.AtVec(i)
		}
	}
}

func singular(n int, x []float64, it int, residual float64) Solution {
	log.V(1).Infof("solver: singular Jacobian after %d iterations at %v", it, x)
	return Solution{X: nanVector(n), Last: x, Iterations: it, Residual: residual, Status: SingularJacobian}
}

func nanVector(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

func hasNonFinite(m *mat.Dense) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	}
	return false
}
