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
	"math"

	log "github.com/golang/glog"
	"github.com/google/reidrisk/progress"
	"github.com/google/reidrisk/specfunc"
	"gonum.org/v1/gonum/mat"
)

// pitmanSystem is the gradient of the log-likelihood of the Pitman sampling
// formula in x = (θ, α):
//
//	L(θ, α) = Σ_{i<u} ln(θ + iα) - Σ_{i<n} ln(θ + i) + Σ_j c_j Σ_{i<j} ln(i - α)
type pitmanSystem struct {
	s sampleStats
}

func (pitmanSystem) Dim() int { return 2 }

func (ps pitmanSystem) Evaluate(x, f []float64) {
	theta, alpha := x[0], x[1]
	a := theta / alpha
	d := specfunc.Digamma(a+ps.s.u) - specfunc.Digamma(a+1)
	f[0] = d/alpha - (specfunc.Digamma(theta+ps.s.n) - specfunc.Digamma(theta+1))

	var sum float64
	psi1 := specfunc.Digamma(1 - alpha)
	for _, c := range ps.s.classes {
		if c.Size > 1 {
			sum += float64(c.Count) * (specfunc.Digamma(float64(c.Size)-alpha) - psi1)
		}
	}
	f[1] = (ps.s.u-1)/alpha - theta*d/(alpha*alpha) - sum
}

func (ps pitmanSystem) Jacobian(x []float64, j *mat.Dense) {
	theta, alpha := x[0], x[1]
	a := theta / alpha
	d := specfunc.Digamma(a+ps.s.u) - specfunc.Digamma(a+1)
	t := specfunc.Trigamma(a+ps.s.u) - specfunc.Trigamma(a+1)
	alpha2 := alpha * alpha
	alpha3 := alpha2 * alpha

	var sum float64
	tri1 := specfunc.Trigamma(1 - alpha)
	for _, c := range ps.s.classes {
		if c.Size > 1 {
			sum += float64(c.Count) * (specfunc.Trigamma(float64(c.Size)-alpha) - tri1)
		}
	}

	cross := -d/alpha2 - theta*t/alpha3
	j.Set(0, 0, t/alpha2-(specfunc.Trigamma(theta+ps.s.n)-specfunc.Trigamma(theta+1)))
	j.Set(0, 1, cross)
	j.Set(1, 0, cross)
	j.Set(1, 1, -(ps.s.u-1)/alpha2+2*theta*d/alpha3+theta*theta*t/(alpha2*alpha2)+sum)
}

// pitmanInitialGuess returns moment-based starting values for (θ, α).
func pitmanInitialGuess(s sampleStats) []float64 {
	n, u, c1 := s.n, s.u, s.c1
	c2 := s.c2
	if c2 == 0 {
		// Overestimate.
		c2 = 1
	}
	c := c1 * (c1 - 1) / c2
	theta := (n*u*c - c1*(n-1)*(2*u+c)) / (2*c1*u + c1*c - n*c)
	alpha := (theta*(c1-n) + (n-1)*c1) / (n * u)

	if !(alpha > 0 && alpha < 1) {
		alpha = math.Min(math.Max(c1/u, 0.01), 0.99)
	}
	if math.IsNaN(theta) || math.IsInf(theta, 0) || theta <= -alpha {
		theta = 1
	}
	return []float64{theta, alpha}
}

// pitmanUniques evaluates the expected number of population uniques of a
// Pitman model: Γ(θ+1)/Γ(θ+α)·N^α.
func pitmanUniques(theta, alpha float64, populationSize int64) float64 {
	if alpha == 0 || math.IsNaN(alpha) || math.IsNaN(theta) {
		return math.NaN()
	}
	lg1, s1 := math.Lgamma(theta + 1)
	lg2, s2 := math.Lgamma(theta + alpha)
	v := float64(s1*s2) * math.Exp(lg1-lg2+alpha*math.Log(float64(populationSize)))
	if v < 0 || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

func (e *estimator) estimatePitman(s sampleStats, pm PopulationModel, p progress.Phase) (UniquenessEstimate, error) {
	if s.c1 == 0 {
		return UniquenessEstimate{Value: 0, Kind: Pitman, Source: Pitman}, nil
	}
	sol, err := e.pitman.Solve(pitmanSystem{s: s}, pitmanInitialGuess(s), p)
	if err != nil {
		return UniquenessEstimate{}, err
	}
	value := math.NaN()
	if sol.Valid() {
		value = pitmanUniques(sol.X[0], sol.X[1], pm.PopulationSize())
	} else {
		log.Warningf("popmodel: Pitman model did not converge (%v after %d iterations)", sol.Status, sol.Iterations)
	}
	p.Done()
	return UniquenessEstimate{Value: value, Kind: Pitman, Source: Pitman}, nil
}
