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
	"gonum.org/v1/gonum/mat"
)

// shlosser estimates the number of non-empty classes in the population:
//
//	K = u + c1·Σ(1-f)^i·c_i / Σ i·f·(1-f)^(i-1)·c_i
func shlosser(s sampleStats, f float64) float64 {
	q := 1 - f
	var num, den float64
	for _, c := range s.classes {
		i := float64(c.Size)
		num += math.Pow(q, i) * float64(c.Count)
		den += i * f * math.Pow(q, i-1) * float64(c.Count)
	}
	if den == 0 {
		return s.u
	}
	return s.u + s.c1*num/den
}

// snbSystem matches the expected numbers of sample classes of size one and
// two under a slide negative binomial model with parameters x = (α, β) to
// the observed c1 and c2.
type snbSystem struct {
	k, f   float64
	c1, c2 float64
}

func (snbSystem) Dim() int { return 2 }

// terms returns the expected counts E1, E2 and the intermediates their
// derivatives share.
func (ss snbSystem) terms(alpha, beta float64) (e1, e2, q, r, s, t float64) {
	x := 1 - ss.f
	q = 1 - beta
	r = 1 - q*x
	s = r + alpha*q*x
	t = 2*r + (alpha+1)*q*x
	ba := math.Pow(beta, alpha)
	e1 = ss.k * ss.f * ba * math.Pow(r, -alpha-1) * s
	e2 = ss.k * ss.f * ss.f / 2 * ba * alpha * q * math.Pow(r, -alpha-2) * t
	return e1, e2, q, r, s, t
}

func (ss snbSystem) Evaluate(x, f []float64) {
	e1, e2, _, _, _, _ := ss.terms(x[0], x[1])
	f[0] = e1 - ss.c1
	f[1] = e2 - ss.c2
}

func (ss snbSystem) Jacobian(x []float64, j *mat.Dense) {
	alpha, beta := x[0], x[1]
	e1, e2, q, r, s, t := ss.terms(alpha, beta)
	y := 1 - ss.f
	lnb, lnr := math.Log(beta), math.Log(r)
	j.Set(0, 0, e1*(lnb-lnr+q*y/s))
	j.Set(0, 1, e1*(alpha/beta-(alpha+1)*y/r+y*(1-alpha)/s))
	j.Set(1, 0, e2*(lnb+1/alpha-lnr+q*y/t))
	j.Set(1, 1, e2*(alpha/beta-1/q-(alpha+2)*y/r+y*(1-alpha)/t))
}

func (e *estimator) estimateSNB(s sampleStats, pm PopulationModel, p progress.Phase) (UniquenessEstimate, error) {
	est := UniquenessEstimate{Kind: SNB, Source: SNB}
	if s.c1 == 0 {
		return est, nil
	}
	f := pm.SamplingFraction()
	sys := snbSystem{k: shlosser(s, f), f: f, c1: s.c1, c2: s.c2}
	for attempt := 0; attempt < e.snbRetries; attempt++ {
		guess := []float64{e.rand.Between(0, 1), e.rand.Between(0, 1)}
		sol, err := e.snb.Solve(sys, guess, p.Sub(float64(attempt)/float64(e.snbRetries), float64(attempt+1)/float64(e.snbRetries)))
		if err != nil {
			return UniquenessEstimate{}, err
		}
		if !sol.Valid() {
			continue
		}
		alpha, beta := sol.X[0], sol.X[1]
		if alpha > 0 && beta > 0 && beta < 1 {
			est.Value = sys.k * math.Pow(beta, alpha)
			return est, nil
		}
		log.V(1).Infof("popmodel: SNB attempt %d converged outside the parameter space (α=%g, β=%g)", attempt, alpha, beta)
	}
	log.Warningf("popmodel: SNB model did not converge in %d attempts", e.snbRetries)
	est.Value = math.NaN()
	return est, nil
}
