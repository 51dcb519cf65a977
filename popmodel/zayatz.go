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

	"github.com/google/reidrisk/progress"
	"gonum.org/v1/gonum/stat/combin"
)

// probabilityOfOne returns the hypergeometric probability that a sample of n
// records drawn from a population of N contains exactly one of the k records
// of a population class: k·C(N-k, n-1) / C(N, n).
func probabilityOfOne(populationSize, classSize, sampleSize int64) float64 {
	N, k, n := float64(populationSize), float64(classSize), float64(sampleSize)
	if k < 1 || k > N || n < 1 || n > N || n-1 > N-k {
		return 0
	}
	return math.Exp(math.Log(k) + combin.LogGeneralizedBinomial(N-k, n-1) - combin.LogGeneralizedBinomial(N, n))
}

func (e *estimator) estimateZayatz(s sampleStats, pm PopulationModel, p progress.Phase) (UniquenessEstimate, error) {
	est := UniquenessEstimate{Kind: Zayatz, Source: Zayatz}
	if s.c1 == 0 {
		return est, nil
	}
	var unique, total float64
	for i, c := range s.classes {
		if err := p.Check(); err != nil {
			return UniquenessEstimate{}, err
		}
		// The sample's class-size distribution stands in for the
		// population's.
		share := float64(c.Count) / s.u
		term := share * probabilityOfOne(pm.PopulationSize(), int64(c.Size), pm.SampleSize())
		if c.Size == 1 {
			unique = term
		}
		total += term
		p.Report(i+1, len(s.classes))
	}
	if total == 0 {
		est.Value = math.NaN()
		return est, nil
	}
	est.Value = s.c1 * (unique / total) / pm.SamplingFraction()
	return est, nil
}
