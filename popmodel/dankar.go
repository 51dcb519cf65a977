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
	log "github.com/golang/glog"
	"github.com/google/reidrisk/progress"
)

// smallSamplingFraction is the sampling fraction up to which the Dankar rule
// prefers the Pitman model.
const smallSamplingFraction = 0.1

// estimateDankar applies the decision rule of Dankar et al. (2012):
//
//   - without sample uniques the estimate is 0;
//   - without classes of size two only Zayatz is defined;
//   - for f ≤ 0.1 Pitman, falling back to Zayatz;
//   - otherwise min(Zayatz, SNB), falling back to Zayatz and then Pitman.
func (e *estimator) estimateDankar(s sampleStats, pm PopulationModel, p progress.Phase) (UniquenessEstimate, error) {
	tag := func(est UniquenessEstimate) UniquenessEstimate {
		est.Kind = Dankar
		return est
	}
	if s.c1 == 0 {
		return UniquenessEstimate{Value: 0, Kind: Dankar, Source: Dankar}, nil
	}
	if s.c2 == 0 {
		zayatz, err := e.estimateZayatz(s, pm, p)
		return tag(zayatz), err
	}

	if pm.SamplingFraction() <= smallSamplingFraction {
		pitman, err := e.estimatePitman(s, pm, p.Sub(0, 0.8))
		if err != nil {
			return UniquenessEstimate{}, err
		}
		if pitman.Valid() {
			return tag(pitman), nil
		}
		log.Warningf("popmodel: Dankar falls back from Pitman (%v) to Zayatz", pitman.Value)
		zayatz, err := e.estimateZayatz(s, pm, p.Sub(0.8, 1))
		return tag(zayatz), err
	}

	zayatz, err := e.estimateZayatz(s, pm, p.Sub(0, 0.1))
	if err != nil {
		return UniquenessEstimate{}, err
	}
	snb, err := e.estimateSNB(s, pm, p.Sub(0.1, 0.8))
	if err != nil {
		return UniquenessEstimate{}, err
	}
	if snb.Valid() {
		// A NaN Zayatz estimate never compares smaller.
		if zayatz.Value <= snb.Value {
			return tag(zayatz), nil
		}
		return tag(snb), nil
	}
	if zayatz.Valid() {
		log.Warningf("popmodel: Dankar falls back from SNB (%v) to Zayatz", snb.Value)
		return tag(zayatz), nil
	}
	log.Warningf("popmodel: Dankar falls back from SNB (%v) and Zayatz (%v) to Pitman", snb.Value, zayatz.Value)
	pitman, err := e.estimatePitman(s, pm, p.Sub(0.8, 1))
	if err != nil {
		return UniquenessEstimate{}, err
	}
	return tag(pitman), nil
}
