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

package samplerisk

import (
	"sort"

	"github.com/google/reidrisk/eqclass"
)

// bucketBounds are the upper bounds of the risk buckets of a Distribution.
var bucketBounds = []float64{0, 1e-6, 1e-5, 1e-4, 1e-3, 0.01, 0.02, 0.03, 0.04, 0.05, 0.06, 0.07, 0.08, 0.09, 0.1, 0.125, 0.14, 0.167, 0.2, 0.25, 0.33, 0.5, 1}

// Distribution is the fraction of records per risk bucket. Bucket i holds the
// records whose risk lies in (Bounds()[i], Bounds()[i+1]].
type Distribution struct {
	fractions []float64
}

// NewDistribution returns the risk distribution of the records of h.
func NewDistribution(h *eqclass.Histogram) Distribution {
	d := Distribution{fractions: make([]float64, len(bucketBounds)-1)}
	if h == nil || h.NumRecords() == 0 {
		return d
	}
	n := float64(h.NumRecords())
	for _, c := range h.Classes() {
		risk := 1 / float64(c.Size)
		// Smallest upper bound ≥ risk; risk > 0 so the index is at least 1.
		i := sort.SearchFloat64s(bucketBounds, risk)
		d.fractions[i-1] += float64(c.Size*c.Count) / n
	}
	return d
}

// Bounds returns the bucket bounds, starting at 0 and ending at 1.
func (d Distribution) Bounds() []float64 {
	return append([]float64(nil), bucketBounds...)
}

// Fractions returns the fraction of records per bucket.
func (d Distribution) Fractions() []float64 {
	return append([]float64(nil), d.fractions...)
}

// Cumulative returns, per bucket, the fraction of records whose risk is at
// most the bucket's upper bound.
func (d Distribution) Cumulative() []float64 {
	out := make([]float64, len(d.fractions))
	var sum float64
	for i, f := range d.fractions {
		sum += f
		out[i] = sum
	}
	return out
}
