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

// Package samplerisk computes re-identification risks that follow directly
// from the equivalence classes of a sample: the risk profile of a histogram,
// the prosecutor, journalist and marketer summaries, the distribution of
// records over risk buckets, and the wildcard-aware variant that treats a
// suppressed value as matching any value.
package samplerisk

import (
	"fmt"

	"github.com/google/reidrisk/checks"
	"github.com/google/reidrisk/eqclass"
)

// Risks is the sample risk profile of a histogram. The risk of a record is
// 1/size of its equivalence class. All fractions are relative to the number
// of records; an empty histogram has zero risk throughout.
type Risks struct {
	h *eqclass.Histogram
}

// NewRisks returns the risk profile of h.
func NewRisks(h *eqclass.Histogram) (Risks, error) {
	if h == nil {
		return Risks{}, fmt.Errorf("samplerisk.NewRisks: %w: nil histogram", checks.ErrInvalidArgument)
	}
	return Risks{h: h}, nil
}

func (r Risks) fraction(records int) float64 {
	if r.h.NumRecords() == 0 {
		return 0
	}
	return float64(records) / float64(r.h.NumRecords())
}

// HighestRisk returns 1/(size of the smallest class).
func (r Risks) HighestRisk() float64 {
	if r.h.IsEmpty() {
		return 0
	}
	return 1 / float64(r.h.MinSize())
}

// LowestRisk returns 1/(size of the largest class).
func (r Risks) LowestRisk() float64 {
	if r.h.IsEmpty() {
		return 0
	}
	return 1 / float64(r.h.MaxSize())
}

// AverageRisk returns numClasses/numRecords, the mean risk over records.
func (r Risks) AverageRisk() float64 {
	return r.fraction(r.h.NumClasses())
}

// FractionAffectedByHighestRisk returns the fraction of records in classes of
// the smallest size.
func (r Risks) FractionAffectedByHighestRisk() float64 {
	if r.h.IsEmpty() {
		return 0
	}
	smallest := r.h.MinSize()
	return r.fraction(smallest * r.h.CountOfSize(smallest))
}

// FractionAffectedByLowestRisk returns the fraction of records in classes of
// the largest size.
func (r Risks) FractionAffectedByLowestRisk() float64 {
	if r.h.IsEmpty() {
		return 0
	}
	largest := r.h.MaxSize()
	return r.fraction(largest * r.h.CountOfSize(largest))
}

// FractionUnique returns the fraction of sample-unique records.
func (r Risks) FractionUnique() float64 {
	return r.fraction(r.h.CountOfSize(1))
}

// FractionAtRisk returns the fraction of records whose risk exceeds
// threshold, which must be in [0, 1].
func (r Risks) FractionAtRisk(threshold float64) (float64, error) {
	if err := checks.CheckThreshold(threshold); err != nil {
		return 0, fmt.Errorf("samplerisk.FractionAtRisk: %w", err)
	}
	var records int
	for _, c := range r.h.Classes() {
		if 1/float64(c.Size) > threshold {
			records += c.Size * c.Count
		}
	}
	return r.fraction(records), nil
}

// RecordsAtRisk returns the number of records whose risk exceeds threshold.
func (r Risks) RecordsAtRisk(threshold float64) (int, error) {
	f, err := r.FractionAtRisk(threshold)
	if err != nil {
		return 0, err
	}
	return int(f*float64(r.h.NumRecords()) + 0.5), nil
}
