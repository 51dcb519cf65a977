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

// Package attrisk analyzes how re-identification risk depends on the choice
// of quasi-identifiers. It evaluates every non-empty subset of a candidate
// set and averages the scores of each subset with those of its supersets.
package attrisk

import (
	"fmt"
	"sort"
	"strings"

	log "github.com/golang/glog"
	"github.com/google/reidrisk/checks"
	"github.com/google/reidrisk/eqclass"
	"github.com/google/reidrisk/progress"
	"github.com/google/reidrisk/table"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/combin"
)

// MaxAttributes bounds the size of the candidate set. The analysis visits
// 2^k-1 subsets and aggregates over 3^k subset pairs.
const MaxAttributes = 20

// Scores is the risk profile of one set of quasi-identifiers.
type Scores struct {
	HighestRisk    float64
	AverageRisk    float64
	FractionUnique float64
	// Distinction is numClasses/numRecords.
	Distinction float64
	// Separation is the fraction of record pairs that fall into different
	// classes. It is 0 for fewer than two records.
	Separation float64
}

func (s Scores) vector() []float64 {
	return []float64{s.HighestRisk, s.AverageRisk, s.FractionUnique, s.Distinction, s.Separation}
}

func scoresOf(v []float64) Scores {
	return Scores{HighestRisk: v[0], AverageRisk: v[1], FractionUnique: v[2], Distinction: v[3], Separation: v[4]}
}

// NewScores returns the scores of histogram h.
func NewScores(h *eqclass.Histogram) Scores {
	n := h.NumRecords()
	if n == 0 {
		return Scores{}
	}
	nf := float64(n)
	s := Scores{
		HighestRisk:    1 / float64(h.MinSize()),
		AverageRisk:    float64(h.NumClasses()) / nf,
		FractionUnique: float64(h.CountOfSize(1)) / nf,
		Distinction:    float64(h.NumClasses()) / nf,
	}
	if n > 1 {
		var together float64
		for _, c := range h.Classes() {
			size := float64(c.Size)
			together += float64(c.Count) * size * (size - 1)
		}
		s.Separation = 1 - together/(nf*(nf-1))
	}
	return s
}

// SubsetRisk is the analysis of one subset of the candidate attributes.
type SubsetRisk struct {
	Attributes table.QuasiIdentifiers
	// Scores are the subset's own scores.
	Scores Scores
	// Aggregated are the scores averaged over the subset and all of its
	// strict supersets within the candidate set.
	Aggregated Scores
}

// Impact is the mean change in average risk caused by adding one attribute
// to the subsets that do not contain it.
type Impact struct {
	Attribute string
	Impact    float64
}

// Result is the outcome of Analyze.
type Result struct {
	attributes table.QuasiIdentifiers
	numRecords int
	subsets    []SubsetRisk
	byMask     map[uint32]int
	impact     []Impact
}

// Attributes returns the candidate set.
func (r *Result) Attributes() table.QuasiIdentifiers { return r.attributes }

// Subsets returns all non-empty subsets, larger subsets first.
func (r *Result) Subsets() []SubsetRisk { return r.subsets }

// Lookup returns the analysis of the subset made of attrs, in any order.
func (r *Result) Lookup(attrs ...string) (SubsetRisk, bool) {
	var mask uint32
	for _, a := range attrs {
		i := indexOf(r.attributes, a)
		if i < 0 {
			return SubsetRisk{}, false
		}
		mask |= 1 << i
	}
	idx, ok := r.byMask[mask]
	if !ok {
		return SubsetRisk{}, false
	}
	return r.subsets[idx], true
}

// Impact returns the impact of every attribute, highest first.
func (r *Result) Impact() []Impact { return r.impact }

func (r *Result) String() string {
	var b strings.Builder
	for _, s := range r.subsets {
		fmt.Fprintf(&b, "%v: average %.4f (aggregated %.4f)\n", s.Attributes, s.Scores.AverageRisk, s.Aggregated.AverageRisk)
	}
	return b.String()
}

func indexOf(q table.QuasiIdentifiers, name string) int {
	for i, n := range q {
		if n == name {
			return i
		}
	}
	return -1
}

// Analyze evaluates every non-empty subset of qis over the non-outlier rows of
// t, from the full set down to single attributes. p is polled once per subset
// and advances linearly with the number of subsets evaluated.
func Analyze(t table.Table, qis table.QuasiIdentifiers, p progress.Phase) (*Result, error) {
	cols, err := qis.Resolve(t)
	if err != nil {
		return nil, err
	}
	k := len(cols)
	if k > MaxAttributes {
		return nil, fmt.Errorf("attrisk.Analyze: %w: %d attributes, at most %d are supported", checks.ErrInvalidArgument, k, MaxAttributes)
	}
	total := 1<<k - 1
	r := &Result{
		attributes: append(table.QuasiIdentifiers(nil), qis...),
		subsets:    make([]SubsetRisk, 0, total),
		byMask:     make(map[uint32]int, total),
	}
	own := make(map[uint32][]float64, total)
	full := uint32(total)

	done := 0
	for size := k; size >= 1; size-- {
		gen := combin.NewCombinationGenerator(k, size)
		positions := make([]int, size)
		for gen.Next() {
			if err := p.Check(); err != nil {
				return nil, err
			}
			gen.Combination(positions)
			subCols := make([]int, size)
			var mask uint32
			for i, pos := range positions {
				subCols[i] = cols[pos]
				mask |= 1 << pos
			}
			h, err := eqclass.BuildColumns(t, subCols, p.Silent())
			if err != nil {
				return nil, err
			}
			r.numRecords = h.NumRecords()
			scores := NewScores(h)
			own[mask] = scores.vector()

			// Supersets have more attributes and were evaluated already.
			agg := append([]float64(nil), own[mask]...)
			count := 1.0
			comp := full &^ mask
			for sub := comp; sub != 0; sub = (sub - 1) & comp {
				floats.Add(agg, own[mask|sub])
				count++
			}
			floats.Scale(1/count, agg)

			r.byMask[mask] = len(r.subsets)
			r.subsets = append(r.subsets, SubsetRisk{
				Attributes: qis.Subset(positions),
				Scores:     scores,
				Aggregated: scoresOf(agg),
			})
			done++
			p.Report(done, total)
		}
	}
	r.impact = impacts(r.attributes, own, r.numRecords)
	log.V(1).Infof("attrisk: analyzed %d subsets of %v", total, qis)
	p.Done()
	return r, nil
}

// impacts computes, per attribute, the mean of AverageRisk(S) -
// AverageRisk(S without the attribute) over all subsets S containing it. The
// empty set places all records in one class.
func impacts(attrs table.QuasiIdentifiers, own map[uint32][]float64, numRecords int) []Impact {
	var emptyRisk float64
	if numRecords > 0 {
		emptyRisk = 1 / float64(numRecords)
	}
	avg := func(mask uint32) float64 {
		if mask == 0 {
			return emptyRisk
		}
		return own[mask][1]
	}
	out := make([]Impact, len(attrs))
	for i, a := range attrs {
		bit := uint32(1) << i
		var diffs []float64
		for mask := range own {
			if mask&bit != 0 {
				diffs = append(diffs, avg(mask)-avg(mask&^bit))
			}
		}
		// Map order must not leak into the floating point sum.
		sort.Float64s(diffs)
		out[i] = Impact{Attribute: a, Impact: stat.Mean(diffs, nil)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Impact > out[j].Impact })
	return out
}
