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

// Package eqclass groups the records of a table into equivalence classes
// with respect to a set of quasi-identifiers and summarizes the grouping as a
// histogram of class sizes.
package eqclass

import (
	"fmt"
	"sort"

	log "github.com/golang/glog"
	"github.com/google/reidrisk/checks"
	"github.com/google/reidrisk/progress"
	"github.com/google/reidrisk/table"
)

// Class is one histogram entry: Count equivalence classes have Size records
// each.
type Class struct {
	Size  int
	Count int
}

// Histogram is an immutable size→count summary of an equivalence class
// grouping. Entries are strictly ascending by size.
type Histogram struct {
	classes    []Class
	numRecords int
	numClasses int
}

// NewHistogram returns the histogram holding classes. Entries with the same
// size are merged, entries with a zero count are dropped, and the result is
// sorted by size. Sizes and counts must not be negative and sizes must be
// positive.
func NewHistogram(classes []Class) (*Histogram, error) {
	merged := make(map[int]int, len(classes))
	for _, c := range classes {
		if c.Size <= 0 || c.Count < 0 {
			return nil, fmt.Errorf("%w: class (size %d, count %d) must have a positive size and a nonnegative count", checks.ErrInvalidArgument, c.Size, c.Count)
		}
		merged[c.Size] += c.Count
	}
	return fromSizeCounts(merged), nil
}

func fromSizeCounts(counts map[int]int) *Histogram {
	h := &Histogram{classes: make([]Class, 0, len(counts))}
	for size, count := range counts {
		if count == 0 {
			continue
		}
		h.classes = append(h.classes, Class{Size: size, Count: count})
	}
	sort.Slice(h.classes, func(i, j int) bool { return h.classes[i].Size < h.classes[j].Size })
	for _, c := range h.classes {
		h.numRecords += c.Size * c.Count
		h.numClasses += c.Count
	}
	return h
}

// FromGrouping reduces g to a histogram. Progress is reported into p; p is
// polled for cancellation before every class.
func FromGrouping(g *Grouping, p progress.Phase) (*Histogram, error) {
	counts := make(map[int]int)
	n := len(g.groups)
	for i, grp := range g.groups {
		if err := p.Check(); err != nil {
			return nil, err
		}
		if i%reportStride == 0 {
			p.Report(i, n)
		}
		counts[grp.Size]++
	}
	p.Done()
	return fromSizeCounts(counts), nil
}

// Build groups the rows of t by qis and returns the resulting histogram.
// Outlier rows are skipped. The row scan takes the first 80% of p and the
// reduction to sizes the remaining 20%.
func Build(t table.Table, qis table.QuasiIdentifiers, p progress.Phase) (*Histogram, error) {
	cols, err := qis.Resolve(t)
	if err != nil {
		return nil, err
	}
	return BuildColumns(t, cols, p)
}

// BuildColumns is Build for already resolved column indices.
func BuildColumns(t table.Table, cols []int, p progress.Phase) (*Histogram, error) {
	g, err := GroupRows(t, cols, p.Sub(0, 0.8), nil)
	if err != nil {
		return nil, err
	}
	h, err := FromGrouping(g, p.Sub(0.8, 1))
	if err != nil {
		return nil, err
	}
	log.V(1).Infof("eqclass: grouped %d records into %d classes over %d columns", h.numRecords, h.numClasses, len(cols))
	return h, nil
}

// Classes returns a copy of the histogram entries, ascending by size.
func (h *Histogram) Classes() []Class {
	out := make([]Class, len(h.classes))
	copy(out, h.classes)
	return out
}

// Len returns the number of distinct class sizes.
func (h *Histogram) Len() int { return len(h.classes) }

// NumRecords returns Σ size·count.
func (h *Histogram) NumRecords() int { return h.numRecords }

// NumClasses returns Σ count.
func (h *Histogram) NumClasses() int { return h.numClasses }

// AverageClassSize returns NumRecords/NumClasses, or 0 for an empty
// histogram.
func (h *Histogram) AverageClassSize() float64 {
	if h.numClasses == 0 {
		return 0
	}
	return float64(h.numRecords) / float64(h.numClasses)
}

// CountOfSize returns the number of classes with exactly size records.
func (h *Histogram) CountOfSize(size int) int {
	i := sort.Search(len(h.classes), func(i int) bool { return h.classes[i].Size >= size })
	if i < len(h.classes) && h.classes[i].Size == size {
		return h.classes[i].Count
	}
	return 0
}

// MinSize returns the smallest class size, or 0 for an empty histogram.
func (h *Histogram) MinSize() int {
	if len(h.classes) == 0 {
		return 0
	}
	return h.classes[0].Size
}

// MaxSize returns the largest class size, or 0 for an empty histogram.
func (h *Histogram) MaxSize() int {
	if len(h.classes) == 0 {
		return 0
	}
	return h.classes[len(h.classes)-1].Size
}

// IsEmpty reports whether the histogram holds no classes.
func (h *Histogram) IsEmpty() bool { return len(h.classes) == 0 }

// String implements fmt.Stringer.
func (h *Histogram) String() string {
	return fmt.Sprintf("%v", h.classes)
}
