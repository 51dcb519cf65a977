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

package eqclass

import (
	"github.com/google/reidrisk/progress"
	"github.com/google/reidrisk/table"
)

// reportStride is the number of rows between two progress reports.
const reportStride = 1024

// Group is one equivalence class: a distinct projection and the number of
// records sharing it.
type Group struct {
	Key  Projection
	Size int
}

// Grouping is the result of grouping the records of a table by their
// projection onto a set of columns. Groups are kept in order of first
// appearance, which makes every derived quantity independent of map
// iteration order.
type Grouping struct {
	groups     []Group
	buckets    map[uint64][]int
	numRecords int
}

// GroupOptions contains the options of GroupRows.
type GroupOptions struct {
	// IncludeOutliers keeps suppressed records in the grouping. Only
	// wildcard-aware estimators set it.
	IncludeOutliers bool
}

// GroupRows groups the rows of t by their projection onto cols. Progress is
// reported into p as rows are scanned; p is polled for cancellation before
// every row.
func GroupRows(t table.Table, cols []int, p progress.Phase, opt *GroupOptions) (*Grouping, error) {
	if opt == nil {
		opt = &GroupOptions{}
	}
	g := &Grouping{buckets: make(map[uint64][]int)}
	h := newHasher()
	n := t.NumRows()
	for row := 0; row < n; row++ {
		if err := p.Check(); err != nil {
			return nil, err
		}
		if row%reportStride == 0 {
			p.Report(row, n)
		}
		if !opt.IncludeOutliers && t.IsOutlier(row, cols) {
			continue
		}
		g.addRow(t, row, cols, h.hashRow(t, row, cols))
	}
	p.Done()
	return g, nil
}

func (g *Grouping) addRow(t table.Table, row int, cols []int, hash uint64) {
	g.numRecords++
	bucket := g.buckets[hash]
	for _, idx := range bucket {
		if rowEquals(t, row, cols, g.groups[idx].Key) {
			g.groups[idx].Size++
			return
		}
	}
	g.groups = append(g.groups, Group{Key: Project(t, row, cols), Size: 1})
	g.buckets[hash] = append(bucket, len(g.groups)-1)
}

// Groups returns the equivalence classes in order of first appearance. The
// returned slice must not be modified.
func (g *Grouping) Groups() []Group {
	return g.groups
}

// NumRecords returns the number of grouped records.
func (g *Grouping) NumRecords() int {
	return g.numRecords
}

// NumClasses returns the number of equivalence classes.
func (g *Grouping) NumClasses() int {
	return len(g.groups)
}

// SizeOf returns the size of the class with projection key, or 0 if no
// record has that projection.
func (g *Grouping) SizeOf(key Projection) int {
	for _, idx := range g.buckets[key.Hash()] {
		if g.groups[idx].Key.Equal(key) {
			return g.groups[idx].Size
		}
	}
	return 0
}
