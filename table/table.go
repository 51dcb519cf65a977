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

// Package table defines the read-only view of a data table consumed by the
// risk estimators, together with an in-memory implementation.
package table

import (
	"fmt"

	"github.com/google/reidrisk/checks"
)

// Table is read access to one immutable table snapshot.
type Table interface {
	// NumRows returns the number of records.
	NumRows() int
	// NumColumns returns the number of attributes.
	NumColumns() int
	// ColumnIndex returns the index of the named column, or -1.
	ColumnIndex(name string) int
	// Value returns the cell at (row, col).
	Value(row, col int) string
	// IsOutlier reports whether the record was suppressed with respect to
	// the given columns. Outliers are excluded from exact grouping.
	IsOutlier(row int, cols []int) bool
	// Superset returns the population table this table was sampled from, or
	// nil if there is none.
	Superset() Table
}

// QuasiIdentifiers is an ordered, duplicate-free set of column names.
type QuasiIdentifiers []string

// Resolve validates q against the schema of t and returns the column indices
// in the order of q.
func (q QuasiIdentifiers) Resolve(t Table) ([]int, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: table must not be nil", checks.ErrInvalidArgument)
	}
	if err := checks.CheckQuasiIdentifiers(q); err != nil {
		return nil, err
	}
	cols := make([]int, len(q))
	for i, name := range q {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: attribute %q does not exist", checks.ErrInvalidArgument, name)
		}
		cols[i] = idx
	}
	return cols, nil
}

// Subset returns the quasi-identifiers at the given positions of q.
func (q QuasiIdentifiers) Subset(positions []int) QuasiIdentifiers {
	out := make(QuasiIdentifiers, len(positions))
	for i, p := range positions {
		out[i] = q[p]
	}
	return out
}
