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

package table

import (
	"fmt"

	"github.com/google/reidrisk/checks"
)

// Memory is a Table held entirely in memory.
type Memory struct {
	header   []string
	index    map[string]int
	rows     [][]string
	outliers []bool
	superset Table
}

// MemoryOptions contains the optional parts of a Memory table.
type MemoryOptions struct {
	// Outliers flags suppressed records. Defaults to no outliers; when set
	// it must have one entry per row.
	Outliers []bool
	// Superset is the population the rows were sampled from. Optional.
	Superset Table
}

// NewMemory returns a Memory table with the given header and rows. Every row
// must have exactly one value per header column. The slices are not copied.
func NewMemory(header []string, rows [][]string, opt *MemoryOptions) (*Memory, error) {
	if opt == nil {
		opt = &MemoryOptions{}
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, ok := index[h]; ok {
			return nil, fmt.Errorf("%w: column %q appears more than once in the header", checks.ErrInvalidArgument, h)
		}
		index[h] = i
	}
	for i, r := range rows {
		if len(r) != len(header) {
			return nil, fmt.Errorf("%w: row %d has %d values, header has %d columns", checks.ErrInvalidArgument, i, len(r), len(header))
		}
	}
	if opt.Outliers != nil && len(opt.Outliers) != len(rows) {
		return nil, fmt.Errorf("%w: %d outlier flags for %d rows", checks.ErrInvalidArgument, len(opt.Outliers), len(rows))
	}
	return &Memory{
		header:   header,
		index:    index,
		rows:     rows,
		outliers: opt.Outliers,
		superset: opt.Superset,
	}, nil
}

// NumRows implements Table.
func (m *Memory) NumRows() int { return len(m.rows) }

// NumColumns implements Table.
func (m *Memory) NumColumns() int { return len(m.header) }

// ColumnIndex implements Table.
func (m *Memory) ColumnIndex(name string) int {
	if i, ok := m.index[name]; ok {
		return i
	}
	return -1
}

// Value implements Table.
func (m *Memory) Value(row, col int) string { return m.rows[row][col] }

// IsOutlier implements Table. Outlier flags apply to all column subsets.
func (m *Memory) IsOutlier(row int, _ []int) bool {
	return m.outliers != nil && m.outliers[row]
}

// Superset implements Table.
func (m *Memory) Superset() Table { return m.superset }

// Header returns the column names.
func (m *Memory) Header() []string { return m.header }
