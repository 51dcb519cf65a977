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

// Package stattestutils provides table fixtures and numerical helpers for
// tests of the risk estimators.
//
// This package is not optimized for performance or speed and is only intended
// to be used in tests.
package stattestutils

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/reidrisk/table"
)

// ApproxEqual reports whether x and y differ by at most tolerance, either in
// absolute terms or relative to the larger magnitude. Two NaNs are equal.
func ApproxEqual(x, y, tolerance float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.IsNaN(x) && math.IsNaN(y)
	}
	diff := math.Abs(x - y)
	if diff <= tolerance {
		return true
	}
	return diff <= tolerance*math.Max(math.Abs(x), math.Abs(y))
}

// SampleMean returns the mean of a slice, calculated as the average over the
// values in the slice.
func SampleMean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / math.Max(1, float64(len(values)))
}

// TableFromSizes returns a single-column table (column "qi") whose
// equivalence classes have the given sizes. Class i holds the value "v<i>".
func TableFromSizes(sizes ...int) *table.Memory {
	var rows [][]string
	for i, s := range sizes {
		for j := 0; j < s; j++ {
			rows = append(rows, []string{fmt.Sprintf("v%d", i)})
		}
	}
	return mustMemory([]string{"qi"}, rows, nil)
}

// TableFromHistogram returns a single-column table with count classes of
// each size, given as alternating size, count pairs.
func TableFromHistogram(sizeCounts ...int) *table.Memory {
	if len(sizeCounts)%2 != 0 {
		panic("TableFromHistogram: sizes and counts must come in pairs")
	}
	var sizes []int
	for i := 0; i < len(sizeCounts); i += 2 {
		for c := 0; c < sizeCounts[i+1]; c++ {
			sizes = append(sizes, sizeCounts[i])
		}
	}
	return TableFromSizes(sizes...)
}

// RandomTable returns a table with the given number of rows and columns
// ("c0", "c1", ...) whose values are drawn uniformly from cardinality
// distinct values per column. The same seed yields the same table.
func RandomTable(seed int64, rows, cols, cardinality int) *table.Memory {
	r := rand.New(rand.NewSource(seed))
	header := make([]string, cols)
	for c := range header {
		header[c] = fmt.Sprintf("c%d", c)
	}
	data := make([][]string, rows)
	for i := range data {
		data[i] = make([]string, cols)
		for c := range data[i] {
			data[i][c] = fmt.Sprintf("%d", r.Intn(cardinality))
		}
	}
	return mustMemory(header, data, nil)
}

// MustMemory is table.NewMemory for fixtures known to be valid.
func MustMemory(header []string, rows [][]string, opt *table.MemoryOptions) *table.Memory {
	return mustMemory(header, rows, opt)
}

func mustMemory(header []string, rows [][]string, opt *table.MemoryOptions) *table.Memory {
	m, err := table.NewMemory(header, rows, opt)
	if err != nil {
		panic(fmt.Sprintf("invalid test table: %v", err))
	}
	return m
}
