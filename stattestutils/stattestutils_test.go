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

package stattestutils

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSampleMean(t *testing.T) {
	for _, tc := range []struct {
		input    []float64
		wantMean float64
	}{
		{
			input:    []float64{},
			wantMean: 0,
		},
		{
			input:    []float64{100.123},
			wantMean: 100.123,
		},
		{
			input:    []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			wantMean: 5,
		},
	} {
		output := SampleMean(tc.input)
		if math.Abs(output-tc.wantMean) > 10e-10 {
			t.Errorf("got SampleMean(%v)=%f, want %f", tc.input, output, tc.wantMean)
		}
	}
}

func TestApproxEqual(t *testing.T) {
	for _, tc := range []struct {
		x, y, tol float64
		want      bool
	}{
		{1, 1, 0, true},
		{1, 1.0000001, 1e-6, true},
		{1e9, 1e9 + 1, 1e-6, true},
		{1, 2, 1e-6, false},
		{math.NaN(), math.NaN(), 0, true},
		{math.NaN(), 1, 1, false},
	} {
		if got := ApproxEqual(tc.x, tc.y, tc.tol); got != tc.want {
			t.Errorf("ApproxEqual(%v, %v, %v): got %t, want %t", tc.x, tc.y, tc.tol, got, tc.want)
		}
	}
}

func TestTableFromHistogram(t *testing.T) {
	tbl := TableFromHistogram(1, 2, 3, 1)
	if got := tbl.NumRows(); got != 5 {
		t.Fatalf("NumRows: got %d, want 5", got)
	}
	var got []string
	for r := 0; r < tbl.NumRows(); r++ {
		got = append(got, tbl.Value(r, 0))
	}
	want := []string{"v0", "v1", "v2", "v2", "v2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TableFromHistogram values: got diff (-want +got):\n%s", diff)
	}
}

func TestRandomTableIsDeterministic(t *testing.T) {
	a, b := RandomTable(7, 50, 3, 4), RandomTable(7, 50, 3, 4)
	for r := 0; r < 50; r++ {
		for c := 0; c < 3; c++ {
			if a.Value(r, c) != b.Value(r, c) {
				t.Fatalf("RandomTable: cell (%d, %d) differs between runs with the same seed", r, c)
			}
		}
	}
}
