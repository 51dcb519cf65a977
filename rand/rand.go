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

// Package rand provides the random numbers used by the risk estimators:
// starting points for iterative solvers and record sampling.
//
// The package-level functions draw from crypto/rand. Seeded returns a
// reproducible Generator for tests and command line runs that need repeatable
// output.
package rand

import (
	"bufio"
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math"
	mathrand "math/rand"
	"sync"

	log "github.com/golang/glog"
)

var (
	randBufLock sync.Mutex
	randBuf     io.Reader = bufio.NewReaderSize(cryptorand.Reader, 4096)
)

func readRandBuf(b []byte) (int, error) {
	randBufLock.Lock()
	defer randBufLock.Unlock()
	return io.ReadFull(randBuf, b)
}

// U64 returns a uniformly random uint64.
func U64() uint64 {
	var r [8]uint8
	if _, err := readRandBuf(r[:]); err != nil {
		log.Fatalf("out of randomness, should never happen: %v", err)
	}
	return binary.LittleEndian.Uint64(r[:])
}

// Generator returns floats uniformly distributed in the open interval (0, 1).
type Generator func() float64

// Uniform returns a float64 from the open interval (0, 1). All 2⁵³-1 values
// k/2⁵³ with 0 < k < 2⁵³ are equally likely.
func Uniform() float64 {
	for {
		if k := U64() >> 11; k != 0 {
			return float64(k) / (1 << 53)
		}
	}
}

// Seeded returns a deterministic Generator. It is not safe for concurrent use.
func Seeded(seed int64) Generator {
	r := mathrand.New(mathrand.NewSource(seed))
	return func() float64 {
		for {
			if v := r.Float64(); v != 0 {
				return v
			}
		}
	}
}

// OrDefault returns g, or Uniform if g is nil.
func (g Generator) OrDefault() Generator {
	if g == nil {
		return Uniform
	}
	return g
}

// Between returns a value drawn uniformly from the open interval (lo, hi).
func (g Generator) Between(lo, hi float64) float64 {
	v := lo + (hi-lo)*g.OrDefault()()
	// Rounding can land on the bounds when hi-lo is tiny.
	return math.Min(math.Max(v, math.Nextafter(lo, hi)), math.Nextafter(hi, lo))
}

// Bernoulli returns true with probability p.
func (g Generator) Bernoulli(p float64) bool {
	switch {
	case p >= 1:
		return true
	case p <= 0:
		return false
	}
	return g.OrDefault()() < p
}

// SampleIndices returns the ascending indices of a Bernoulli(fraction) sample
// of {0, ..., n-1}.
func (g Generator) SampleIndices(n int, fraction float64) []int {
	var out []int
	for i := 0; i < n; i++ {
		if g.Bernoulli(fraction) {
			out = append(out, i)
		}
	}
	return out
}
