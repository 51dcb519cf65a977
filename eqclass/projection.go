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
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/google/reidrisk/table"
)

// Projection is the values of one record restricted to the quasi-identifier
// columns, in quasi-identifier order.
type Projection []string

// Project returns the projection of row onto cols.
func Project(t table.Table, row int, cols []int) Projection {
	p := make(Projection, len(cols))
	for i, c := range cols {
		p[i] = t.Value(row, c)
	}
	return p
}

// Equal reports whether p and q hold the same values.
func (p Projection) Equal(q Projection) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Hash returns a 64-bit hash of the value vector. Equal projections have
// equal hashes.
func (p Projection) Hash() uint64 {
	h := newHasher()
	for _, v := range p {
		h.add(v)
	}
	return h.sum()
}

// hasher is an xxhash digest over length-prefixed values, so that
// ("ab", "c") and ("a", "bc") hash differently.
type hasher struct {
	d   *xxhash.Digest
	buf [binary.MaxVarintLen64]byte
}

func newHasher() *hasher {
	return &hasher{d: xxhash.New()}
}

func (h *hasher) reset() { h.d.Reset() }

func (h *hasher) add(v string) {
	n := binary.PutUvarint(h.buf[:], uint64(len(v)))
	h.d.Write(h.buf[:n])
	h.d.WriteString(v)
}

func (h *hasher) sum() uint64 { return h.d.Sum64() }

// hashRow hashes the projection of row onto cols without materializing it.
func (h *hasher) hashRow(t table.Table, row int, cols []int) uint64 {
	h.reset()
	for _, c := range cols {
		h.add(t.Value(row, c))
	}
	return h.sum()
}

// rowEquals reports whether the projection of row onto cols equals p.
func rowEquals(t table.Table, row int, cols []int, p Projection) bool {
	for i, c := range cols {
		if t.Value(row, c) != p[i] {
			return false
		}
	}
	return true
}
