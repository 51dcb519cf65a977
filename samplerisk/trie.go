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

package samplerisk

import (
	"fmt"

	"github.com/google/reidrisk/checks"
	"github.com/google/reidrisk/eqclass"
)

// trie stores class sizes keyed by projection, with one level per
// quasi-identifier.
type trie struct {
	wildcard string
	depth    int
	root     *trieNode
}

type trieNode struct {
	children map[string]*trieNode
	size     int // set on leaves only
}

func newTrie(wildcard string, depth int) *trie {
	return &trie{wildcard: wildcard, depth: depth, root: &trieNode{}}
}

// insert adds a class. Keys must be distinct: inserting the same key twice is
// an error, since callers aggregate exact duplicates before insertion.
func (t *trie) insert(key eqclass.Projection, size int) error {
	if len(key) != t.depth {
		return fmt.Errorf("%w: key %v has %d values, want %d", checks.ErrInvalidArgument, key, len(key), t.depth)
	}
	n := t.root
	for _, v := range key {
		if n.children == nil {
			n.children = make(map[string]*trieNode)
		}
		child, ok := n.children[v]
		if !ok {
			child = &trieNode{}
			n.children[v] = child
		}
		n = child
	}
	if n.size != 0 {
		return fmt.Errorf("samplerisk: duplicate class %v in wildcard trie", key)
	}
	n.size = size
	return nil
}

// matches returns the number of records whose key matches key, where two
// values match if they are equal or either is the wildcard.
func (t *trie) matches(key eqclass.Projection) int {
	return t.match(t.root, key)
}

func (t *trie) match(n *trieNode, key eqclass.Projection) int {
	if len(key) == 0 {
		return n.size
	}
	v, rest := key[0], key[1:]
	if v == t.wildcard {
		var total int
		for _, child := range n.children {
			total += t.match(child, rest)
		}
		return total
	}
	var total int
	if child, ok := n.children[v]; ok {
		total += t.match(child, rest)
	}
	if child, ok := n.children[t.wildcard]; ok {
		total += t.match(child, rest)
	}
	return total
}
