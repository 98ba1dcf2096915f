package link

/*
   Copyright 2018 Bruno Moura <brunotm@gmail.com>

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

import (
	"context"
	"encoding/binary"

	"github.com/dgryski/go-wyhash"

	"github.com/routegraph/linkrt/types"
)

// DropBuilder assembles a Drop link. With the default probability of 1 it
// is a pure blackhole: one Runnable that fully drains its ingressor and
// produces no egress port at all. With p < 1 it instead behaves as a
// Process link whose processor keeps each packet with probability 1-p,
// seeded deterministically so a test run is reproducible.
type DropBuilder[P any] struct {
	ingress     Stream[P]
	probability float64
	seed        uint64
}

// NewDrop starts a Drop link builder with probability 1 (drop everything).
func NewDrop[P any]() *DropBuilder[P] {
	return &DropBuilder[P]{probability: 1}
}

// Ingressor sets the single upstream of this link.
func (b *DropBuilder[P]) Ingressor(s Stream[P]) *DropBuilder[P] {
	b.ingress = s
	return b
}

// Probability sets p in [0, 1], the fraction of packets dropped.
func (b *DropBuilder[P]) Probability(p float64) *DropBuilder[P] {
	b.probability = p
	return b
}

// Seed sets the PRNG seed used when p < 1, for deterministic tests.
func (b *DropBuilder[P]) Seed(seed uint64) *DropBuilder[P] {
	b.seed = seed
	return b
}

// BuildLink returns the Drop link's Assembly. When p == 1 it has one
// Runnable and zero Egressors; otherwise it has zero Runnables and one
// Egressor, matching the Process link shape it degrades to.
func (b *DropBuilder[P]) BuildLink() Assembly[P] {
	if b.ingress == nil {
		buildPanic(shapeOf(types.Drop), "missing ingressor")
	}
	if b.probability < 0 || b.probability > 1 {
		buildPanic(shapeOf(types.Drop), "probability must be in [0, 1]")
	}

	if b.probability == 1 {
		sink := RunnableFunc(func(ctx context.Context) {
			for {
				if _, ok := b.ingress.Next(ctx); !ok {
					return
				}
			}
		})
		return Assembly[P]{Runnables: []Runnable{sink}}
	}

	// Counter-mode wyhash keyed on the seed: the n-th packet's fate is a
	// pure function of (seed, n), so a run is reproducible regardless of
	// how the surrounding graph schedules its tasks.
	var n uint64
	var buf [8]byte
	keep := ProcessorFunc[P, P](func(p P) (P, bool) {
		binary.LittleEndian.PutUint64(buf[:], n)
		n++
		u := wyhash.Hash(buf[:], b.seed)
		return p, float64(u>>11)/float64(1<<53) >= b.probability
	})

	return NewProcess[P, P]().Ingressor(b.ingress).WithProcessor(keep).BuildLink()
}
