package link_test

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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/routegraph/linkrt/link"
	"github.com/routegraph/linkrt/linktest"
)

func TestDropBlackhole(t *testing.T) {
	asm := link.NewDrop[int]().
		Ingressor(link.FromSlice(scenarioPackets())).
		BuildLink()

	assert.Len(t, asm.Runnables, 1)
	assert.Empty(t, asm.Egressors)

	// The sink must fully drain its upstream and return.
	asm.Runnables[0].Run(context.Background())
}

func TestDropZeroChanceIsIdentity(t *testing.T) {
	asm := link.NewDrop[int]().
		Ingressor(link.FromSlice(scenarioPackets())).
		Probability(0).
		BuildLink()

	assert.Empty(t, asm.Runnables)
	assert.Len(t, asm.Egressors, 1)

	out := linktest.Collect(context.Background(), asm.Egressors[0])
	assert.Equal(t, scenarioPackets(), out)
}

func TestDropSampledIsReproducible(t *testing.T) {
	run := func() []int {
		asm := link.NewDrop[int]().
			Ingressor(link.FromSlice(scenarioPackets())).
			Probability(0.7).
			Seed(0).
			BuildLink()
		return linktest.Collect(context.Background(), asm.Egressors[0])
	}

	first := run()
	second := run()

	// The survivor set is a pure function of (seed, position): two runs
	// agree exactly, and 0.7 must drop at least something from twelve
	// packets.
	assert.Equal(t, first, second)
	assert.Less(t, len(first), len(scenarioPackets()))

	// Survivors keep their relative input order.
	pos := map[int]int{}
	for i, p := range scenarioPackets() {
		pos[p] = i
	}
	for i := 1; i < len(first); i++ {
		assert.Less(t, pos[first[i-1]], pos[first[i]])
	}
}

func TestDropSeedChangesOutcome(t *testing.T) {
	run := func(seed uint64) []int {
		input := make([]int, 200)
		for i := range input {
			input[i] = i
		}
		asm := link.NewDrop[int]().
			Ingressor(link.FromSlice(input)).
			Probability(0.5).
			Seed(seed).
			BuildLink()
		return linktest.Collect(context.Background(), asm.Egressors[0])
	}

	assert.NotEqual(t, run(1), run(2))
}

func TestDropBuildPanics(t *testing.T) {
	assert.Panics(t, func() {
		link.NewDrop[int]().BuildLink()
	})
	assert.Panics(t, func() {
		link.NewDrop[int]().Ingressor(link.FromSlice([]int{1})).Probability(1.5).BuildLink()
	})
}
