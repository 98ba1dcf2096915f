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

// scenarioPackets is the input sequence shared by the end-to-end link
// scenarios.
func scenarioPackets() []int {
	return []int{0, 1, 2, 420, 1337, 3, 4, 5, 6, 7, 8, 9}
}

func TestProcessIdentity(t *testing.T) {
	asm := link.NewProcess[int, int]().
		Ingressor(link.FromSlice(scenarioPackets())).
		WithProcessor(link.Identity[int]()).
		BuildLink()

	assert.Empty(t, asm.Runnables)
	assert.Len(t, asm.Egressors, 1)

	out := linktest.Collect(context.Background(), asm.Egressors[0])
	assert.Equal(t, scenarioPackets(), out)
}

func TestProcessTransform(t *testing.T) {
	double := link.ProcessorFunc[int, int](func(p int) (int, bool) { return p * 2, true })

	asm := link.NewProcess[int, int]().
		Ingressor(link.FromSlice([]int{1, 2, 3})).
		WithProcessor(double).
		BuildLink()

	out := linktest.Collect(context.Background(), asm.Egressors[0])
	assert.Equal(t, []int{2, 4, 6}, out)
}

func TestProcessFilter(t *testing.T) {
	evens := link.ProcessorFunc[int, int](func(p int) (int, bool) { return p, p%2 == 0 })

	asm := link.NewProcess[int, int]().
		Ingressor(link.FromSlice(scenarioPackets())).
		WithProcessor(evens).
		BuildLink()

	out := linktest.Collect(context.Background(), asm.Egressors[0])
	assert.Equal(t, []int{0, 2, 420, 4, 6, 8}, out)
}

func TestProcessBuildPanics(t *testing.T) {
	assert.Panics(t, func() {
		link.NewProcess[int, int]().WithProcessor(link.Identity[int]()).BuildLink()
	})
	assert.Panics(t, func() {
		link.NewProcess[int, int]().Ingressor(link.FromSlice([]int{1})).BuildLink()
	})
}
