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
	"github.com/routegraph/linkrt/types"
)

// pipelineGraph wires source -> queue -> sink and returns the graph plus
// the channel the sink drains into.
func pipelineGraph(t *testing.T, input []int) (*link.Graph, <-chan int) {
	in := make(chan int, len(input))
	for _, p := range input {
		in <- p
	}
	close(in)

	source := link.NewInputChannel(in).BuildLink()
	queued := link.NewQueueLink[int, int]("pipe").
		Ingressor(source.Egressors[0]).
		WithProcessor(link.Identity[int]()).
		BuildLink()
	sink, out := link.NewOutputChannel[int]().
		Ingressor(queued.Egressors[0]).
		ChannelCapacity(len(input)).
		BuildLink()

	g := link.NewGraph("pipeline")
	assert.NoError(t, link.Add(g, "source", types.InputChannel, source))
	assert.NoError(t, link.Add(g, "pipe", types.Queue, queued, "source"))
	assert.NoError(t, link.Add(g, "sink", types.OutputChannel, sink, "pipe"))

	return g, out
}

func TestGraphRunToCompletion(t *testing.T) {
	g, out := pipelineGraph(t, scenarioPackets())

	assert.NoError(t, g.Run(context.Background()))
	assert.NoError(t, g.Wait())

	var got []int
	for p := range out {
		got = append(got, p)
	}
	assert.Equal(t, scenarioPackets(), got)
}

func TestGraphAddValidation(t *testing.T) {
	g := link.NewGraph("bad")
	asm := link.Assembly[int]{}

	assert.NoError(t, link.Add(g, "a", types.Process, asm))
	assert.Error(t, link.Add(g, "a", types.Process, asm))
	assert.Error(t, link.Add(g, "", types.Process, asm))
	assert.Error(t, link.Add(g, "b", types.Process, asm, "missing"))
	assert.Error(t, link.Add(g, "c", types.Process, asm, "c"))
}

func TestGraphDoubleRun(t *testing.T) {
	g, out := pipelineGraph(t, scenarioPackets())

	assert.NoError(t, g.Run(context.Background()))
	assert.Error(t, g.Run(context.Background()))
	assert.NoError(t, g.Wait())
	for range out {
	}
}

func TestGraphWaitWithoutRun(t *testing.T) {
	g := link.NewGraph("idle")
	assert.Error(t, g.Wait())
	assert.Error(t, g.Close())
}

func TestGraphLinks(t *testing.T) {
	g, out := pipelineGraph(t, scenarioPackets())

	links := g.Links()
	assert.Len(t, links, 3)

	byName := map[string]link.LinkInfo{}
	for _, l := range links {
		byName[l.Name] = l
	}
	assert.Equal(t, "queue", byName["pipe"].Shape)
	assert.Equal(t, []string{"source"}, byName["pipe"].Upstreams)
	assert.Equal(t, 1, byName["pipe"].Runnables)
	assert.Len(t, byName["pipe"].Queues, 1)

	assert.NoError(t, g.Run(context.Background()))
	assert.NoError(t, g.Wait())
	for range out {
	}
}

func TestGraphDotGraph(t *testing.T) {
	g, out := pipelineGraph(t, scenarioPackets())

	dot := g.DotGraph()
	assert.Contains(t, dot, `"source" -> "pipe"`)
	assert.Contains(t, dot, `"pipe" -> "sink"`)

	assert.NoError(t, g.Run(context.Background()))
	assert.NoError(t, g.Wait())
	for range out {
	}
}

func TestGraphClose(t *testing.T) {
	// A source that never ends: Close must tear the graph down anyway.
	in := make(chan int)
	source := link.NewInputChannel(in).BuildLink()
	queued := link.NewQueueLink[int, int]("pipe").
		Ingressor(source.Egressors[0]).
		WithProcessor(link.Identity[int]()).
		BuildLink()
	drop := link.NewDrop[int]().Ingressor(queued.Egressors[0]).BuildLink()

	g := link.NewGraph("endless")
	assert.NoError(t, link.Add(g, "source", types.InputChannel, source))
	assert.NoError(t, link.Add(g, "pipe", types.Queue, queued, "source"))
	assert.NoError(t, link.Add(g, "sink", types.Drop, drop, "pipe"))

	assert.NoError(t, g.Run(context.Background()))
	assert.NoError(t, g.Close())
}

func TestGraphRepanicsTaskPanic(t *testing.T) {
	boom := link.RunnableFunc(func(ctx context.Context) {
		panic("task blew up")
	})

	g := link.NewGraph("panicky")
	assert.NoError(t, link.Add(g, "boom", types.Process, link.Assembly[int]{Runnables: []link.Runnable{boom}}))

	assert.NoError(t, g.Run(context.Background()))
	assert.PanicsWithValue(t, "task blew up", func() { g.Wait() })
}
