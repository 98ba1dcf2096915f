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
	"fmt"
	"strings"
	"sync"

	"github.com/routegraph/linkrt/log"
	"github.com/routegraph/linkrt/types"
)

// QueueInfo is a point-in-time reading of one of a link's internal
// queues, taken through the QueueProbe its builder registered.
type QueueInfo struct {
	Port  int  `json:"port"`
	Depth int  `json:"depth"`
	Dead  bool `json:"dead"`
}

// LinkInfo describes one registered link for introspection.
type LinkInfo struct {
	Name      string      `json:"name"`
	Shape     string      `json:"shape"`
	Upstreams []string    `json:"upstreams,omitempty"`
	Runnables int         `json:"runnables"`
	Egressors int         `json:"egressors"`
	Queues    []QueueInfo `json:"queues,omitempty"`
}

type graphNode struct {
	name      string
	shape     types.Shape
	upstreams []string
	runnables []Runnable
	egressors int
	probes    []QueueProbe
}

// Graph accumulates the assemblies of built links, validates the wiring
// the caller declares between them, and drives every Runnable to
// completion. The typed Stream plumbing between links happens at build
// time in the caller's code; the Graph holds the untyped leftovers: which
// tasks to spawn and the by-name topology for introspection.
type Graph struct {
	mu      sync.Mutex
	name    string
	nodes   []*graphNode
	running bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	panicV  interface{}
}

// NewGraph creates an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{name: name}
}

// Add registers a built link's assembly under name, wired downstream of
// the named upstreams. Every upstream must have been added before its
// consumers, which also keeps the declared topology acyclic.
func Add[P any](g *Graph, name string, shape types.Shape, asm Assembly[P], upstreams ...string) (err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running || g.closed {
		return errGraphRunning
	}
	if name == "" {
		return errEmptyName
	}
	if g.node(name) != nil {
		return fmt.Errorf("%w: %s", errDuplicateName, name)
	}
	for _, up := range upstreams {
		if up == name || g.node(up) == nil {
			return fmt.Errorf("%w: %s -> %s", errUnknownUpstream, up, name)
		}
	}

	g.nodes = append(g.nodes, &graphNode{
		name:      name,
		shape:     shape,
		upstreams: upstreams,
		runnables: asm.Runnables,
		egressors: len(asm.Egressors),
		probes:    asm.Probes,
	})
	return nil
}

// Run spawns every registered Runnable in its own goroutine. The graph
// runs until all tasks return on their own (every source exhausted, every
// sink drained) or until ctx is cancelled, which each task observes as
// the in-flight teardown path: terminators go downstream, TaskParks die,
// peers unpark.
func (g *Graph) Run(ctx context.Context) (err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running || g.closed {
		return errGraphRunning
	}
	g.running = true

	ctx, g.cancel = context.WithCancel(ctx)
	for _, n := range g.nodes {
		logger := log.New("graph", g.name, "link", n.name, "shape", n.shape.String())
		for i, r := range n.runnables {
			r, task := r, i
			g.wg.Add(1)
			go func() {
				defer g.wg.Done()
				defer func() {
					if v := recover(); v != nil {
						logger.Errorw("task panicked", "task", task, "panic", v)
						g.mu.Lock()
						if g.panicV == nil {
							g.panicV = v
						}
						g.mu.Unlock()
						g.cancel()
					}
				}()
				r.Run(ctx)
			}()
		}
	}

	return nil
}

// Wait blocks until every task has returned. If any task panicked, the
// first recovered value is re-raised on the caller's goroutine; runtime
// bugs stay panics, they do not soften into errors.
func (g *Graph) Wait() (err error) {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return errGraphNotRunning
	}
	g.mu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.running = false
	g.closed = true
	g.cancel()
	if g.panicV != nil {
		panic(g.panicV)
	}
	return nil
}

// Close cancels the graph's context, tearing down all tasks mid-flight,
// then waits for them to return.
func (g *Graph) Close() (err error) {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return errGraphNotRunning
	}
	g.cancel()
	g.mu.Unlock()

	return g.Wait()
}

// Links returns a snapshot of every registered link, with live queue
// readings where the link's builder registered probes.
func (g *Graph) Links() (links []LinkInfo) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, n := range g.nodes {
		info := LinkInfo{
			Name:      n.name,
			Shape:     n.shape.String(),
			Upstreams: n.upstreams,
			Runnables: len(n.runnables),
			Egressors: n.egressors,
		}
		for _, p := range n.probes {
			info.Queues = append(info.Queues, QueueInfo{
				Port:  p.Port,
				Depth: p.Depth(),
				Dead:  p.Dead(),
			})
		}
		links = append(links, info)
	}

	return links
}

// DotGraph generates a DOT graph representation of the declared topology.
func (g *Graph) DotGraph() (graph string) {

	sb := &strings.Builder{}
	sb.WriteString("digraph GRAPH {\nrankdir=LR;\n")

	for _, n := range g.nodes {
		for _, up := range n.upstreams {
			sb.WriteString(fmt.Sprintf(`"%s" -> "%s"`, up, n.name))
			sb.WriteString("\r\n")
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func (g *Graph) node(name string) (n *graphNode) {
	for i := range g.nodes {
		if g.nodes[i].name == name {
			return g.nodes[i]
		}
	}
	return nil
}
