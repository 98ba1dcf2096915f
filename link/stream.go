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

	"github.com/routegraph/linkrt/types"
)

// Waker is called by whichever side of a queue made progress, to rouse a
// peer that parked waiting for that progress.
type Waker func()

// Stream is a lazily-pulled, finite sequence of packets exposed by a link's
// egress port. Next blocks the calling goroutine, without busy-spinning,
// until a packet is available or the stream has ended; it never restarts
// once it reports end of stream.
type Stream[P any] interface {
	Next(ctx context.Context) (packet P, ok bool)
}

// Runnable is a long-lived task that must be driven by the caller's
// scheduler. In this runtime "the scheduler" is simply a goroutine per
// Runnable; Run blocks until its upstream ends or ctx is cancelled.
type Runnable interface {
	Run(ctx context.Context)
}

// RunnableFunc adapts a function to Runnable.
type RunnableFunc func(ctx context.Context)

// Run implements Runnable.
func (f RunnableFunc) Run(ctx context.Context) { f(ctx) }

// Assembly is the value produced by build_link: an unordered set of
// Runnables to be spawned on the scheduler, and an ordered list of egress
// streams the caller composes into further links or drains directly.
// Probes are optional hooks onto the link's internal queues, consumed by
// Graph.Links for introspection; they play no part in packet flow.
type Assembly[P any] struct {
	Runnables []Runnable
	Egressors []Stream[P]
	Probes    []QueueProbe
}

// QueueProbe exposes a live reading of one internal queue.
type QueueProbe struct {
	Port  int
	Depth func() int
	Dead  func() bool
}

// sliceStream adapts a plain slice into a Stream, used as a finite source
// by tests and by callers feeding a graph from memory.
type sliceStream[P any] struct {
	items []P
	pos   int
}

// FromSlice returns a Stream that yields items in order and then ends.
func FromSlice[P any](items []P) Stream[P] {
	return &sliceStream[P]{items: items}
}

func (s *sliceStream[P]) Next(ctx context.Context) (P, bool) {
	if s.pos >= len(s.items) {
		var zero P
		return zero, false
	}
	p := s.items[s.pos]
	s.pos++
	return p, true
}

// funcStream adapts a Next-shaped function into a Stream.
type funcStream[P any] struct {
	next func(ctx context.Context) (P, bool)
}

// FromFunc builds a Stream from a next function, for collaborators
// (external channels, pcap readers) that already have one.
func FromFunc[P any](next func(ctx context.Context) (P, bool)) Stream[P] {
	return &funcStream[P]{next: next}
}

func (s *funcStream[P]) Next(ctx context.Context) (P, bool) { return s.next(ctx) }

// shapeOf returns the Shape a builder is assembling, used only in panic
// messages so build-time errors name the offending link.
func shapeOf(s types.Shape) string { return s.String() }
