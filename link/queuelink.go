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

	"github.com/routegraph/linkrt/log"
	"github.com/routegraph/linkrt/types"
)

// QueueLinkBuilder assembles a Queue link: the same Process contract, but
// with a bounded queue and a task boundary between the ingressor and the
// egressor, coordinated by one TaskPark.
type QueueLinkBuilder[I, O any] struct {
	name      string
	ingress   Stream[I]
	processor Processor[I, O]
	capacity  int
}

// NewQueueLink starts a Queue link builder.
func NewQueueLink[I, O any](name string) *QueueLinkBuilder[I, O] {
	return &QueueLinkBuilder[I, O]{name: name, capacity: DefaultCapacity}
}

// Ingressor sets the single upstream of this link.
func (b *QueueLinkBuilder[I, O]) Ingressor(s Stream[I]) *QueueLinkBuilder[I, O] {
	b.ingress = s
	return b
}

// WithProcessor sets the processor applied to every packet before it is
// enqueued.
func (b *QueueLinkBuilder[I, O]) WithProcessor(p Processor[I, O]) *QueueLinkBuilder[I, O] {
	b.processor = p
	return b
}

// QueueCapacity overrides DefaultCapacity.
func (b *QueueLinkBuilder[I, O]) QueueCapacity(c int) *QueueLinkBuilder[I, O] {
	b.capacity = c
	return b
}

// BuildLink returns the Queue link's Assembly: one ingressor Runnable and
// one egressor Stream, sharing a single bounded Queue and TaskPark.
func (b *QueueLinkBuilder[I, O]) BuildLink() Assembly[O] {
	if b.ingress == nil {
		buildPanic(shapeOf(types.Queue), "missing ingressor")
	}
	if b.processor == nil {
		buildPanic(shapeOf(types.Queue), "missing processor")
	}
	if b.capacity < 1 {
		buildPanic(shapeOf(types.Queue), "queue capacity must be >= 1")
	}

	q := NewQueue[O](b.capacity)
	logger := log.New("link", b.name, "shape", shapeOf(types.Queue))

	ingressor := RunnableFunc(func(ctx context.Context) {
		for {
			in, ok := b.ingress.Next(ctx)
			if !ok {
				q.SendEndCtx(ctx)
				return
			}
			out, keep := b.processor.Process(in)
			if !keep {
				continue
			}
			if !q.SendCtx(ctx, out) {
				logger.Debugw("ingressor cancelled while sending")
				q.park.Kill()
				return
			}
		}
	})

	egress := FromFunc(func(ctx context.Context) (O, bool) {
		for {
			p, result := q.TryReceive()
			switch result {
			case recvPacket:
				q.Wake()
				return p, true
			case recvEnded:
				q.park.Kill()
				var zero O
				return zero, false
			case recvEmpty:
				if !q.park.ParkCtx(ctx) {
					var zero O
					return zero, false
				}
				// Woken (either by a real Wake, or because the park was
				// already Dead): loop back and retry the receive so a
				// trailing terminator already in the channel is drained
				// before we report Done.
			}
		}
	})

	return Assembly[O]{
		Runnables: []Runnable{ingressor},
		Egressors: []Stream[O]{egress},
		Probes:    []QueueProbe{q.Probe(0)},
	}
}
