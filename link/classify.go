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

	"github.com/routegraph/linkrt/log"
	"github.com/routegraph/linkrt/types"
)

// ClassifyBuilder assembles a Classify link: one ingress stream routed to
// exactly one of N egress queues by a classifier+dispatcher pair.
type ClassifyBuilder[I any, C comparable] struct {
	name       string
	ingress    Stream[I]
	classifier Classifier[I, C]
	dispatcher Dispatcher[C]
	numPorts   int
	capacity   int
}

// NewClassify starts a Classify link builder.
func NewClassify[I any, C comparable](name string) *ClassifyBuilder[I, C] {
	return &ClassifyBuilder[I, C]{name: name, capacity: DefaultCapacity}
}

// Ingressor sets the single upstream of this link.
func (b *ClassifyBuilder[I, C]) Ingressor(s Stream[I]) *ClassifyBuilder[I, C] {
	b.ingress = s
	return b
}

// WithClassifier sets the classifier.
func (b *ClassifyBuilder[I, C]) WithClassifier(c Classifier[I, C]) *ClassifyBuilder[I, C] {
	b.classifier = c
	return b
}

// WithDispatcher sets the dispatcher.
func (b *ClassifyBuilder[I, C]) WithDispatcher(d Dispatcher[C]) *ClassifyBuilder[I, C] {
	b.dispatcher = d
	return b
}

// NumEgressors sets N, the number of egress ports.
func (b *ClassifyBuilder[I, C]) NumEgressors(n int) *ClassifyBuilder[I, C] {
	b.numPorts = n
	return b
}

// QueueCapacity overrides DefaultCapacity for every egress port.
func (b *ClassifyBuilder[I, C]) QueueCapacity(c int) *ClassifyBuilder[I, C] {
	b.capacity = c
	return b
}

// BuildLink returns the Classify link's Assembly: one ingressor Runnable
// and N egressor Streams, one per port, each backed by its own Queue and
// TaskPark.
func (b *ClassifyBuilder[I, C]) BuildLink() Assembly[I] {
	if b.ingress == nil {
		buildPanic(shapeOf(types.Classify), "missing ingressor")
	}
	if b.classifier == nil {
		buildPanic(shapeOf(types.Classify), "missing classifier")
	}
	if b.dispatcher == nil {
		buildPanic(shapeOf(types.Classify), "missing dispatcher")
	}
	if b.numPorts < 1 {
		buildPanic(shapeOf(types.Classify), "num_egressors must be >= 1")
	}
	if b.capacity < 1 {
		buildPanic(shapeOf(types.Classify), "queue capacity must be >= 1")
	}

	queues := make([]*Queue[I], b.numPorts)
	for i := range queues {
		queues[i] = NewQueue[I](b.capacity)
	}
	logger := log.New("link", b.name, "shape", shapeOf(types.Classify))

	ingressor := RunnableFunc(func(ctx context.Context) {
		for {
			// Conservative backpressure: a slow consumer on any one port
			// blocks the whole classifier before we even pull upstream,
			// trading head-of-line blocking for a simple, bounded-memory
			// guarantee across all N ports.
			if full := firstFull(queues); full != nil {
				if !full.park.ParkCtx(ctx) {
					killAll(queues)
					return
				}
				continue
			}

			in, ok := b.ingress.Next(ctx)
			if !ok {
				logger.Debugw("upstream ended, broadcasting terminator")
				for _, q := range queues {
					q.SendEndCtx(ctx)
				}
				return
			}

			class := b.classifier.Classify(in)
			port, dispatch := b.dispatcher.Dispatch(class)
			if !dispatch {
				continue
			}
			if port < 0 || port >= len(queues) {
				panic(fmt.Sprintf("link: classify: dispatcher returned out-of-range port %d (N=%d)", port, len(queues)))
			}

			q := queues[port]
			if !q.TrySend(in) {
				// The full-scan above cleared every port and this task is
				// the queue's only producer, so a failed try-send cannot
				// be backpressure.
				panic(fmt.Sprintf("link: classify: try-send failed on non-full port %d", port))
			}
			q.Wake()
		}
	})

	egressors := make([]Stream[I], b.numPorts)
	for i, q := range queues {
		q := q
		egressors[i] = FromFunc(func(ctx context.Context) (I, bool) {
			for {
				p, result := q.TryReceive()
				switch result {
				case recvPacket:
					q.Wake()
					return p, true
				case recvEnded:
					q.park.Kill()
					var zero I
					return zero, false
				case recvEmpty:
					if !q.park.ParkCtx(ctx) {
						var zero I
						return zero, false
					}
				}
			}
		})
	}

	probes := make([]QueueProbe, len(queues))
	for i, q := range queues {
		probes[i] = q.Probe(i)
	}

	return Assembly[I]{
		Runnables: []Runnable{ingressor},
		Egressors: egressors,
		Probes:    probes,
	}
}

// firstFull returns the TaskPark-bearing queue of the first full port
// found, scanning in port order, or nil if none are full.
func firstFull[P any](queues []*Queue[P]) *Queue[P] {
	for _, q := range queues {
		if q.Full() {
			return q
		}
	}
	return nil
}

func killAll[P any](queues []*Queue[P]) {
	for _, q := range queues {
		q.park.Kill()
	}
}
