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

	"github.com/routegraph/linkrt/types"
)

// Cloner produces an independent copy of a packet for fan-out. Types
// that carry pointers or shared buffers (packet.Frame among them) must
// deep-copy so no two egress ports observe the same backing array.
type Cloner[P any] interface {
	Clone() P
}

// CloneOf returns a clone function for packet types implementing Cloner,
// for use with ForkBuilder.WithCloner.
func CloneOf[P Cloner[P]]() func(P) P {
	return func(p P) P { return p.Clone() }
}

// ForkBuilder assembles a Fork link: one ingress stream cloned onto
// every one of N egress queues.
type ForkBuilder[P any] struct {
	name     string
	ingress  Stream[P]
	clone    func(P) P
	numPorts int
	capacity int
}

// NewFork starts a Fork link builder.
func NewFork[P any](name string) *ForkBuilder[P] {
	return &ForkBuilder[P]{name: name, capacity: DefaultCapacity}
}

// Ingressor sets the single upstream of this link.
func (b *ForkBuilder[P]) Ingressor(s Stream[P]) *ForkBuilder[P] {
	b.ingress = s
	return b
}

// WithCloner sets the function used to produce each port's independent
// copy of an incoming packet. BuildLink panics if it was never set,
// rather than assume a plain Go assignment is a safe clone.
func (b *ForkBuilder[P]) WithCloner(c func(P) P) *ForkBuilder[P] {
	b.clone = c
	return b
}

// NumEgressors sets N, the number of egress ports.
func (b *ForkBuilder[P]) NumEgressors(n int) *ForkBuilder[P] {
	b.numPorts = n
	return b
}

// QueueCapacity overrides DefaultCapacity for every egress port.
func (b *ForkBuilder[P]) QueueCapacity(c int) *ForkBuilder[P] {
	b.capacity = c
	return b
}

// BuildLink returns the Fork link's Assembly: one ingressor Runnable and
// N egressor Streams, each fed a clone of every packet the ingressor
// pulls, with the same scan-all-before-pull backpressure as Classify.
func (b *ForkBuilder[P]) BuildLink() Assembly[P] {
	if b.ingress == nil {
		buildPanic(shapeOf(types.Fork), "missing ingressor")
	}
	if b.clone == nil {
		buildPanic(shapeOf(types.Fork), "missing cloner")
	}
	if b.numPorts < 1 {
		buildPanic(shapeOf(types.Fork), "num_egressors must be >= 1")
	}
	if b.capacity < 1 {
		buildPanic(shapeOf(types.Fork), "queue capacity must be >= 1")
	}

	queues := make([]*Queue[P], b.numPorts)
	for i := range queues {
		queues[i] = NewQueue[P](b.capacity)
	}

	ingressor := RunnableFunc(func(ctx context.Context) {
		for {
			if full := firstFull(queues); full != nil {
				if !full.park.ParkCtx(ctx) {
					killAll(queues)
					return
				}
				continue
			}

			in, ok := b.ingress.Next(ctx)
			if !ok {
				for _, q := range queues {
					q.SendEndCtx(ctx)
				}
				return
			}

			for i, q := range queues {
				clone := in
				if i > 0 {
					clone = b.clone(in)
				}
				if !q.TrySend(clone) {
					// Every port had a free slot before the pull and this
					// task is the sole producer on all of them.
					panic(fmt.Sprintf("link: fork: try-send failed on non-full port %d", i))
				}
				q.Wake()
			}
		}
	})

	egressors := make([]Stream[P], b.numPorts)
	for i, q := range queues {
		q := q
		egressors[i] = FromFunc(func(ctx context.Context) (P, bool) {
			for {
				p, result := q.TryReceive()
				switch result {
				case recvPacket:
					q.Wake()
					return p, true
				case recvEnded:
					q.park.Kill()
					var zero P
					return zero, false
				case recvEmpty:
					if !q.park.ParkCtx(ctx) {
						var zero P
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

	return Assembly[P]{
		Runnables: []Runnable{ingressor},
		Egressors: egressors,
		Probes:    probes,
	}
}
