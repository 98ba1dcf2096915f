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

// JoinBuilder assembles a Join link: M independent upstreams merged into
// a single egress stream, visited round-robin so no one input can starve
// another as long as it keeps producing.
type JoinBuilder[I any] struct {
	name     string
	ingress  []Stream[I]
	capacity int
}

// NewJoin starts a Join link builder.
func NewJoin[I any](name string) *JoinBuilder[I] {
	return &JoinBuilder[I]{name: name, capacity: DefaultCapacity}
}

// Ingressors sets the M upstreams merged by this link. Order determines
// the initial round-robin visitation order, not any priority.
func (b *JoinBuilder[I]) Ingressors(streams ...Stream[I]) *JoinBuilder[I] {
	b.ingress = streams
	return b
}

// QueueCapacity overrides DefaultCapacity for every ingress queue.
func (b *JoinBuilder[I]) QueueCapacity(c int) *JoinBuilder[I] {
	b.capacity = c
	return b
}

// BuildLink returns the Join link's Assembly: M ingressor Runnables, one
// per upstream, and a single fair egressor Stream.
func (b *JoinBuilder[I]) BuildLink() Assembly[I] {
	if len(b.ingress) < 1 {
		buildPanic(shapeOf(types.Join), "join requires at least 1 ingressor")
	}
	if b.capacity < 1 {
		buildPanic(shapeOf(types.Join), "queue capacity must be >= 1")
	}

	m := len(b.ingress)
	queues := make([]*Queue[I], m)
	for i := range queues {
		queues[i] = NewQueue[I](b.capacity)
	}

	runnables := make([]Runnable, m)
	for i, up := range b.ingress {
		up, q := up, queues[i]
		runnables[i] = RunnableFunc(func(ctx context.Context) {
			for {
				in, ok := up.Next(ctx)
				if !ok {
					q.SendEndCtx(ctx)
					return
				}
				if !q.SendCtx(ctx, in) {
					q.park.Kill()
					return
				}
				q.Wake()
			}
		})
	}

	alive := make([]bool, m)
	for i := range alive {
		alive[i] = true
	}
	aliveCount := m
	cursor := 0
	cell := NewWakerCell()

	egress := FromFunc(func(ctx context.Context) (I, bool) {
		for {
			if aliveCount == 0 {
				var zero I
				return zero, false
			}

			for scanned := 0; scanned < m; scanned++ {
				idx := cursor
				cursor = (cursor + 1) % m
				if !alive[idx] {
					continue
				}

				p, result := queues[idx].TryReceive()
				switch result {
				case recvPacket:
					queues[idx].Wake()
					return p, true
				case recvEnded:
					alive[idx] = false
					aliveCount--
					queues[idx].park.Kill()
					if aliveCount == 0 {
						var zero I
						return zero, false
					}
				case recvEmpty:
					// keep scanning the remaining alive ports this round
				}
			}

			// A full round found nothing ready: register this cell on
			// every still-alive ingress TaskPark and sleep once until
			// whichever one delivers first claims it.
			cell.Rearm()
			for idx, ok := range alive {
				if ok {
					queues[idx].park.InstallIndirect(cell)
				}
			}
			select {
			case <-cell.done():
			case <-ctx.Done():
				var zero I
				return zero, false
			}
		}
	})

	probes := make([]QueueProbe, m)
	for i, q := range queues {
		probes[i] = q.Probe(i)
	}

	return Assembly[I]{
		Runnables: runnables,
		Egressors: []Stream[I]{egress},
		Probes:    probes,
	}
}
