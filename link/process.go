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

// ProcessBuilder assembles a Process link: a stateless, synchronous,
// one-to-one transform with no internal queue, no parking and no
// concurrency across the boundary — the processor runs on whichever task
// drains the egress.
type ProcessBuilder[I, O any] struct {
	ingress   Stream[I]
	processor Processor[I, O]
}

// NewProcess starts a Process link builder.
func NewProcess[I, O any]() *ProcessBuilder[I, O] {
	return &ProcessBuilder[I, O]{}
}

// Ingressor sets the single upstream of this link.
func (b *ProcessBuilder[I, O]) Ingressor(s Stream[I]) *ProcessBuilder[I, O] {
	b.ingress = s
	return b
}

// WithProcessor sets the processor applied to every packet.
func (b *ProcessBuilder[I, O]) WithProcessor(p Processor[I, O]) *ProcessBuilder[I, O] {
	b.processor = p
	return b
}

// BuildLink returns the Process link's Assembly: zero Runnables and one
// egress stream. Panics if ingress or processor is missing.
func (b *ProcessBuilder[I, O]) BuildLink() Assembly[O] {
	if b.ingress == nil {
		buildPanic(shapeOf(types.Process), "missing ingressor")
	}
	if b.processor == nil {
		buildPanic(shapeOf(types.Process), "missing processor")
	}

	egress := FromFunc(func(ctx context.Context) (O, bool) {
		for {
			in, ok := b.ingress.Next(ctx)
			if !ok {
				var zero O
				return zero, false
			}
			if out, keep := b.processor.Process(in); keep {
				return out, true
			}
		}
	})

	return Assembly[O]{Egressors: []Stream[O]{egress}}
}
