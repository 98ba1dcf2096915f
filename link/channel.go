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

// InputChannelBuilder bridges a plain Go channel, fed by code outside the
// graph, into a Stream egress. It has no Runnables: the Stream simply
// receives from the channel, treating its close as end of stream.
type InputChannelBuilder[P any] struct {
	ch <-chan P
}

// NewInputChannel starts an InputChannel link builder over ch. The caller
// owns ch and must close it to signal end of stream; closing it is the
// only termination signal this link recognizes, there is no separate
// end-of-stream sentinel on a plain Go channel.
func NewInputChannel[P any](ch <-chan P) *InputChannelBuilder[P] {
	return &InputChannelBuilder[P]{ch: ch}
}

// BuildLink returns the InputChannel link's Assembly: zero Runnables and
// one egress Stream.
func (b *InputChannelBuilder[P]) BuildLink() Assembly[P] {
	if b.ch == nil {
		buildPanic(shapeOf(types.InputChannel), "missing channel")
	}

	egress := FromFunc(func(ctx context.Context) (P, bool) {
		select {
		case p, ok := <-b.ch:
			return p, ok
		case <-ctx.Done():
			var zero P
			return zero, false
		}
	})

	return Assembly[P]{Egressors: []Stream[P]{egress}}
}

// OutputChannelBuilder bridges a link's egress into a plain Go channel
// that code outside the graph can select on. It owns the channel and
// closes it when its ingressor ends, standing in for the spec's
// ToChannel sink.
type OutputChannelBuilder[P any] struct {
	ingress  Stream[P]
	capacity int
}

// NewOutputChannel starts an OutputChannel link builder.
func NewOutputChannel[P any]() *OutputChannelBuilder[P] {
	return &OutputChannelBuilder[P]{capacity: DefaultCapacity}
}

// Ingressor sets the single upstream of this link.
func (b *OutputChannelBuilder[P]) Ingressor(s Stream[P]) *OutputChannelBuilder[P] {
	b.ingress = s
	return b
}

// ChannelCapacity sets the buffer of the channel returned by BuildLink.
func (b *OutputChannelBuilder[P]) ChannelCapacity(c int) *OutputChannelBuilder[P] {
	b.capacity = c
	return b
}

// BuildLink returns the OutputChannel link's Assembly (one Runnable, zero
// Egressors) together with the receive-only channel callers outside the
// graph should read from.
func (b *OutputChannelBuilder[P]) BuildLink() (Assembly[P], <-chan P) {
	if b.ingress == nil {
		buildPanic(shapeOf(types.OutputChannel), "missing ingressor")
	}

	out := make(chan P, b.capacity)
	pump := RunnableFunc(func(ctx context.Context) {
		defer close(out)
		for {
			p, ok := b.ingress.Next(ctx)
			if !ok {
				return
			}
			select {
			case out <- p:
			case <-ctx.Done():
				return
			}
		}
	})

	return Assembly[P]{Runnables: []Runnable{pump}}, out
}
