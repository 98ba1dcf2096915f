package composite

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
	"github.com/routegraph/linkrt/link"
)

// MtoNBuilder assembles an M-to-N composite: a fair Join over M ingress
// streams feeding a Fork that broadcasts the merged stream onto N egress
// ports. Join's fairness and Fork's broadcast property both survive the
// composition; no inter-input order is promised on any egress, same as
// for Join alone.
type MtoNBuilder[P any] struct {
	name         string
	ingress      []link.Stream[P]
	clone        func(P) P
	numEgressors int
	joinCapacity int
	forkCapacity int
}

// NewMtoN starts an MtoN composite builder.
func NewMtoN[P any](name string) *MtoNBuilder[P] {
	return &MtoNBuilder[P]{
		name:         name,
		joinCapacity: link.DefaultCapacity,
		forkCapacity: link.DefaultCapacity,
	}
}

// Ingressors sets the M upstreams merged by this composite.
func (b *MtoNBuilder[P]) Ingressors(streams ...link.Stream[P]) *MtoNBuilder[P] {
	b.ingress = streams
	return b
}

// WithCloner sets the function Fork uses to copy packets per port.
func (b *MtoNBuilder[P]) WithCloner(c func(P) P) *MtoNBuilder[P] {
	b.clone = c
	return b
}

// NumEgressors sets N, the number of broadcast egress ports.
func (b *MtoNBuilder[P]) NumEgressors(n int) *MtoNBuilder[P] {
	b.numEgressors = n
	return b
}

// JoinQueueCapacity overrides the default capacity of the M merge queues.
func (b *MtoNBuilder[P]) JoinQueueCapacity(c int) *MtoNBuilder[P] {
	b.joinCapacity = c
	return b
}

// ForkQueueCapacity overrides the default capacity of the N egress queues.
func (b *MtoNBuilder[P]) ForkQueueCapacity(c int) *MtoNBuilder[P] {
	b.forkCapacity = c
	return b
}

// BuildLink assembles the composite: Join's runnables plus Fork's, with
// Fork's N egressors as the composite's egress ports.
func (b *MtoNBuilder[P]) BuildLink() link.Assembly[P] {
	join := link.NewJoin[P](b.name + "_join").
		Ingressors(b.ingress...).
		QueueCapacity(b.joinCapacity).
		BuildLink()

	fork := link.NewFork[P](b.name + "_fork").
		Ingressor(join.Egressors[0]).
		WithCloner(b.clone).
		NumEgressors(b.numEgressors).
		QueueCapacity(b.forkCapacity).
		BuildLink()

	return link.Assembly[P]{
		Runnables: append(join.Runnables, fork.Runnables...),
		Egressors: fork.Egressors,
		Probes:    mergeProbes(join.Probes, fork.Probes),
	}
}

// MTransformNBuilder is MtoN with a processor between the merge and the
// broadcast: every packet that survives the transform is cloned onto all
// N egress ports.
type MTransformNBuilder[I, O any] struct {
	name         string
	ingress      []link.Stream[I]
	processor    link.Processor[I, O]
	clone        func(O) O
	numEgressors int
	joinCapacity int
	forkCapacity int
}

// NewMTransformN starts an MTransformN composite builder.
func NewMTransformN[I, O any](name string) *MTransformNBuilder[I, O] {
	return &MTransformNBuilder[I, O]{
		name:         name,
		joinCapacity: link.DefaultCapacity,
		forkCapacity: link.DefaultCapacity,
	}
}

// Ingressors sets the M upstreams merged by this composite.
func (b *MTransformNBuilder[I, O]) Ingressors(streams ...link.Stream[I]) *MTransformNBuilder[I, O] {
	b.ingress = streams
	return b
}

// WithProcessor sets the transform applied between the merge and the
// broadcast.
func (b *MTransformNBuilder[I, O]) WithProcessor(p link.Processor[I, O]) *MTransformNBuilder[I, O] {
	b.processor = p
	return b
}

// WithCloner sets the function Fork uses to copy transformed packets.
func (b *MTransformNBuilder[I, O]) WithCloner(c func(O) O) *MTransformNBuilder[I, O] {
	b.clone = c
	return b
}

// NumEgressors sets N, the number of broadcast egress ports.
func (b *MTransformNBuilder[I, O]) NumEgressors(n int) *MTransformNBuilder[I, O] {
	b.numEgressors = n
	return b
}

// JoinQueueCapacity overrides the default capacity of the M merge queues.
func (b *MTransformNBuilder[I, O]) JoinQueueCapacity(c int) *MTransformNBuilder[I, O] {
	b.joinCapacity = c
	return b
}

// ForkQueueCapacity overrides the default capacity of the N egress queues.
func (b *MTransformNBuilder[I, O]) ForkQueueCapacity(c int) *MTransformNBuilder[I, O] {
	b.forkCapacity = c
	return b
}

// BuildLink assembles Join -> Process -> Fork. The Process stage adds no
// runnable of its own; the transform runs inline on Fork's ingressor
// task as it drains the merge.
func (b *MTransformNBuilder[I, O]) BuildLink() link.Assembly[O] {
	join := link.NewJoin[I](b.name + "_join").
		Ingressors(b.ingress...).
		QueueCapacity(b.joinCapacity).
		BuildLink()

	transform := link.NewProcess[I, O]().
		Ingressor(join.Egressors[0]).
		WithProcessor(b.processor).
		BuildLink()

	fork := link.NewFork[O](b.name + "_fork").
		Ingressor(transform.Egressors[0]).
		WithCloner(b.clone).
		NumEgressors(b.numEgressors).
		QueueCapacity(b.forkCapacity).
		BuildLink()

	return link.Assembly[O]{
		Runnables: append(join.Runnables, fork.Runnables...),
		Egressors: fork.Egressors,
		Probes:    mergeProbes(join.Probes, fork.Probes),
	}
}

// mergeProbes renumbers the second stage's probe ports past the first
// stage's, so a composite's queues stay distinguishable in Graph.Links.
func mergeProbes(first, second []link.QueueProbe) (probes []link.QueueProbe) {
	probes = append(probes, first...)
	for _, p := range second {
		p.Port += len(first)
		probes = append(probes, p)
	}
	return probes
}
