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
	"github.com/dgryski/go-jump"

	"github.com/routegraph/linkrt/link"
)

// Shard composes Classify, N parallel Process links and Join into one
// fan-out/fan-in unit: packets with the same key, as computed by keyFn,
// are always routed to the same one of n workers, so a stateful proc
// (a per-flow counter, a dedup cache) sees every packet for its key on a
// single goroutine, while unrelated keys process concurrently. jump.Hash
// gives this a consistent assignment that stays stable as long as n does
// not change mid-run, the same guarantee the teacher's node task buffers
// relied on to keep same-key records on one task.
//
// The merged output from Join makes no promise about the relative order
// of packets that started on different shards; see Join's fairness
// property for what it does guarantee.
func Shard[P any](name string, ingress link.Stream[P], n int, keyFn func(P) uint64, proc link.Processor[P, P]) link.Assembly[P] {
	if n < 1 {
		panic("composite: shard: n must be >= 1")
	}

	classify := link.NewClassify[P, int](name + "_classify").
		Ingressor(ingress).
		WithClassifier(link.ClassifierFunc[P, int](func(p P) int {
			return int(jump.Hash(keyFn(p), n))
		})).
		WithDispatcher(link.DispatcherFunc[int](func(shard int) (int, bool) {
			return shard, true
		})).
		NumEgressors(n).
		BuildLink()

	if n == 1 {
		worker := link.NewProcess[P, P]().Ingressor(classify.Egressors[0]).WithProcessor(proc).BuildLink()
		return link.Assembly[P]{
			Runnables: classify.Runnables,
			Egressors: worker.Egressors,
			Probes:    classify.Probes,
		}
	}

	workerStreams := make([]link.Stream[P], n)
	for i, egress := range classify.Egressors {
		workerStreams[i] = link.NewProcess[P, P]().Ingressor(egress).WithProcessor(proc).BuildLink().Egressors[0]
	}

	join := link.NewJoin[P](name + "_join").Ingressors(workerStreams...).BuildLink()

	return link.Assembly[P]{
		Runnables: append(classify.Runnables, join.Runnables...),
		Egressors: join.Egressors,
		Probes:    mergeProbes(classify.Probes, join.Probes),
	}
}
