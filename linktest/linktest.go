package linktest

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
	"sync"

	"github.com/routegraph/linkrt/link"
)

// Collect drains s to exhaustion and returns every packet it yielded,
// in order.
func Collect[P any](ctx context.Context, s link.Stream[P]) (packets []P) {
	for {
		p, ok := s.Next(ctx)
		if !ok {
			return packets
		}
		packets = append(packets, p)
	}
}

// Spawn runs every runnable in its own goroutine and returns a function
// that blocks until all of them have returned.
func Spawn(ctx context.Context, runnables []link.Runnable) (wait func()) {
	wg := &sync.WaitGroup{}
	for _, r := range runnables {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run(ctx)
		}()
	}
	return wg.Wait
}

// RunLink drives a built link to completion: its runnables are spawned,
// every egressor is drained concurrently, and the per-port results are
// returned in egressor order once everything has settled. Egressors must
// be drained concurrently with each other and with the runnables, or a
// full queue on one port would wedge the whole link under the
// block-on-any-full backpressure rule.
func RunLink[P any](ctx context.Context, asm link.Assembly[P]) (results [][]P) {
	wait := Spawn(ctx, asm.Runnables)

	results = make([][]P, len(asm.Egressors))
	wg := &sync.WaitGroup{}
	for i, egress := range asm.Egressors {
		i, egress := i, egress
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = Collect(ctx, egress)
		}()
	}

	wg.Wait()
	wait()
	return results
}
