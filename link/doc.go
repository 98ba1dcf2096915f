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

// Package link is the runtime for packet-processing graphs: processing
// nodes communicating exclusively through typed bounded queues, built
// from a small set of primitive shapes (Process, Queue, Classify, Fork,
// Join, Drop and the channel bridges) and driven by one goroutine per
// long-lived task.
//
// Every queue carries Option-like entries where an in-band terminator
// travels the same path as data, and every queue is coordinated by a
// TaskPark, a cell holding exactly one of four states:
//
//	Empty           no task is waiting; a pending bit records a
//	                work-available signal that arrived with nobody parked
//	Parked          one task registered its wakeup channel and is asleep
//	IndirectParked  a shared WakerCell is registered (Join's egressor
//	                sleeping on all M inputs at once)
//	Dead            the peer terminated; no future signal will come
//
// Transitions are atomic, Dead is terminal, and a registered waiter is
// roused exactly once — by the peer's next transition, or immediately if
// the peer is already Dead. A task parking over a registration it finds
// in the cell wakes that registration as it takes over, so whichever
// side loses a park race is always woken by the winner; together with
// the pending latch this is what keeps every graph shape free of lost
// wakeups without any OS-level blocking.
package link
