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
	"sync"
)

// parkState is the state a TaskPark is in, see the package doc for the
// transition table.
type parkState uint8

const (
	stateEmpty parkState = iota
	stateParked
	stateIndirect
	stateDead
)

// TaskPark is the atomic handshake cell shared between the two tasks on
// either side of one bounded queue (or, for Join's egressor, shared with
// all M ingressor-side TaskParks at once via InstallIndirect). It holds
// exactly one of Empty, Parked, IndirectParked or Dead at any instant;
// every transition happens under mu so the four invariants in the package
// doc (single state, atomic transition, Dead is terminal, a parked waker
// fires exactly once) hold without the caller doing anything special.
//
// Park blocks the calling goroutine on a private channel instead of
// spinning; Wake closes that channel to let the Go scheduler resume the
// parked goroutine on its own time, which is this runtime's stand-in for
// the spec's "task parking protocol" — no OS thread ever blocks, only a
// goroutine yields to the scheduler.
//
// pending is the latched work-available signal: a Wake that finds no
// registration leaves the cell Empty with pending set, and the next
// Park/InstallIndirect consumes the latch instead of sleeping. Without
// it a wake delivered between a failed try-operation and the park that
// follows would be lost, leaving both sides asleep with work queued.
type TaskPark struct {
	mu      sync.Mutex
	state   parkState
	pending bool
	ch      chan struct{}
	cell    *WakerCell
}

// NewTaskPark returns a TaskPark in the Empty state.
func NewTaskPark() *TaskPark {
	return &TaskPark{state: stateEmpty}
}

// Park blocks until woken by the peer's next Wake/Kill, or returns
// immediately if the peer is already Dead. Any peer registration already
// in the cell is woken as part of taking it over: whichever task loses
// the race to park is always roused by the winner, which is what rules
// out the both-sides-asleep-with-work-pending deadlock.
func (p *TaskPark) Park() {
	p.mu.Lock()
	if p.state == stateDead {
		p.mu.Unlock()
		return
	}
	if p.pending {
		p.pending = false
		p.mu.Unlock()
		return
	}
	p.wakeLocked()
	ch := make(chan struct{})
	p.ch = ch
	p.state = stateParked
	p.mu.Unlock()

	<-ch
}

// ParkCtx behaves like Park but also returns early with woken=false if
// ctx is cancelled first. The graph's own shutdown path uses this instead
// of Park so a cancelled runnable never leaks a parked goroutine.
func (p *TaskPark) ParkCtx(ctx context.Context) (woken bool) {
	p.mu.Lock()
	if p.state == stateDead {
		p.mu.Unlock()
		return true
	}
	if p.pending {
		p.pending = false
		p.mu.Unlock()
		return true
	}
	p.wakeLocked()
	ch := make(chan struct{})
	p.ch = ch
	p.state = stateParked
	p.mu.Unlock()

	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}

// InstallIndirect registers cell as this TaskPark's waker slot without
// blocking the caller. It is used only by Join's egressor, which must
// register the same cell on all M ingress TaskParks before it can park on
// any of them, then wait once on cell.done() for whichever ingressor
// delivers first. A peer that is already Dead cannot be registered onto,
// so InstallIndirect fires the cell immediately instead, matching Wake's
// "a dead park still rouses its waiter" rule.
func (p *TaskPark) InstallIndirect(cell *WakerCell) {
	p.mu.Lock()
	if p.state == stateDead {
		p.mu.Unlock()
		cell.wake()
		return
	}
	if p.pending {
		p.pending = false
		p.mu.Unlock()
		cell.wake()
		return
	}
	p.wakeLocked()
	p.cell = cell
	p.state = stateIndirect
	p.mu.Unlock()
}

// Wake rouses whichever task is parked here, if any, and returns the cell
// to Empty. Waking a park with nobody registered latches pending, so the
// next Park or InstallIndirect returns at once; waking a Dead park is a
// no-op.
func (p *TaskPark) Wake() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateDead {
		return
	}
	if !p.wakeLocked() {
		p.pending = true
	}
	p.state = stateEmpty
}

// Kill transitions the TaskPark to Dead, waking any currently parked task
// so it observes the dead peer instead of sleeping forever. Once Dead, the
// TaskPark never leaves that state.
func (p *TaskPark) Kill() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.wakeLocked()
	p.state = stateDead
}

// wakeLocked fires whatever registration the cell currently holds and
// reports whether anything was actually roused; an already-claimed
// indirect cell counts as nothing, so the caller can latch pending
// instead. Callers hold mu.
func (p *TaskPark) wakeLocked() (woke bool) {
	if p.ch != nil {
		close(p.ch)
		p.ch = nil
		woke = true
	}
	if p.cell != nil {
		if p.cell.TakeAndWake() {
			woke = true
		}
		p.cell = nil
	}
	return woke
}

// Dead reports whether the peer has terminated.
func (p *TaskPark) Dead() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == stateDead
}

// WakerCell is a shared, many-writers/one-waiter waker slot: the first
// ingressor to call TakeAndWake claims and fires the waiter's channel;
// every later caller this round finds the cell already empty and does
// nothing, which is exactly the "claimed exactly once" guarantee Join's
// fair egressor needs when it parks on all M inputs simultaneously.
type WakerCell struct {
	mu  sync.Mutex
	ch  chan struct{}
	hit bool
}

// NewWakerCell returns an armed, unclaimed cell.
func NewWakerCell() *WakerCell {
	return &WakerCell{ch: make(chan struct{})}
}

// Rearm resets the cell for another round of parking. Must only be called
// by the cell's single owner (the egressor) after it has drained done().
func (c *WakerCell) Rearm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ch = make(chan struct{})
	c.hit = false
}

func (c *WakerCell) done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch
}

// TakeAndWake claims the cell if unclaimed and closes its channel,
// reporting whether this call was the one that claimed it; a no-op
// returning false if another peer already claimed it this round.
func (c *WakerCell) TakeAndWake() (claimed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hit {
		return false
	}
	c.hit = true
	close(c.ch)
	return true
}

// wake is TakeAndWake under a different name for call sites (Dead peers)
// that never installed the cell via InstallIndirect but still need to avoid
// leaving the waiter parked forever.
func (c *WakerCell) wake() { c.TakeAndWake() }
