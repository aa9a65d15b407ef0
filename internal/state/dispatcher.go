// ABOUTME: Goroutine-owned AppState that applies events one at a time.
// ABOUTME: Callers dispatch events over a channel and read snapshots back.
package state

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("dispatcher closed")

type dispatch struct {
	event Event
	reply chan State
}

// Dispatcher owns a State and serialises every transition through a single
// loop goroutine.
type Dispatcher struct {
	events chan dispatch
	done   chan struct{}
	once   sync.Once

	mu          sync.RWMutex
	current     State
	subscribers []chan State
}

// NewDispatcher starts the loop with initial as the first state.
func NewDispatcher(initial State) *Dispatcher {
	d := &Dispatcher{
		events:  make(chan dispatch),
		done:    make(chan struct{}),
		current: initial,
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	for {
		select {
		case <-d.done:
			return
		case req := <-d.events:
			d.mu.Lock()
			d.current = Reduce(d.current, req.event)
			next := d.current
			for _, ch := range d.subscribers {
				// Slow subscribers miss intermediate snapshots.
				select {
				case ch <- next:
				default:
				}
			}
			d.mu.Unlock()
			req.reply <- next
		}
	}
}

// Dispatch applies e and returns the resulting state.
func (d *Dispatcher) Dispatch(e Event) (State, error) {
	select {
	case <-d.done:
		return d.State(), ErrClosed
	default:
	}

	reply := make(chan State, 1)
	select {
	case <-d.done:
		return d.State(), ErrClosed
	case d.events <- dispatch{event: e, reply: reply}:
	}
	return <-reply, nil
}

// State returns the latest snapshot.
func (d *Dispatcher) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// Subscribe returns a channel that receives a snapshot after each event.
// The channel is buffered by one and closed by Close. After Close it is
// returned already closed.
func (d *Dispatcher) Subscribe() <-chan State {
	ch := make(chan State, 1)
	d.mu.Lock()
	defer d.mu.Unlock()
	select {
	case <-d.done:
		close(ch)
		return ch
	default:
	}
	d.subscribers = append(d.subscribers, ch)
	return ch
}

// Close stops the loop and closes subscriber channels.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.done)
		d.mu.Lock()
		for _, ch := range d.subscribers {
			close(ch)
		}
		d.subscribers = nil
		d.mu.Unlock()
	})
}
