package session

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// relay fans values out to registered listeners with immediate replay of the
// most recent value to late subscribers. Deliveries run on a single
// dispatcher goroutine in publish order, so a listener may safely invoke
// coordinator operations or unsubscribe from inside its callback. Every
// published value carries a sequence number and each subscriber tracks the
// last sequence it saw, so a synchronous replay racing the dispatcher can
// never deliver an older snapshot after a newer one.
type relay[T any] struct {
	mu      sync.Mutex
	subs    map[uuid.UUID]*relaySub[T]
	seq     uint64
	last    T
	hasLast bool
	queue   []relayEntry[T]
	closed  bool

	notify chan struct{}
	done   chan struct{}
}

type relayEntry[T any] struct {
	seq uint64
	val T
}

type relaySub[T any] struct {
	fn     func(T)
	active atomic.Bool

	// mu serializes deliveries to the listener; lastSeq drops any delivery
	// that would move backwards.
	mu      sync.Mutex
	lastSeq uint64
}

func newRelay[T any]() *relay[T] {
	r := &relay[T]{
		subs:   make(map[uuid.UUID]*relaySub[T]),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go r.dispatch()
	return r
}

// subscribe registers a listener and immediately replays the current value
// when one exists. The returned function unsubscribes; it is idempotent and
// safe to call from within the listener itself.
func (r *relay[T]) subscribe(fn func(T)) func() {
	sub := &relaySub[T]{fn: fn}
	sub.active.Store(true)

	r.mu.Lock()
	id := uuid.New()
	if !r.closed {
		r.subs[id] = sub
	}
	last, seq, has := r.last, r.seq, r.hasLast
	r.mu.Unlock()

	if has {
		sub.deliver(seq, last)
	}

	return func() {
		// Clearing the flag first keeps an in-flight delivery from calling
		// a listener that considers itself unsubscribed.
		sub.active.Store(false)
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// publish enqueues a value for delivery. Values are delivered to every
// listener in the order they were published.
func (r *relay[T]) publish(v T) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.seq++
	r.last = v
	r.hasLast = true
	r.queue = append(r.queue, relayEntry[T]{seq: r.seq, val: v})
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// current returns the most recent value and whether one exists.
func (r *relay[T]) current() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.hasLast
}

// close stops the dispatcher. Pending queued values are dropped.
func (r *relay[T]) close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	clear(r.subs)
	r.mu.Unlock()
	close(r.done)
}

func (r *relay[T]) dispatch() {
	for {
		select {
		case <-r.done:
			return
		case <-r.notify:
		}

		for {
			r.mu.Lock()
			if len(r.queue) == 0 || r.closed {
				r.mu.Unlock()
				break
			}
			entry := r.queue[0]
			r.queue = r.queue[1:]
			subs := make([]*relaySub[T], 0, len(r.subs))
			for _, sub := range r.subs {
				subs = append(subs, sub)
			}
			r.mu.Unlock()

			for _, sub := range subs {
				sub.deliver(entry.seq, entry.val)
			}
		}
	}
}

// deliver calls the listener unless the value is stale for this subscriber,
// recovering panics so that one listener cannot starve the others.
func (sub *relaySub[T]) deliver(seq uint64, v T) {
	if !sub.active.Load() {
		return
	}
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if seq <= sub.lastSeq || !sub.active.Load() {
		return
	}
	sub.lastSeq = seq
	defer func() {
		_ = recover()
	}()
	sub.fn(v)
}
