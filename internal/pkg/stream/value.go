// Package stream provides small reactive primitives used to expose live,
// re-subscribable state to multiple observers. A Value holds the most recent
// item of a stream and replays it to new subscribers; subscriptions are
// conflated, meaning a slow observer always sees the latest known item rather
// than every intermediate one. Shared wraps a producer pipeline with
// reference-counted activation so the pipeline only runs while somebody is
// observing it.
package stream

import "sync"

// UnsubscribeFunc detaches a subscription created by Subscribe. It is safe to
// call more than once.
type UnsubscribeFunc func()

// Value is a concurrency-safe observable cell holding the most recently
// published item. Subscribers receive the current item immediately (when one
// has been published) followed by every subsequent update, conflated: if an
// observer falls behind, intermediate items are dropped in favor of the
// newest one.
type Value[T any] struct {
	mu       sync.Mutex
	isSet    bool
	latest   T
	isClosed bool
	nextID   uint64
	subs     map[uint64]chan T
}

// NewValue creates an empty Value. No item is replayed to subscribers until
// the first Publish.
func NewValue[T any]() *Value[T] {
	return &Value[T]{
		subs: make(map[uint64]chan T),
	}
}

// conflatedSend delivers item to ch without ever blocking. The channel has a
// buffer of one; if it is full, the stale buffered item is discarded first.
// Publish and Subscribe are the only senders and both hold the Value mutex,
// so the drain-then-send loop always terminates.
func conflatedSend[T any](ch chan T, item T) {
	for {
		select {
		case ch <- item:
			return
		default:
		}

		select {
		case <-ch:
		default:
		}
	}
}

// Publish stores item as the latest value and fans it out to every active
// subscriber. It never blocks on slow observers.
func (v *Value[T]) Publish(item T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.isClosed {
		return
	}

	v.latest = item
	v.isSet = true

	for _, ch := range v.subs {
		conflatedSend(ch, item)
	}
}

// Latest returns the most recently published item and true, or the zero value
// and false when nothing has been published yet.
func (v *Value[T]) Latest() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latest, v.isSet
}

// Subscribe attaches a new observer. The returned channel immediately carries
// the latest published item when one exists. The channel is closed when the
// subscription is cancelled via the returned UnsubscribeFunc or when the
// Value itself is closed.
func (v *Value[T]) Subscribe() (<-chan T, UnsubscribeFunc) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ch := make(chan T, 1)
	if v.isClosed {
		close(ch)
		return ch, func() {}
	}

	id := v.nextID
	v.nextID++
	v.subs[id] = ch

	if v.isSet {
		ch <- v.latest
	}

	return ch, func() {
		v.mu.Lock()
		defer v.mu.Unlock()

		if sub, ok := v.subs[id]; ok {
			delete(v.subs, id)
			close(sub)
		}
	}
}

// Close terminates the Value: all subscriber channels are closed and any
// further Publish calls are ignored. Latest keeps returning the final item.
func (v *Value[T]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.isClosed {
		return
	}

	v.isClosed = true
	for id, ch := range v.subs {
		delete(v.subs, id)
		close(ch)
	}
}
