package push

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/haggle-app/syncengine/internal/logging"
)

const defaultQueueSize = 256

// Bus errors.
var (
	ErrEmptyOwner = errors.New("subscription owner is required")
	ErrEmptyTopic = errors.New("subscription topic is required")
	ErrNilHandler = errors.New("handler cannot be nil")
	ErrBusClosed  = errors.New("bus is closed")
)

// subKey identifies a subscription by its logical owner and topic.
// Re-subscribing under the same key replaces the previous registration,
// which keeps repeated subscribe calls from a re-mounted view from
// producing duplicate delivery.
type subKey struct {
	owner string
	topic Topic
}

// subscription is one active registration on the bus.
type subscription struct {
	key     subKey
	filter  FilterFunc
	handler Handler
}

// Bus is the in-process subscription manager. Inbound events are placed
// on a queue consumed by a single dispatch goroutine, so handlers run
// serialized and events within a topic arrive in publish order.
type Bus struct {
	logger zerolog.Logger

	mu     sync.Mutex
	subs   map[subKey]*subscription
	closed bool

	queue chan Event
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewBus creates a bus and starts its dispatch loop. queueSize <= 0 uses
// the default.
func NewBus(queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	b := &Bus{
		logger: logging.Component("push-bus"),
		subs:   make(map[subKey]*subscription),
		queue:  make(chan Event, queueSize),
		done:   make(chan struct{}),
	}

	b.wg.Add(1)
	go b.dispatchLoop()

	return b
}

// Subscribe registers a handler for a topic. The returned cancel func is
// idempotent and safe to call after the subscription was already replaced
// or the bus closed. Subscribing again with the same owner and topic
// replaces the previous registration.
func (b *Bus) Subscribe(owner string, topic Topic, filter FilterFunc, handler Handler) (func(), error) {
	if owner == "" {
		return nil, ErrEmptyOwner
	}
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if handler == nil {
		return nil, ErrNilHandler
	}

	sub := &subscription{
		key:     subKey{owner: owner, topic: topic},
		filter:  filter,
		handler: handler,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	b.subs[sub.key] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		// Only remove if this handle still owns the registration; a stale
		// cancel after re-subscribe must not tear down the live handler.
		if current, ok := b.subs[sub.key]; ok && current == sub {
			delete(b.subs, sub.key)
		}
	}

	return cancel, nil
}

// Publish enqueues an event for dispatch. Publishing to a closed bus is
// a no-op. Publish blocks when the queue is full rather than dropping,
// preserving the in-order at-most-once contract.
func (b *Bus) Publish(ev Event) {
	select {
	case <-b.done:
		return
	default:
	}

	select {
	case b.queue <- ev:
	case <-b.done:
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close stops the dispatch loop and drops all subscriptions. Events
// already queued are dispatched before Close returns.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.done)
	b.wg.Wait()

	b.mu.Lock()
	b.subs = make(map[subKey]*subscription)
	b.mu.Unlock()
}

// dispatchLoop is the single consumer of the event queue.
func (b *Bus) dispatchLoop() {
	defer b.wg.Done()

	for {
		select {
		case ev := <-b.queue:
			b.dispatch(ev)
		case <-b.done:
			// Drain whatever was queued before shutdown.
			for {
				select {
				case ev := <-b.queue:
					b.dispatch(ev)
				default:
					return
				}
			}
		}
	}
}

// dispatch delivers one event to every matching subscription. Handlers
// are collected under the lock and invoked outside it.
func (b *Bus) dispatch(ev Event) {
	b.mu.Lock()
	var handlers []Handler
	for _, sub := range b.subs {
		if sub.key.topic != ev.Topic {
			continue
		}
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}
		handlers = append(handlers, sub.handler)
	}
	b.mu.Unlock()

	for _, handler := range handlers {
		handler(ev)
	}

	b.logger.Trace().
		Str("topic", string(ev.Topic)).
		Str("change", string(ev.Change)).
		Int("delivered", len(handlers)).
		Msg("event dispatched")
}
