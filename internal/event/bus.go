// Package event provides the publish/subscribe bus that decouples the UI
// shell from the core client. A Bus is an explicitly constructed service
// passed to the components that need it; tests create their own isolated
// instances.
package event

import (
	"log/slog"
	"sync"
)

// Topic identifies one event stream on the bus.
type Topic string

// Lifecycle topics produced and consumed by the core.
const (
	TopicLoggedIn       Topic = "account.logged_in"
	TopicLoggedOut      Topic = "account.logged_out"
	TopicAuthError      Topic = "account.auth_error"
	TopicSessionExpired Topic = "account.session_expired"

	TopicQRReady   Topic = "qr.ready"
	TopicQRTimeout Topic = "qr.timeout"

	TopicConfirmDevice Topic = "confirm.device"
	TopicConfirmEmail  Topic = "confirm.email"
)

// Handler receives the payload published with Trigger.
type Handler func(payload any)

// Subscription is the handle returned by Register; it is the only way to
// remove a handler, since Go functions are not comparable.
type Subscription struct {
	topic Topic
	fn    Handler

	// mu is held while the handler runs. Unregister takes the same
	// mutex, so once Unregister returns the handler can never run again.
	mu     sync.Mutex
	active bool
}

// Bus dispatches every handler invocation on a worker pool so Trigger
// returns immediately and a slow or panicking handler cannot affect its
// siblings or the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]*Subscription

	tasks  chan task
	stop   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

type task struct {
	sub     *Subscription
	payload any
}

// NewBus creates a bus with the given number of dispatch workers.
func NewBus(workers int) *Bus {
	if workers <= 0 {
		workers = 4
	}
	b := &Bus{
		subs:  make(map[Topic][]*Subscription),
		tasks: make(chan task, 64),
		stop:  make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	return b
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case t := <-b.tasks:
			t.run()
		case <-b.stop:
			// Drain what was already enqueued before shutting down.
			for {
				select {
				case t := <-b.tasks:
					t.run()
				default:
					return
				}
			}
		}
	}
}

func (t task) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event handler panicked",
				slog.String("topic", string(t.sub.topic)),
				slog.Any("panic", r))
		}
	}()

	t.sub.mu.Lock()
	defer t.sub.mu.Unlock()
	if !t.sub.active {
		return
	}
	t.sub.fn(t.payload)
}

// Register subscribes a handler to a topic.
func (b *Bus) Register(topic Topic, fn Handler) *Subscription {
	if fn == nil {
		return nil
	}
	sub := &Subscription{topic: topic, fn: fn, active: true}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()
	return sub
}

// Unregister removes a subscription. When it returns, the handler is
// guaranteed not to be invoked again, even for dispatches that were
// already in flight.
func (b *Bus) Unregister(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	list := b.subs[sub.topic]
	for i, s := range list {
		if s == sub {
			b.subs[sub.topic] = append(list[:i], list[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	// Wait out a handler that is mid-run and mark the subscription dead.
	sub.mu.Lock()
	sub.active = false
	sub.mu.Unlock()
}

// Trigger publishes payload to every handler registered for topic.
// It never blocks on handlers: if the worker queue is saturated the
// dispatch falls back to its own goroutine.
func (b *Bus) Trigger(topic Topic, payload any) {
	b.mu.RLock()
	list := b.subs[topic]
	snapshot := make([]*Subscription, len(list))
	copy(snapshot, list)
	b.mu.RUnlock()

	for _, sub := range snapshot {
		t := task{sub: sub, payload: payload}
		select {
		case b.tasks <- t:
		default:
			go t.run()
		}
	}
}

// Close stops the worker pool after draining queued dispatches.
// The process-lifetime bus is never closed; this exists for tests.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.stop)
	b.wg.Wait()
}
