// Package livefeed broadcasts tracepoints to connected WebSocket clients
// as a capture run progresses, so a running thumb2trace capture can be
// watched live instead of only inspected after the file is written.
package livefeed

import "sync"

// Event is one tracepoint pushed to subscribers as it is captured.
type Event struct {
	ExecutedInsns uint64                 `json:"executedInsns"`
	Registers     map[string]uint32      `json:"registers,omitempty"`
	Changed       map[string]interface{} `json:"changed,omitempty"`
}

// Subscription is one client's event channel.
type Subscription struct {
	Channel chan Event
}

// Broadcaster fans out capture events to every subscribed client.
type Broadcaster struct {
	mu            sync.RWMutex
	subscriptions map[*Subscription]bool
	broadcast     chan Event
	register      chan *Subscription
	unregister    chan *Subscription
	done          chan struct{}
}

// NewBroadcaster starts a broadcaster's event loop.
func NewBroadcaster() *Broadcaster {
	b := &Broadcaster{
		subscriptions: make(map[*Subscription]bool),
		broadcast:     make(chan Event, 256),
		register:      make(chan *Subscription),
		unregister:    make(chan *Subscription),
		done:          make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broadcaster) run() {
	for {
		select {
		case sub := <-b.register:
			b.mu.Lock()
			b.subscriptions[sub] = true
			b.mu.Unlock()

		case sub := <-b.unregister:
			b.mu.Lock()
			if b.subscriptions[sub] {
				delete(b.subscriptions, sub)
				close(sub.Channel)
			}
			b.mu.Unlock()

		case event := <-b.broadcast:
			b.mu.RLock()
			for sub := range b.subscriptions {
				select {
				case sub.Channel <- event:
				default:
					// Slow client; drop rather than stall the capture loop.
				}
			}
			b.mu.RUnlock()

		case <-b.done:
			b.mu.Lock()
			for sub := range b.subscriptions {
				close(sub.Channel)
			}
			b.subscriptions = make(map[*Subscription]bool)
			b.mu.Unlock()
			return
		}
	}
}

// Subscribe registers a new client channel.
func (b *Broadcaster) Subscribe() *Subscription {
	sub := &Subscription{Channel: make(chan Event, 64)}
	b.register <- sub
	return sub
}

// Unsubscribe removes a client channel.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.unregister <- sub
}

// Publish sends an event to every subscriber, dropping it if the
// broadcaster's internal queue is full.
func (b *Broadcaster) Publish(event Event) {
	select {
	case b.broadcast <- event:
	default:
	}
}

// Close shuts the broadcaster down and closes every subscription channel.
func (b *Broadcaster) Close() {
	close(b.done)
}

// SubscriptionCount reports the number of connected clients.
func (b *Broadcaster) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}
