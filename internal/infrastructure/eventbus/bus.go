package eventbus

import (
	"sync"

	"balance_aggregator/internal/app/port"
)

// Bus is an in-process event center: topic-keyed subscriber registry with
// fire-and-forget publishing. Handlers run on the publisher's goroutine;
// subscribers needing isolation should hand off internally.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[port.EventTopic][]func(port.Event)
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[port.EventTopic][]func(port.Event)),
	}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic port.EventTopic, handler func(port.Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], handler)
}

// Publish delivers the event to every handler registered for its topic.
func (b *Bus) Publish(event port.Event) {
	b.mu.RLock()
	handlers := make([]func(port.Event), len(b.subscribers[event.Topic]))
	copy(handlers, b.subscribers[event.Topic])
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
