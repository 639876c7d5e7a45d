package events

import (
	"sync"
)

// Subscriber represents a channel that receives events.
type Subscriber chan Event

// subscriberBuffer bounds how far a slow monitor client may lag
// before events are dropped for it.
const subscriberBuffer = 64

type fanout struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]struct{}
}

var subscribers = &fanout{
	subscribers: make(map[Subscriber]struct{}),
}

// Subscribe adds a new subscriber and returns its channel.
func Subscribe() Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	subscribers.mu.Lock()
	subscribers.subscribers[ch] = struct{}{}
	subscribers.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
// Calling it for a subscriber that is already gone is a no-op.
func Unsubscribe(sub Subscriber) {
	subscribers.mu.Lock()
	defer subscribers.mu.Unlock()
	if _, ok := subscribers.subscribers[sub]; !ok {
		return
	}
	delete(subscribers.subscribers, sub)
	close(sub)
}

// CloseAllSubscribers closes every subscriber channel, e.g. at shutdown.
func CloseAllSubscribers() {
	subscribers.mu.Lock()
	defer subscribers.mu.Unlock()
	for sub := range subscribers.subscribers {
		delete(subscribers.subscribers, sub)
		close(sub)
	}
}

// broadcast never blocks the caller: the presentation loop emits from here,
// so a full subscriber simply misses the event.
func broadcast(e Event) {
	subscribers.mu.RLock()
	defer subscribers.mu.RUnlock()

	for sub := range subscribers.subscribers {
		select {
		case sub <- e:
		default:
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func SubscriberCount() int {
	subscribers.mu.RLock()
	defer subscribers.mu.RUnlock()
	return len(subscribers.subscribers)
}

// RecentEvents returns the last n events from the history.
// If n is zero or exceeds the history, all events are returned.
func RecentEvents(n int) []Event {
	all := history.snapshot()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}
