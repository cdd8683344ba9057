package session

import "sync"

// EventKind is the kind of identity change.
type EventKind int

const (
	EventLogin EventKind = iota + 1
	EventLogout
)

func (k EventKind) String() string {
	switch k {
	case EventLogin:
		return "login"
	case EventLogout:
		return "logout"
	default:
		return "unknown"
	}
}

// Event announces an identity change. Identity is empty on logout.
type Event struct {
	Kind     EventKind
	Identity string
}

// Bus delivers identity changes to subscribers synchronously, in
// subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
	order  []int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[id] = fn
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers ev to every current subscriber.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.subs[id])
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
