package session

import "sync"

// Event is an auth-changed notification.
type Event int

const (
	EventLoggedIn Event = iota + 1
	EventLoggedOut
	EventRefreshed
	EventSessionExpired // a reactive refresh failed and the session was dropped
)

func (e Event) String() string {
	switch e {
	case EventLoggedIn:
		return "logged_in"
	case EventLoggedOut:
		return "logged_out"
	case EventRefreshed:
		return "refreshed"
	case EventSessionExpired:
		return "session_expired"
	default:
		return "unknown"
	}
}

type subscriber struct {
	id int
	fn func(Event)
}

// observers dispatches events synchronously, in subscription order, outside its lock.
type observers struct {
	mu   sync.Mutex
	next int
	subs []subscriber
}

func (o *observers) subscribe(fn func(Event)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.next++
	id := o.next
	o.subs = append(o.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			for i, s := range o.subs {
				if s.id == id {
					o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (o *observers) emit(e Event) {
	o.mu.Lock()
	subs := make([]subscriber, len(o.subs))
	copy(subs, o.subs)
	o.mu.Unlock()

	for _, s := range subs {
		s.fn(e)
	}
}
