package session

import (
	"sync"

	"github.com/johnquangdev/minutemaestro/internal/domain/entities"
)

type observers struct {
	mu   sync.Mutex
	seq  uint64
	subs map[uint64]chan entities.SessionEvent
}

func newObservers() *observers {
	return &observers{subs: make(map[uint64]chan entities.SessionEvent)}
}

func (o *observers) subscribe(buffer int) (<-chan entities.SessionEvent, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan entities.SessionEvent, buffer)

	o.mu.Lock()
	o.seq++
	id := o.seq
	o.subs[id] = ch
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			close(ch)
			o.mu.Unlock()
		})
	}
}

// publish never blocks; a slow subscriber misses events and resyncs from View
func (o *observers) publish(ev entities.SessionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, ch := range o.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
