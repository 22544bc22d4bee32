package multibet

import (
	"sync"

	"github.com/hyblock/hyblock-contracts/pkg/types"
	"go.uber.org/zap"
)

// eventBus fans ledger events out to subscribers. Slow subscribers lose
// events rather than block the ledger.
type eventBus struct {
	buffer int
	logger *zap.Logger

	mu     sync.Mutex
	seq    uint64
	nextID int
	subs   map[int]chan types.Event
	closed bool
}

func newEventBus(buffer int, logger *zap.Logger) *eventBus {
	return &eventBus{
		buffer: buffer,
		logger: logger,
		subs:   make(map[int]chan types.Event),
	}
}

func (b *eventBus) subscribe() (<-chan types.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan types.Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}

	return ch, cancel
}

func (b *eventBus) publish(name string, data interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.seq++
	ev := types.Event{Name: name, Seq: b.seq, Data: data}

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			EventsDroppedTotal.Inc()
			b.logger.Warn("event-dropped",
				zap.Int("subscriber", id),
				zap.String("event", name),
				zap.Uint64("seq", ev.Seq))
		}
	}
}

func (b *eventBus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *eventBus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
