// Package eventbus fans model events out to subscribers.
//
// Ownership boundary: the bus owns its processing goroutine and the
// subscriber channels it hands out. Publishers and subscribers never block
// the model; when a buffer is full the notification is counted as dropped.
package eventbus

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maidsafe/routing-model/routing"
)

// Notification wraps a model event with its delivery timestamp.
type Notification struct {
	Event routing.Event
	Time  time.Time
}

// Stats counts bus traffic since Start.
type Stats struct {
	Published int64
	Delivered int64
	Dropped   int64
}

// Bus is a buffered publish/subscribe fan-out for model events.
type Bus struct {
	in   chan Notification
	done chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	subs    []chan Notification
	stats   Stats
	running bool
}

// NewBus creates a bus with the given publish buffer size.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	return &Bus{
		in:   make(chan Notification, buffer),
		done: make(chan struct{}),
	}
}

// Start launches the processing goroutine. Starting twice is a no-op.
func (b *Bus) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return
	}
	b.running = true
	b.wg.Add(1)
	go b.process()
	log.Debug().Msg("event bus started")
}

// Stop drains the bus and closes all subscriber channels.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	b.mu.Unlock()

	close(b.done)
	b.wg.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		close(sub)
	}
	b.subs = nil
	log.Debug().Msg("event bus stopped")
}

// Publish enqueues an event for fan-out. Events published while the bus is
// stopped or its buffer is full are dropped.
func (b *Bus) Publish(event routing.Event) {
	b.mu.Lock()
	running := b.running
	b.stats.Published++
	b.mu.Unlock()

	if !running {
		b.countDropped()
		return
	}

	select {
	case b.in <- Notification{Event: event, Time: time.Now()}:
	default:
		b.countDropped()
		log.Warn().Str("event", event.Describe()).Msg("event bus buffer full, dropping")
	}
}

// Subscribe registers a new subscriber channel with the given buffer size.
// The channel is closed by Stop.
func (b *Bus) Subscribe(buffer int) <-chan Notification {
	if buffer <= 0 {
		buffer = 64
	}
	sub := make(chan Notification, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
	return sub
}

// Stats returns a snapshot of the traffic counters.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *Bus) process() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			// Drain whatever was published before Stop.
			for {
				select {
				case notification := <-b.in:
					b.fanOut(notification)
				default:
					return
				}
			}
		case notification := <-b.in:
			b.fanOut(notification)
		}
	}
}

func (b *Bus) fanOut(notification Notification) {
	b.mu.Lock()
	subs := make([]chan Notification, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub <- notification:
			b.countDelivered()
		default:
			b.countDropped()
		}
	}
}

func (b *Bus) countDelivered() {
	b.mu.Lock()
	b.stats.Delivered++
	b.mu.Unlock()
}

func (b *Bus) countDropped() {
	b.mu.Lock()
	b.stats.Dropped++
	b.mu.Unlock()
}
