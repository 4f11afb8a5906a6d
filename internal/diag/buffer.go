package diag

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultCapacity is the ring size used when none is configured.
const DefaultCapacity = 256

// Buffer is a bounded ring of the most recent diagnostics. It implements
// Sink; once capacity is reached, each new event evicts the oldest one.
// Listeners receive a ping per emission and re-read with EventsSince.
type Buffer struct {
	mu        sync.RWMutex
	capacity  int
	seq       uint64
	ring      []Event
	head      int // index of the oldest retained event
	count     int
	listeners map[chan struct{}]struct{}
}

// NewBuffer returns a Buffer retaining up to capacity events.
// A non-positive capacity falls back to DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity:  capacity,
		ring:      make([]Event, capacity),
		listeners: make(map[chan struct{}]struct{}),
	}
}

// Emit implements Sink. It assigns the event the next sequence number,
// stores it, and pings every listener.
func (b *Buffer) Emit(level slog.Level, msg string, fields map[string]string) {
	b.mu.Lock()
	b.seq++
	ev := Event{
		Seq:     b.seq,
		Time:    time.Now().UTC(),
		Level:   level,
		Message: msg,
		Fields:  fields,
	}
	if b.count < b.capacity {
		b.ring[(b.head+b.count)%b.capacity] = ev
		b.count++
	} else {
		b.ring[b.head] = ev
		b.head = (b.head + 1) % b.capacity
	}
	b.mu.Unlock()

	b.broadcast()
}

// Events returns the retained events, oldest first.
func (b *Buffer) Events() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Event, 0, b.count)
	for i := 0; i < b.count; i++ {
		out = append(out, b.ring[(b.head+i)%b.capacity])
	}
	return out
}

// EventsSince returns retained events with a sequence number greater than
// after, oldest first. Evicted events are gone; slow readers catch up from
// whatever the ring still holds.
func (b *Buffer) EventsSince(after uint64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for i := 0; i < b.count; i++ {
		ev := b.ring[(b.head+i)%b.capacity]
		if ev.Seq > after {
			out = append(out, ev)
		}
	}
	return out
}

// Len reports how many events are currently retained.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// LastSeq returns the newest sequence number, or 0 before the first emit.
func (b *Buffer) LastSeq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

// Subscribe returns a channel that receives a ping per emitted event.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (b *Buffer) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.listeners[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (b *Buffer) Unsubscribe(ch chan struct{}) {
	b.mu.Lock()
	delete(b.listeners, ch)
	b.mu.Unlock()
	close(ch)
}

// broadcast pings all listeners.
// Non-blocking: if a listener's channel is full, the ping is skipped.
func (b *Buffer) broadcast() {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.listeners {
		select {
		case ch <- struct{}{}:
		default:
			// Channel full, skip (listener will catch up on next read)
		}
	}
}
