package site

import "sync"

// reloadHub broadcasts rebuild pings to connected browsers. A listener
// receives an empty struct when the snapshots were re-derived and should
// refresh its view.
type reloadHub struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
}

func newReloadHub() *reloadHub {
	return &reloadHub{listeners: make(map[chan struct{}]struct{})}
}

// Subscribe returns a channel that receives pings on rebuild.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (h *reloadHub) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.listeners[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (h *reloadHub) Unsubscribe(ch chan struct{}) {
	h.mu.Lock()
	delete(h.listeners, ch)
	h.mu.Unlock()
	close(ch)
}

// Broadcast sends a ping to all listeners.
// Non-blocking: a listener with a full channel catches the next ping.
func (h *reloadHub) Broadcast() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
