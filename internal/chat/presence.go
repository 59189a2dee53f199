package chat

import "sync"

// Presence counts currently open realtime channels. Every Decrement is paired
// with a prior Increment by the gateway, and the count is clamped at zero so
// a stray decrement can never be observed as a negative room size.
type Presence struct {
	mu    sync.Mutex
	count int
}

// NewPresence creates a presence counter starting at zero.
func NewPresence() *Presence {
	return &Presence{}
}

// Increment records a new connection and returns the updated count.
func (p *Presence) Increment() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	return p.count
}

// Decrement records a closed connection and returns the updated count.
func (p *Presence) Decrement() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.count > 0 {
		p.count--
	}
	return p.count
}

// Count returns the current number of open channels.
func (p *Presence) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}
