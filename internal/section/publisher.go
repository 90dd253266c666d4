package section

import "sync"

// Publisher broadcasts cache updates. Every subscriber sees the latest cache;
// a slow subscriber skips intermediate versions instead of blocking.
type Publisher struct {
	mu      sync.Mutex
	current *Cache
	subs    map[int]chan *Cache
	nextID  int
}

// NewPublisher returns a publisher with no cache.
func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[int]chan *Cache)}
}

// Current returns the latest published cache, or nil.
func (p *Publisher) Current() *Cache {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Publish replaces the current cache and notifies subscribers. It returns
// false without notifying when c equals the current cache.
func (p *Publisher) Publish(c *Cache) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current.Equal(c) {
		return false
	}
	p.current = c
	for _, ch := range p.subs {
		offer(ch, c)
	}
	return true
}

// Subscribe returns a channel of cache updates and a function that ends the
// subscription. The current cache, if any, is delivered first.
func (p *Publisher) Subscribe() (<-chan *Cache, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan *Cache, 1)
	if p.current != nil {
		ch <- p.current
	}
	id := p.nextID
	p.nextID++
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subs, id)
			close(ch)
		})
	}
}

// offer replaces any undelivered value in ch with c.
func offer(ch chan *Cache, c *Cache) {
	select {
	case ch <- c:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- c:
	default:
	}
}
