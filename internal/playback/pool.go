package playback

import "sync/atomic"

// bufferPool holds the fixed ring of sample slots. All slots share one
// backing array so the pool is a single allocation.
type bufferPool struct {
	slots   [][]int16
	slotLen int
}

func newBufferPool(count, slotLen int) *bufferPool {
	backing := make([]int16, count*slotLen)
	slots := make([][]int16, count)
	for i := range slots {
		slots[i] = backing[i*slotLen : (i+1)*slotLen : (i+1)*slotLen]
	}
	return &bufferPool{slots: slots, slotLen: slotLen}
}

func (p *bufferPool) size() int {
	return len(p.slots)
}

func (p *bufferPool) slot(i int) []int16 {
	return p.slots[i]
}

func (p *bufferPool) next(i int) int {
	i++
	if i == len(p.slots) {
		return 0
	}
	return i
}

// zero clears every slot. Only valid while no callback can run.
func (p *bufferPool) zero() {
	for _, s := range p.slots {
		clear(s)
	}
}

// readyCounter is the number of filled slots not yet consumed. It is the
// only value written by both the producer and the consumer: the producer
// increments after a slot is completely written, the consumer decrements
// after a slot is completely copied.
type readyCounter struct {
	n        atomic.Int32
	capacity int32
}

func (c *readyCounter) load() int32 {
	return c.n.Load()
}

func (c *readyCounter) increment() int32 {
	n := c.n.Add(1)
	assertReadyBounds(n, c.capacity)
	return n
}

func (c *readyCounter) decrement() int32 {
	n := c.n.Add(-1)
	assertReadyBounds(n, c.capacity)
	return n
}

func (c *readyCounter) full() bool {
	return c.n.Load() >= c.capacity
}

func (c *readyCounter) reset() {
	c.n.Store(0)
}
