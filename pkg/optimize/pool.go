package optimize

import (
	"sync"
)

// BytePool recycles fixed-size buffers so hot copy paths do not
// allocate per call.
type BytePool struct {
	size int
	pool sync.Pool
}

// NewBytePool creates a pool handing out buffers of the given size.
func NewBytePool(size int) *BytePool {
	p := &BytePool{size: size}
	p.pool.New = func() interface{} {
		b := make([]byte, size)
		return &b
	}
	return p
}

// Get returns a buffer of the pool's size.
func (p *BytePool) Get() []byte {
	return *p.pool.Get().(*[]byte)
}

// Put returns a buffer to the pool. Buffers that shrank below the pool
// size are dropped.
func (p *BytePool) Put(b []byte) {
	if cap(b) < p.size {
		return
	}
	b = b[:p.size]
	p.pool.Put(&b)
}
