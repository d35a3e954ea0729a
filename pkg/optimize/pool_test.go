package optimize

import (
	"bytes"
	"io"
	"sync"
	"testing"
)

func TestBytePool_Get(t *testing.T) {
	p := NewBytePool(64 * 1024)

	b := p.Get()
	if len(b) != 64*1024 {
		t.Errorf("Get() len = %d, want %d", len(b), 64*1024)
	}
	p.Put(b)
}

func TestBytePool_PutUndersized(t *testing.T) {
	p := NewBytePool(1024)

	// A shrunken buffer must not re-enter the pool.
	p.Put(make([]byte, 16))

	b := p.Get()
	if len(b) != 1024 {
		t.Errorf("Get() after undersized Put: len = %d, want 1024", len(b))
	}
}

func TestBytePool_CopyIntegrity(t *testing.T) {
	p := NewBytePool(8)
	payload := []byte("segment payload larger than one buffer")

	var dst bytes.Buffer
	buf := p.Get()
	n, err := io.CopyBuffer(&dst, bytes.NewReader(payload), buf)
	p.Put(buf)

	if err != nil {
		t.Fatalf("CopyBuffer() error = %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("CopyBuffer() n = %d, want %d", n, len(payload))
	}
	if !bytes.Equal(dst.Bytes(), payload) {
		t.Errorf("CopyBuffer() corrupted payload: %q", dst.Bytes())
	}
}

func TestBytePool_Concurrent(t *testing.T) {
	p := NewBytePool(256)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(fill byte) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b := p.Get()
				for k := range b {
					b[k] = fill
				}
				for k := range b {
					if b[k] != fill {
						t.Errorf("buffer shared between goroutines")
						return
					}
				}
				p.Put(b)
			}
		}(byte(i))
	}
	wg.Wait()
}
