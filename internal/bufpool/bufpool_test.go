package bufpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSizeClasses(t *testing.T) {
	p := New()

	tests := []struct {
		name    string
		size    int
		wantCap int
	}{
		{"Empty", 0, smallBufferSize},
		{"Small", 100, smallBufferSize},
		{"SmallBoundary", smallBufferSize, smallBufferSize},
		{"Medium", smallBufferSize + 1, mediumBufferSize},
		{"Large", mediumBufferSize + 1, largeBufferSize},
		{"Oversized", largeBufferSize + 1, largeBufferSize + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := p.Get(tt.size)
			assert.Len(t, buf, tt.size)
			assert.Equal(t, tt.wantCap, cap(buf))
			p.Put(buf)
		})
	}
}

func TestPutIgnoresForeignBuffers(t *testing.T) {
	p := New()

	assert.NotPanics(t, func() {
		p.Put(nil)
		p.Put(make([]byte, 10))
		p.Put(make([]byte, largeBufferSize+1))
	})
}

func TestClone(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	dst := Clone(src)

	assert.Equal(t, src, dst)
	dst[0] = 9
	assert.Equal(t, byte(1), src[0])
	Put(dst)
}
