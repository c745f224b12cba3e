package bytespool

import (
	"sync"
)

type (
	poolInfo struct {
		sz int
		p  *sync.Pool
	}
)

const (
	minClass = 64
	// MaxPooled is the biggest size served from pools, bigger buffers are allocated directly.
	MaxPooled = 4 * 1024 * 1024
)

func newPoolInfo(sz int) *poolInfo {
	return &poolInfo{
		sz: sz,
		p: &sync.Pool{New: func() interface{} {
			return make([]byte, 0, sz)
		}},
	}
}

var (
	pools []*poolInfo
)

func init() {
	// power of two classes, batch buffers are 1MiB by default
	for sz := minClass; sz <= MaxPooled; sz *= 2 {
		pools = append(pools, newPoolInfo(sz))
	}
}

func classOf(sz int) *poolInfo {
	for _, pi := range pools {
		if sz <= pi.sz {
			return pi
		}
	}
	return nil
}

// Alloc alloc bytes
func Alloc(sz int) []byte {
	if sz <= 0 {
		return nil
	}

	if pi := classOf(sz); pi != nil {
		// to requested size.
		return pi.p.Get().([]byte)[:sz]
	}
	return make([]byte, sz)
}

// Free bytes
func Free(p []byte) {
	sz := cap(p)
	if sz < minClass || sz > MaxPooled {
		return
	}
	for _, pi := range pools {
		if sz == pi.sz {
			pi.p.Put(p[:0])
			return
		}
	}
}
