package detour_tile_cache

// DtTileCacheAlloc hands out scratch memory for one tile rebuild.
// Everything returned by Alloc is released by the next Reset.
type DtTileCacheAlloc interface {
	Reset()
	Alloc(size int) []byte
}

// LinearAllocator bumps through a single buffer. Requests that do not fit are served
// from the heap and the buffer grows to the high water mark on the next Reset.
type LinearAllocator struct {
	buf  []byte
	top  int
	high int
}

func NewLinearAllocator(capacity int) *LinearAllocator {
	return &LinearAllocator{buf: make([]byte, capacity)}
}

func (a *LinearAllocator) Reset() {
	if a.high > len(a.buf) {
		a.buf = make([]byte, a.high)
	}
	a.top = 0
	a.high = 0
}

func (a *LinearAllocator) Alloc(size int) []byte {
	if size <= 0 {
		return nil
	}
	a.high += size
	if a.top+size > len(a.buf) {
		return make([]byte, size)
	}
	mem := a.buf[a.top : a.top+size : a.top+size]
	a.top += size
	clear(mem)
	return mem
}

func (a *LinearAllocator) Capacity() int { return len(a.buf) }

// Used returns the bytes requested since the last Reset.
func (a *LinearAllocator) Used() int { return a.high }
