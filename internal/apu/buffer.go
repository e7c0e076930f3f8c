package apu

// StereoSample is one signed 16-bit output frame.
type StereoSample struct {
	Left, Right int16
}

// Ring is a bounded FIFO of stereo samples. When it is full the oldest
// sample is overwritten and counted in Dropped.
type Ring struct {
	buf     []StereoSample
	head    int // oldest sample
	n       int
	dropped uint64
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Ring{buf: make([]StereoSample, capacity)}
}

func (r *Ring) Push(s StereoSample) {
	if r.n == len(r.buf) {
		r.buf[r.head] = s
		r.head = (r.head + 1) % len(r.buf)
		r.dropped++
		return
	}
	r.buf[(r.head+r.n)%len(r.buf)] = s
	r.n++
}

// Drain returns every buffered sample, oldest first, and empties the ring.
func (r *Ring) Drain() []StereoSample {
	if r.n == 0 {
		return nil
	}
	out := make([]StereoSample, r.n)
	for i := range out {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	r.head, r.n = 0, 0
	return out
}

// Pop moves up to len(dst) of the oldest samples into dst and returns how
// many it moved.
func (r *Ring) Pop(dst []StereoSample) int {
	n := len(dst)
	if n > r.n {
		n = r.n
	}
	for i := 0; i < n; i++ {
		dst[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	r.head = (r.head + n) % len(r.buf)
	r.n -= n
	return n
}

func (r *Ring) Len() int        { return r.n }
func (r *Ring) Cap() int        { return len(r.buf) }
func (r *Ring) Dropped() uint64 { return r.dropped }
