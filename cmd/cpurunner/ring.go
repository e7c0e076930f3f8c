package main

import "bytes"

// writerFunc adapts a function to io.Writer
type writerFunc func(p []byte) (n int, err error)

func (f writerFunc) Write(p []byte) (n int, err error) { return f(p) }

// byteRing keeps the last len(buf) bytes written to it.
type byteRing struct {
	buf  []byte
	idx  int
	fill int
}

func newByteRing(n int) *byteRing { return &byteRing{buf: make([]byte, n)} }

func (r *byteRing) Write(p []byte) (int, error) {
	for _, ch := range p {
		r.buf[r.idx] = ch
		r.idx = (r.idx + 1) % len(r.buf)
		if r.fill < len(r.buf) {
			r.fill++
		}
	}
	return len(p), nil
}

// Bytes returns the retained bytes in write order.
func (r *byteRing) Bytes() []byte {
	out := make([]byte, 0, r.fill)
	start := (r.idx - r.fill + len(r.buf)) % len(r.buf)
	for j := 0; j < r.fill; j++ {
		out = append(out, r.buf[(start+j)%len(r.buf)])
	}
	return out
}

// lineRing keeps the last n complete lines written to it.
type lineRing struct {
	lines   []string
	idx     int
	fill    int
	partial []byte
}

func newLineRing(n int) *lineRing { return &lineRing{lines: make([]string, n)} }

func (r *lineRing) Write(p []byte) (int, error) {
	if len(r.lines) == 0 {
		return len(p), nil
	}
	rest := p
	for {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			r.partial = append(r.partial, rest...)
			return len(p), nil
		}
		r.partial = append(r.partial, rest[:i]...)
		r.lines[r.idx] = string(r.partial)
		r.partial = r.partial[:0]
		r.idx = (r.idx + 1) % len(r.lines)
		if r.fill < len(r.lines) {
			r.fill++
		}
		rest = rest[i+1:]
	}
}

// Lines returns the retained lines, oldest first.
func (r *lineRing) Lines() []string {
	out := make([]string, 0, r.fill)
	if r.fill == 0 {
		return out
	}
	start := (r.idx - r.fill + len(r.lines)) % len(r.lines)
	for j := 0; j < r.fill; j++ {
		out = append(out, r.lines[(start+j)%len(r.lines)])
	}
	return out
}
