package lz

// A Window buffers the input of a compression session until a compression
// pass can take it. Each buffer holds at most the dictionary size. When a
// pass is taken, the last Overlap bytes stay behind as history for the next
// one, unless a dictionary reset falls between them.
//
// In dual mode there are two buffers: the producer fills one while a pass
// compresses the other. In single mode the producer must wait for the pass
// to be released.
type Window struct {
	size     int
	overlap  int
	interval int64
	dual     bool

	bufs [2][]byte
	busy [2]bool
	fill int

	prefix  int   // history bytes at the start of the fill buffer
	dictPos int64 // bytes since the last dictionary reset, at bufs[fill][prefix]
	reset   bool  // bufs[fill][prefix] starts a new dictionary

	resetPending bool
	keep         int // single mode: history to keep when the pass is released
}

// A Pass is a filled buffer handed to the compressor.
type Pass struct {
	Data    []byte // history followed by new input
	Start   int    // index of the first new byte in Data
	Reset   bool   // a new dictionary starts at Data[Start]
	DictPos int64  // bytes between the last dictionary reset and Data[Start]

	buf int
}

// NewWindow returns a Window whose buffers hold size bytes, keeping overlap
// bytes of history between passes and resetting the dictionary every
// interval bytes (never, if interval is 0).
func NewWindow(size, overlap int, interval int64, dual bool) *Window {
	if overlap >= size {
		overlap = size - 1
	}
	w := &Window{size: size, overlap: overlap, interval: interval, dual: dual}
	w.Reset()
	return w
}

// Reset forgets all buffered data. The next pass starts a new dictionary.
// Allocated memory is kept for reuse.
func (w *Window) Reset() {
	for i := range w.bufs {
		w.bufs[i] = w.bufs[i][:0]
		w.busy[i] = false
	}
	w.fill = 0
	w.prefix = 0
	w.dictPos = 0
	w.reset = true
	w.resetPending = false
	w.keep = 0
}

// Size returns the capacity of each buffer.
func (w *Window) Size() int { return w.size }

// Pending returns the number of new bytes waiting in the fill buffer.
func (w *Window) Pending() int {
	return len(w.bufs[w.fill]) - w.prefix
}

// InFlight reports whether any pass has been taken and not released.
func (w *Window) InFlight() bool {
	return w.busy[0] || w.busy[1]
}

func (w *Window) room() int {
	if w.busy[w.fill] {
		return 0
	}
	n := w.size - len(w.bufs[w.fill])
	if w.interval > 0 {
		r := w.interval - w.dictPos - int64(w.Pending())
		if r < int64(n) {
			n = int(r)
		}
	}
	return n
}

// Full reports whether the fill buffer has new data and no room for more:
// it is at capacity or at the next dictionary reset boundary.
func (w *Window) Full() bool {
	return !w.busy[w.fill] && w.Pending() > 0 && w.room() == 0
}

// Writable returns the free region of the fill buffer. It is empty while
// the buffer is being compressed or when Full is true.
func (w *Window) Writable() []byte {
	n := w.room()
	if n <= 0 {
		return nil
	}
	buf := w.bufs[w.fill]
	if len(buf) == cap(buf) {
		newCap := 2 * cap(buf)
		if newCap < 1<<16 {
			newCap = 1 << 16
		}
		if newCap > w.size {
			newCap = w.size
		}
		nb := make([]byte, len(buf), newCap)
		copy(nb, buf)
		w.bufs[w.fill] = nb
		buf = nb
	}
	if avail := cap(buf) - len(buf); n > avail {
		n = avail
	}
	return buf[len(buf) : len(buf)+n]
}

// Commit records that n bytes were written into the region returned by
// Writable.
func (w *Window) Commit(n int) {
	buf := w.bufs[w.fill]
	if n < 0 || n > w.room() || len(buf)+n > cap(buf) {
		panic("lz: Window.Commit beyond the writable region")
	}
	w.bufs[w.fill] = buf[:len(buf)+n]
}

// Write copies as much of p as fits into the fill buffer.
func (w *Window) Write(p []byte) int {
	n := 0
	for n < len(p) {
		dst := w.Writable()
		if len(dst) == 0 {
			break
		}
		k := copy(dst, p[n:])
		w.Commit(k)
		n += k
	}
	return n
}

// Take hands the fill buffer to the compressor. It returns false if the
// buffer (or, in dual mode, the buffer that would be filled next) is still
// in flight.
func (w *Window) Take() (Pass, bool) {
	next := w.fill
	if w.dual {
		next = 1 - w.fill
	}
	if w.busy[w.fill] || w.busy[next] {
		return Pass{}, false
	}
	buf := w.bufs[w.fill]
	p := Pass{Data: buf, Start: w.prefix, Reset: w.reset, DictPos: w.dictPos, buf: w.fill}

	end := w.dictPos + int64(len(buf)-w.prefix)
	resetNext := w.resetPending || (w.interval > 0 && end >= w.interval)
	keep := 0
	if !resetNext && len(buf) > 0 {
		keep = w.overlap
		if keep < 1 {
			// The coder needs the previous byte as literal context.
			keep = 1
		}
		if keep > len(buf) {
			keep = len(buf)
		}
	}
	w.busy[w.fill] = true
	w.resetPending = false
	if resetNext {
		w.dictPos = 0
		w.reset = true
	} else {
		w.dictPos = end
		w.reset = false
	}

	if w.dual {
		nb := w.bufs[next][:0]
		if cap(nb) < keep {
			nb = make([]byte, 0, keep)
		}
		w.bufs[next] = append(nb, buf[len(buf)-keep:]...)
		w.fill = next
		w.prefix = keep
	} else {
		w.keep = keep
	}
	return p, true
}

// Release returns the buffer of a finished pass.
func (w *Window) Release(p Pass) {
	w.busy[p.buf] = false
	if w.dual {
		return
	}
	if w.resetPending {
		w.keep = 0
		w.dictPos = 0
		w.reset = true
		w.resetPending = false
	}
	buf := w.bufs[p.buf]
	copy(buf, buf[len(buf)-w.keep:])
	w.bufs[p.buf] = buf[:w.keep]
	w.prefix = w.keep
	w.keep = 0
}

// RequestReset makes the data written after the call start a new
// dictionary. While a pass is in flight, or new data is already buffered,
// the reset is queued and takes effect at the next pass boundary.
func (w *Window) RequestReset() {
	if w.busy[w.fill] || w.Pending() > 0 {
		w.resetPending = true
		return
	}
	w.bufs[w.fill] = w.bufs[w.fill][:0]
	w.prefix = 0
	w.dictPos = 0
	w.reset = true
}
