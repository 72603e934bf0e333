package lzma2

// window is the decoder's output history. In flat mode it writes into a
// caller-provided slice and never wraps. Otherwise it grows up to limit
// bytes and then wraps as a ring.
type window struct {
	buf   []byte
	pos   int   // next write index
	limit int   // ring size; 0 in flat mode
	full  bool  // the ring has wrapped at least once
	total int64 // bytes since the last dictionary reset
	read  int   // first byte not yet drained
	ready int   // bytes written but not drained
}

func (w *window) flat() bool { return w.limit == 0 }

func (w *window) resetDict() {
	w.total = 0
}

// available returns how many more bytes can be written without
// overwriting undrained output.
func (w *window) available() int {
	if w.flat() {
		return len(w.buf) - w.pos
	}
	return w.limit - w.ready
}

func (w *window) grow() bool {
	if w.flat() {
		return false
	}
	if len(w.buf) < w.limit {
		n := 2*len(w.buf) + 1<<16
		if n > w.limit {
			n = w.limit
		}
		nb := make([]byte, n)
		copy(nb, w.buf)
		w.buf = nb
		return true
	}
	w.pos = 0
	w.full = true
	return true
}

func (w *window) putByte(b byte) error {
	if w.pos == len(w.buf) && !w.grow() {
		return ErrOutputFull
	}
	w.buf[w.pos] = b
	w.pos++
	w.total++
	w.ready++
	return nil
}

// byteAt returns the byte dist bytes back; dist must be at least 1 and
// not exceed total.
func (w *window) byteAt(dist int) byte {
	i := w.pos - dist
	if i < 0 {
		i += len(w.buf)
	}
	return w.buf[i]
}

// copyMatch repeats length bytes from dist bytes back.
func (w *window) copyMatch(dist, length int) error {
	if w.flat() {
		if len(w.buf)-w.pos < length {
			return ErrOutputFull
		}
		src := w.pos - dist
		if dist >= length {
			copy(w.buf[w.pos:w.pos+length], w.buf[src:])
		} else {
			for i := 0; i < length; i++ {
				w.buf[w.pos+i] = w.buf[src+i]
			}
		}
		w.pos += length
		w.total += int64(length)
		w.ready += length
		return nil
	}
	for i := 0; i < length; i++ {
		if err := w.putByte(w.byteAt(dist)); err != nil {
			return err
		}
	}
	return nil
}

func (w *window) write(p []byte) error {
	if w.flat() {
		if len(w.buf)-w.pos < len(p) {
			return ErrOutputFull
		}
		copy(w.buf[w.pos:], p)
		w.pos += len(p)
		w.total += int64(len(p))
		w.ready += len(p)
		return nil
	}
	for _, b := range p {
		if err := w.putByte(b); err != nil {
			return err
		}
	}
	return nil
}

// drain copies undrained output into p.
func (w *window) drain(p []byte) int {
	n := 0
	for n < len(p) && w.ready > 0 {
		if w.read == len(w.buf) {
			w.read = 0
		}
		end := w.read + w.ready
		if end > len(w.buf) {
			end = len(w.buf)
		}
		k := copy(p[n:], w.buf[w.read:end])
		n += k
		w.read += k
		w.ready -= k
	}
	return n
}
