package lzma2

import "math"

// A Decoder decodes a sequence of chunks. It keeps the dictionary and the
// LZMA state between chunks, so chunks must be passed in stream order.
type Decoder struct {
	m        *model
	rc       rangeDecoder
	win      window
	dictSize int64

	needDictReset bool
	needProps     bool
}

// NewDecoder returns a Decoder that keeps its own history of at least
// dictSize bytes. Output is retrieved with Read.
func NewDecoder(dictSize uint32) *Decoder {
	limit := int64(dictSize)
	if limit < MaxChunkUnpacked {
		limit = MaxChunkUnpacked
	}
	if limit > math.MaxInt32 {
		limit = math.MaxInt32
	}
	d := &Decoder{m: newModel(DefaultProps), dictSize: int64(dictSize)}
	d.win.limit = int(limit)
	d.Reset()
	return d
}

// NewFlatDecoder returns a Decoder that writes straight into out, which
// must be large enough for everything it decodes.
func NewFlatDecoder(out []byte, dictSize uint32) *Decoder {
	d := &Decoder{m: newModel(DefaultProps), dictSize: int64(dictSize)}
	d.win.buf = out
	d.Reset()
	return d
}

// Reset prepares d for a new stream. The first chunk must reset the
// dictionary.
func (d *Decoder) Reset() {
	d.win.pos = 0
	d.win.read = 0
	d.win.ready = 0
	d.win.total = 0
	d.win.full = false
	d.needDictReset = true
	d.needProps = true
}

// Written returns the number of bytes written into the output of a flat
// decoder.
func (d *Decoder) Written() int {
	return d.win.pos
}

// Buffered returns the number of decoded bytes not yet read.
func (d *Decoder) Buffered() int {
	return d.win.ready
}

// Read copies decoded bytes into p.
func (d *Decoder) Read(p []byte) int {
	return d.win.drain(p)
}

// Fits reports whether a chunk producing n bytes can be decoded without
// overwriting unread output.
func (d *Decoder) Fits(n int) bool {
	return d.win.available() >= n
}

// DecodeChunk decodes one chunk. payload holds exactly h.Packed bytes.
func (d *Decoder) DecodeChunk(h ChunkHeader, payload []byte) error {
	if h.End() {
		return nil
	}
	if len(payload) != h.Packed {
		return ErrCorrupt
	}
	if h.DictReset() {
		d.win.resetDict()
		d.needDictReset = false
		d.needProps = true
	} else if d.needDictReset {
		return ErrCorrupt
	}
	if !d.Fits(h.Unpacked) {
		return ErrOutputFull
	}
	if !h.LZMA() {
		return d.win.write(payload)
	}

	switch {
	case h.HasProps():
		d.m.setProps(h.Props)
		d.needProps = false
	case d.needProps:
		return ErrCorrupt
	case h.StateReset():
		d.m.reset()
	}
	if err := d.rc.init(payload); err != nil {
		return err
	}
	if err := d.decodeLZMA(h.Unpacked); err != nil {
		return err
	}
	if !d.rc.finished() {
		return ErrCorrupt
	}
	return nil
}

func (d *Decoder) decodeLZMA(unpacked int) error {
	m := d.m
	rc := &d.rc
	w := &d.win
	for produced := 0; produced < unpacked; {
		if rc.overrun() {
			return ErrCorrupt
		}
		pos := w.total
		posState := m.posState(pos)
		s := m.state
		if rc.decodeBit(&m.isMatch[s<<numPosBitsMax|int(posState)]) == 0 {
			var prev byte
			if pos > 0 {
				prev = w.byteAt(1)
			}
			probs := m.literalProbs(pos, prev)
			var b byte
			if isLiteralState(s) {
				b = decodeLiteral(rc, probs)
			} else {
				b = decodeMatchedLiteral(rc, probs, w.byteAt(int(m.reps[0])+1))
			}
			if err := w.putByte(b); err != nil {
				return err
			}
			m.state = stateAfterLiteral(s)
			produced++
			continue
		}

		var l uint32
		if rc.decodeBit(&m.isRep[s]) == 0 {
			l = m.match.decode(rc, posState)
			dist := m.dist.decode(rc, l)
			if dist == 0xFFFFFFFF {
				return ErrCorrupt
			}
			m.reps = [4]uint32{dist, m.reps[0], m.reps[1], m.reps[2]}
			m.state = stateAfterMatch(s)
		} else {
			if pos == 0 {
				return ErrCorrupt
			}
			if rc.decodeBit(&m.isRepG0[s]) == 0 {
				if rc.decodeBit(&m.isRep0Long[s<<numPosBitsMax|int(posState)]) == 0 {
					if int64(m.reps[0])+1 > pos {
						return ErrCorrupt
					}
					if err := w.putByte(w.byteAt(int(m.reps[0]) + 1)); err != nil {
						return err
					}
					m.state = stateAfterShortRep(s)
					produced++
					continue
				}
			} else {
				var dist uint32
				if rc.decodeBit(&m.isRepG1[s]) == 0 {
					dist = m.reps[1]
				} else {
					if rc.decodeBit(&m.isRepG2[s]) == 0 {
						dist = m.reps[2]
					} else {
						dist = m.reps[3]
						m.reps[3] = m.reps[2]
					}
					m.reps[2] = m.reps[1]
				}
				m.reps[1] = m.reps[0]
				m.reps[0] = dist
			}
			l = m.rep.decode(rc, posState)
			m.state = stateAfterRep(s)
		}

		length := int(l) + MinMatchLen
		dist := int64(m.reps[0]) + 1
		if dist > pos || dist > d.dictSize || produced+length > unpacked {
			return ErrCorrupt
		}
		if err := w.copyMatch(int(dist), length); err != nil {
			return err
		}
		produced += length
	}
	return nil
}
