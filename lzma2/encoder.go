package lzma2

import (
	"github.com/kingsznhone/fl2/lz"
)

// opMargin bounds the range coder output of a single literal or match.
const opMargin = 32

// A BlockEncoder encodes the match list of one block as a sequence of
// chunks. Every block starts with a state reset and a properties byte, so
// blocks can be encoded independently and concatenated.
type BlockEncoder struct {
	props Props
	m     *model
	rc    rangeEncoder

	src  []byte
	base int64 // dictionary position of src[0]

	chunkStart int
	chunkReset int

	needDictReset  bool
	needProps      bool
	needStateReset bool
}

// NewBlockEncoder returns an encoder using the properties p.
func NewBlockEncoder(p Props) *BlockEncoder {
	return &BlockEncoder{props: p, m: newModel(p)}
}

// Encode appends the chunks for src[start:] to dst. src[:start] is history
// that matches may refer to, and dictPos is the number of bytes between the
// last dictionary reset and src[start]. If dictReset is set, the first
// chunk resets the dictionary and dictPos must be 0.
func (e *BlockEncoder) Encode(dst, src []byte, start int, matches []lz.Match, dictReset bool, dictPos int64) []byte {
	e.src = src
	e.base = dictPos - int64(start)
	e.needDictReset = dictReset
	e.needProps = true
	e.needStateReset = true

	pos := start
	e.beginChunk(pos)
	for _, mt := range matches {
		for end := pos + mt.Unmatched; pos < end; pos++ {
			if e.full(pos, 1) {
				dst = e.endChunk(dst, pos)
				e.beginChunk(pos)
			}
			e.literal(pos)
		}
		for length := mt.Length; length > 0; {
			n := length
			if n > MaxMatchLen {
				n = MaxMatchLen
				if length-n < MinMatchLen {
					n = length - MinMatchLen
				}
			}
			if e.full(pos, n) {
				dst = e.endChunk(dst, pos)
				e.beginChunk(pos)
			}
			e.match(pos, mt.Distance, n)
			pos += n
			length -= n
		}
	}
	dst = e.endChunk(dst, pos)
	e.src = nil
	return dst
}

func (e *BlockEncoder) full(pos, n int) bool {
	return pos-e.chunkStart+n > MaxChunkUnpacked || e.rc.pending()+opMargin > MaxChunkPacked
}

func (e *BlockEncoder) beginChunk(pos int) {
	e.chunkStart = pos
	e.rc.reset()
	switch {
	case e.needDictReset:
		e.chunkReset = resetDict
	case e.needProps:
		e.chunkReset = resetProps
	case e.needStateReset:
		e.chunkReset = resetState
	default:
		e.chunkReset = resetNone
	}
	if e.chunkReset != resetNone {
		e.m.reset()
	}
}

func (e *BlockEncoder) endChunk(dst []byte, pos int) []byte {
	u := pos - e.chunkStart
	if u == 0 {
		return dst
	}
	e.rc.flush()
	packed := len(e.rc.out)
	hdr := 5
	if e.chunkReset >= resetProps {
		hdr = 6
	}
	raw := u + 3*((u+MaxRawChunk-1)/MaxRawChunk)
	if packed > MaxChunkPacked || hdr+packed >= raw {
		data := e.src[e.chunkStart:pos]
		for len(data) > 0 {
			n := len(data)
			if n > MaxRawChunk {
				n = MaxRawChunk
			}
			dst = appendRawHeader(dst, e.needDictReset, n)
			dst = append(dst, data[:n]...)
			e.needDictReset = false
			data = data[n:]
		}
		e.needStateReset = true
		return dst
	}
	dst = appendLZMAHeader(dst, e.chunkReset, u, packed, e.props)
	dst = append(dst, e.rc.out...)
	e.needDictReset = false
	e.needProps = false
	e.needStateReset = false
	return dst
}

// literal codes src[pos], as a short rep when that is cheaper.
func (e *BlockEncoder) literal(pos int) {
	m := e.m
	src := e.src
	b := src[pos]
	dpos := e.base + int64(pos)
	posState := m.posState(dpos)
	s := m.state
	rep0 := int(m.reps[0]) + 1

	var prev byte
	if dpos > 0 {
		prev = src[pos-1]
	}
	probs := m.literalProbs(dpos, prev)
	isMatch := &m.isMatch[s<<numPosBitsMax|int(posState)]

	var litPrice uint32
	if isLiteralState(s) {
		litPrice = literalPrice(probs, b)
	} else {
		litPrice = matchedLiteralPrice(probs, b, src[pos-rep0])
	}

	if int64(rep0) <= dpos && pos >= rep0 && src[pos-rep0] == b {
		long := &m.isRep0Long[s<<numPosBitsMax|int(posState)]
		shortPrice := price1(*isMatch) + price1(m.isRep[s]) + price0(m.isRepG0[s]) + price0(*long)
		if shortPrice < price0(*isMatch)+litPrice {
			e.rc.encodeBit(isMatch, 1)
			e.rc.encodeBit(&m.isRep[s], 1)
			e.rc.encodeBit(&m.isRepG0[s], 0)
			e.rc.encodeBit(long, 0)
			m.state = stateAfterShortRep(s)
			return
		}
	}

	e.rc.encodeBit(isMatch, 0)
	if isLiteralState(s) {
		encodeLiteral(&e.rc, probs, b)
	} else {
		encodeMatchedLiteral(&e.rc, probs, b, src[pos-rep0])
	}
	m.state = stateAfterLiteral(s)
}

// match codes a copy of length bytes from dist bytes back, using a rep
// when dist is one of the last four distances.
func (e *BlockEncoder) match(pos, dist, length int) {
	m := e.m
	dpos := e.base + int64(pos)
	posState := m.posState(dpos)
	s := m.state
	d := uint32(dist - 1)
	l := uint32(length - MinMatchLen)

	e.rc.encodeBit(&m.isMatch[s<<numPosBitsMax|int(posState)], 1)

	rep := -1
	for i, r := range m.reps {
		if r == d {
			rep = i
			break
		}
	}
	if rep < 0 {
		e.rc.encodeBit(&m.isRep[s], 0)
		m.match.encode(&e.rc, l, posState)
		m.dist.encode(&e.rc, d, l)
		m.reps = [4]uint32{d, m.reps[0], m.reps[1], m.reps[2]}
		m.state = stateAfterMatch(s)
		return
	}

	e.rc.encodeBit(&m.isRep[s], 1)
	if rep == 0 {
		e.rc.encodeBit(&m.isRepG0[s], 0)
		e.rc.encodeBit(&m.isRep0Long[s<<numPosBitsMax|int(posState)], 1)
	} else {
		e.rc.encodeBit(&m.isRepG0[s], 1)
		if rep == 1 {
			e.rc.encodeBit(&m.isRepG1[s], 0)
		} else {
			e.rc.encodeBit(&m.isRepG1[s], 1)
			e.rc.encodeBit(&m.isRepG2[s], uint32(rep-2))
		}
		copy(m.reps[1:rep+1], m.reps[:rep])
		m.reps[0] = d
	}
	m.rep.encode(&e.rc, l, posState)
	m.state = stateAfterRep(s)
}
