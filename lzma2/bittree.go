package lzma2

// bitTree codes numBits-bit symbols most significant bit first, each bit
// modeled by the path leading to it.
type bitTree struct {
	probs   []prob
	numBits int
}

func makeBitTree(numBits int) bitTree {
	t := bitTree{probs: make([]prob, 1<<uint(numBits)), numBits: numBits}
	initProbs(t.probs)
	return t
}

func (t *bitTree) reset() {
	initProbs(t.probs)
}

func (t *bitTree) encode(e *rangeEncoder, v uint32) {
	m := uint32(1)
	for i := t.numBits - 1; i >= 0; i-- {
		b := (v >> uint(i)) & 1
		e.encodeBit(&t.probs[m], b)
		m = m<<1 | b
	}
}

func (t *bitTree) decode(d *rangeDecoder) uint32 {
	m := uint32(1)
	for i := 0; i < t.numBits; i++ {
		m = m<<1 | d.decodeBit(&t.probs[m])
	}
	return m - 1<<uint(t.numBits)
}

func (t *bitTree) price(v uint32) uint32 {
	var price uint32
	m := uint32(1)
	for i := t.numBits - 1; i >= 0; i-- {
		b := (v >> uint(i)) & 1
		price += priceBit(t.probs[m], b)
		m = m<<1 | b
	}
	return price
}

// The reverse variants code the least significant bit first. They are
// used for distance footers and align bits.

func encodeReverse(e *rangeEncoder, probs []prob, numBits int, v uint32) {
	m := uint32(1)
	for i := 0; i < numBits; i++ {
		b := v & 1
		v >>= 1
		e.encodeBit(&probs[m], b)
		m = m<<1 | b
	}
}

func decodeReverse(d *rangeDecoder, probs []prob, numBits int) uint32 {
	m := uint32(1)
	var v uint32
	for i := 0; i < numBits; i++ {
		b := d.decodeBit(&probs[m])
		m = m<<1 | b
		v |= b << uint(i)
	}
	return v
}
