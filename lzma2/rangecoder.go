package lzma2

const (
	numBitModelTotalBits = 11
	bitModelTotal        = 1 << numBitModelTotalBits
	numMoveBits          = 5
	topValue             = 1 << 24

	numMoveReducingBits  = 2
	numBitPriceShiftBits = 4
)

// prob is an adaptive probability that the next bit is 0, scaled to
// bitModelTotal.
type prob uint16

const probInit prob = bitModelTotal / 2

func initProbs(p []prob) {
	for i := range p {
		p[i] = probInit
	}
}

// rangeEncoder writes range-coded bits to an in-memory buffer.
type rangeEncoder struct {
	low       uint64
	rng       uint32
	cache     byte
	cacheSize int64
	out       []byte
}

func (e *rangeEncoder) reset() {
	e.low = 0
	e.rng = 0xFFFFFFFF
	e.cache = 0
	e.cacheSize = 1
	e.out = e.out[:0]
}

// pending returns an upper bound of the bytes the encoder would hold after
// flushing now.
func (e *rangeEncoder) pending() int {
	return len(e.out) + int(e.cacheSize) + 5
}

func (e *rangeEncoder) shiftLow() {
	if uint32(e.low) < 0xFF000000 || e.low>>32 != 0 {
		carry := byte(e.low >> 32)
		temp := e.cache
		for {
			e.out = append(e.out, temp+carry)
			temp = 0xFF
			e.cacheSize--
			if e.cacheSize == 0 {
				break
			}
		}
		e.cache = byte(e.low >> 24)
	}
	e.cacheSize++
	e.low = uint64(uint32(e.low) << 8)
}

func (e *rangeEncoder) flush() {
	for i := 0; i < 5; i++ {
		e.shiftLow()
	}
}

func (e *rangeEncoder) encodeBit(p *prob, bit uint32) {
	bound := (e.rng >> numBitModelTotalBits) * uint32(*p)
	if bit == 0 {
		e.rng = bound
		*p += (bitModelTotal - *p) >> numMoveBits
	} else {
		e.low += uint64(bound)
		e.rng -= bound
		*p -= *p >> numMoveBits
	}
	for e.rng < topValue {
		e.rng <<= 8
		e.shiftLow()
	}
}

func (e *rangeEncoder) encodeDirectBits(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		e.rng >>= 1
		if (v>>uint(i))&1 != 0 {
			e.low += uint64(e.rng)
		}
		if e.rng < topValue {
			e.rng <<= 8
			e.shiftLow()
		}
	}
}

// rangeDecoder reads range-coded bits from the payload of one chunk.
type rangeDecoder struct {
	rng  uint32
	code uint32
	in   []byte
	pos  int
}

func (d *rangeDecoder) init(in []byte) error {
	if len(in) < 5 || in[0] != 0 {
		return ErrCorrupt
	}
	d.in = in
	d.pos = 5
	d.rng = 0xFFFFFFFF
	d.code = uint32(in[1])<<24 | uint32(in[2])<<16 | uint32(in[3])<<8 | uint32(in[4])
	return nil
}

// finished reports whether the range decoder consumed exactly its input
// and ended in the state the encoder's flush leaves behind.
func (d *rangeDecoder) finished() bool {
	return d.code == 0 && d.pos == len(d.in)
}

func (d *rangeDecoder) overrun() bool {
	return d.pos > len(d.in)
}

func (d *rangeDecoder) normalize() {
	if d.rng < topValue {
		d.rng <<= 8
		var b byte
		if d.pos < len(d.in) {
			b = d.in[d.pos]
		}
		// pos may run past the end; the chunk decoder reports that as
		// corruption.
		d.pos++
		d.code = d.code<<8 | uint32(b)
	}
}

func (d *rangeDecoder) decodeBit(p *prob) uint32 {
	bound := (d.rng >> numBitModelTotalBits) * uint32(*p)
	var bit uint32
	if d.code < bound {
		d.rng = bound
		*p += (bitModelTotal - *p) >> numMoveBits
	} else {
		d.code -= bound
		d.rng -= bound
		*p -= *p >> numMoveBits
		bit = 1
	}
	d.normalize()
	return bit
}

func (d *rangeDecoder) decodeDirectBits(n int) uint32 {
	var res uint32
	for ; n > 0; n-- {
		d.rng >>= 1
		d.code -= d.rng
		t := 0 - (d.code >> 31)
		d.code += d.rng & t
		res = res<<1 + (t + 1)
		d.normalize()
	}
	return res
}

var probPrices [bitModelTotal >> numMoveReducingBits]uint32

func init() {
	const numBits = numBitModelTotalBits - numMoveReducingBits
	for i := numBits - 1; i >= 0; i-- {
		start := uint32(1) << uint(numBits-i-1)
		end := uint32(1) << uint(numBits-i)
		for j := start; j < end; j++ {
			probPrices[j] = uint32(i)<<numBitPriceShiftBits +
				((end-j)<<numBitPriceShiftBits)>>uint(numBits-i-1)
		}
	}
}

// price0 and price1 return the cost, in 1/16 bits, of coding a 0 or a 1
// with probability p.
func price0(p prob) uint32 {
	return probPrices[p>>numMoveReducingBits]
}

func price1(p prob) uint32 {
	return probPrices[(bitModelTotal-p)>>numMoveReducingBits]
}

func priceBit(p prob, bit uint32) uint32 {
	if bit == 0 {
		return price0(p)
	}
	return price1(p)
}
