package lzma2

// literalCoder holds 0x300 probabilities per literal context.
type literalCoder struct {
	probs []prob
}

func (c *literalCoder) resize(lclp int) {
	n := 0x300 << uint(lclp)
	if cap(c.probs) < n {
		c.probs = make([]prob, n)
	}
	c.probs = c.probs[:n]
}

func (c *literalCoder) reset() {
	initProbs(c.probs)
}

func encodeLiteral(e *rangeEncoder, probs []prob, b byte) {
	symbol := uint32(1)
	for i := 7; i >= 0; i-- {
		bit := uint32(b>>uint(i)) & 1
		e.encodeBit(&probs[symbol], bit)
		symbol = symbol<<1 | bit
	}
}

// encodeMatchedLiteral codes b using the byte at rep0 as extra context,
// until the first bit where they differ.
func encodeMatchedLiteral(e *rangeEncoder, probs []prob, b, matchByte byte) {
	offs := uint32(0x100)
	symbol := uint32(b) | 0x100
	mb := uint32(matchByte)
	for symbol < 0x10000 {
		mb <<= 1
		e.encodeBit(&probs[offs+(mb&offs)+(symbol>>8)], (symbol>>7)&1)
		symbol <<= 1
		offs &= ^(mb ^ symbol)
	}
}

func literalPrice(probs []prob, b byte) uint32 {
	var price uint32
	symbol := uint32(1)
	for i := 7; i >= 0; i-- {
		bit := uint32(b>>uint(i)) & 1
		price += priceBit(probs[symbol], bit)
		symbol = symbol<<1 | bit
	}
	return price
}

func matchedLiteralPrice(probs []prob, b, matchByte byte) uint32 {
	var price uint32
	offs := uint32(0x100)
	symbol := uint32(b) | 0x100
	mb := uint32(matchByte)
	for symbol < 0x10000 {
		mb <<= 1
		price += priceBit(probs[offs+(mb&offs)+(symbol>>8)], (symbol>>7)&1)
		symbol <<= 1
		offs &= ^(mb ^ symbol)
	}
	return price
}

func decodeLiteral(d *rangeDecoder, probs []prob) byte {
	symbol := uint32(1)
	for symbol < 0x100 {
		symbol = symbol<<1 | d.decodeBit(&probs[symbol])
	}
	return byte(symbol)
}

func decodeMatchedLiteral(d *rangeDecoder, probs []prob, matchByte byte) byte {
	symbol := uint32(1)
	offs := uint32(0x100)
	mb := uint32(matchByte)
	for symbol < 0x100 {
		mb <<= 1
		matchBit := mb & offs
		if d.decodeBit(&probs[offs+matchBit+symbol]) != 0 {
			symbol = symbol<<1 | 1
			offs = matchBit
		} else {
			symbol <<= 1
			offs ^= matchBit
		}
	}
	return byte(symbol)
}
