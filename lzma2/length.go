package lzma2

const (
	lenLowBits  = 3
	lenMidBits  = 3
	lenHighBits = 8
	lenLowSyms  = 1 << lenLowBits
	lenMidSyms  = 1 << lenMidBits
)

// lengthCoder codes match lengths minus MinMatchLen in three ranges:
// 0-7 and 8-15 per position state, 16-271 shared.
type lengthCoder struct {
	choice  prob
	choice2 prob
	low     [1 << numPosBitsMax]bitTree
	mid     [1 << numPosBitsMax]bitTree
	high    bitTree
}

func newLengthCoder() lengthCoder {
	var c lengthCoder
	for i := range c.low {
		c.low[i] = makeBitTree(lenLowBits)
		c.mid[i] = makeBitTree(lenMidBits)
	}
	c.high = makeBitTree(lenHighBits)
	c.reset()
	return c
}

func (c *lengthCoder) reset() {
	c.choice = probInit
	c.choice2 = probInit
	for i := range c.low {
		c.low[i].reset()
		c.mid[i].reset()
	}
	c.high.reset()
}

func (c *lengthCoder) encode(e *rangeEncoder, l uint32, posState uint32) {
	if l < lenLowSyms {
		e.encodeBit(&c.choice, 0)
		c.low[posState].encode(e, l)
		return
	}
	e.encodeBit(&c.choice, 1)
	l -= lenLowSyms
	if l < lenMidSyms {
		e.encodeBit(&c.choice2, 0)
		c.mid[posState].encode(e, l)
		return
	}
	e.encodeBit(&c.choice2, 1)
	c.high.encode(e, l-lenMidSyms)
}

func (c *lengthCoder) decode(d *rangeDecoder, posState uint32) uint32 {
	if d.decodeBit(&c.choice) == 0 {
		return c.low[posState].decode(d)
	}
	if d.decodeBit(&c.choice2) == 0 {
		return lenLowSyms + c.mid[posState].decode(d)
	}
	return lenLowSyms + lenMidSyms + c.high.decode(d)
}

func (c *lengthCoder) price(l uint32, posState uint32) uint32 {
	if l < lenLowSyms {
		return price0(c.choice) + c.low[posState].price(l)
	}
	l -= lenLowSyms
	if l < lenMidSyms {
		return price1(c.choice) + price0(c.choice2) + c.mid[posState].price(l)
	}
	return price1(c.choice) + price1(c.choice2) + c.high.price(l-lenMidSyms)
}
