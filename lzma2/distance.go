package lzma2

import "math/bits"

// distanceCoder codes zero-based match distances as a 6-bit slot, chosen
// by the length state, followed by footer bits.
type distanceCoder struct {
	slot    [numLenToPosStates]bitTree
	special [numFullDistances - endPosModelIndex + 1]prob
	align   [1 << numAlignBits]prob
}

func newDistanceCoder() distanceCoder {
	var c distanceCoder
	for i := range c.slot {
		c.slot[i] = makeBitTree(numPosSlotBits)
	}
	c.reset()
	return c
}

func (c *distanceCoder) reset() {
	for i := range c.slot {
		c.slot[i].reset()
	}
	initProbs(c.special[:])
	initProbs(c.align[:])
}

// lenState maps a match length minus MinMatchLen to a slot context.
func lenState(l uint32) uint32 {
	if l > numLenToPosStates-1 {
		return numLenToPosStates - 1
	}
	return l
}

// distSlot returns the slot of the zero-based distance d.
func distSlot(d uint32) uint32 {
	if d < startPosModelIndex {
		return d
	}
	n := uint32(bits.Len32(d)) - 1
	return n<<1 | (d>>(n-1))&1
}

func (c *distanceCoder) encode(e *rangeEncoder, d uint32, l uint32) {
	slot := distSlot(d)
	c.slot[lenState(l)].encode(e, slot)
	if slot < startPosModelIndex {
		return
	}
	footerBits := int(slot>>1) - 1
	base := (2 | slot&1) << uint(footerBits)
	reduced := d - base
	if slot < endPosModelIndex {
		encodeReverse(e, c.special[base-slot:], footerBits, reduced)
		return
	}
	e.encodeDirectBits(reduced>>numAlignBits, footerBits-numAlignBits)
	encodeReverse(e, c.align[:], numAlignBits, reduced&(1<<numAlignBits-1))
}

func (c *distanceCoder) decode(d *rangeDecoder, l uint32) uint32 {
	slot := c.slot[lenState(l)].decode(d)
	if slot < startPosModelIndex {
		return slot
	}
	footerBits := int(slot>>1) - 1
	dist := (2 | slot&1) << uint(footerBits)
	if slot < endPosModelIndex {
		return dist + decodeReverse(d, c.special[dist-slot:], footerBits)
	}
	dist += d.decodeDirectBits(footerBits-numAlignBits) << numAlignBits
	return dist + decodeReverse(d, c.align[:], numAlignBits)
}

// price approximates the cost of coding d; direct bits count as one bit
// each.
func (c *distanceCoder) price(d uint32, l uint32) uint32 {
	slot := distSlot(d)
	price := c.slot[lenState(l)].price(slot)
	if slot < startPosModelIndex {
		return price
	}
	footerBits := int(slot>>1) - 1
	return price + uint32(footerBits)<<numBitPriceShiftBits
}
