package lzma2

import "fmt"

const (
	numStates          = 12
	numPosBitsMax      = 4
	numLenToPosStates  = 4
	numAlignBits       = 4
	startPosModelIndex = 4
	endPosModelIndex   = 14
	numFullDistances   = 1 << (endPosModelIndex >> 1)
	numPosSlotBits     = 6

	// MinMatchLen and MaxMatchLen bound the length of a single LZMA match.
	MinMatchLen = 2
	MaxMatchLen = 273

	// LCLPMax is the largest allowed sum of the literal context and literal
	// position bits.
	LCLPMax = 4
)

// Props holds the literal context bits, literal position bits and
// position bits of an LZMA coder.
type Props struct {
	LC, LP, PB int
}

// DefaultProps are the properties used by the compression presets.
var DefaultProps = Props{LC: 3, LP: 0, PB: 2}

// Valid checks the ranges of each field and their combined limit.
func (p Props) Valid() error {
	if p.LC < 0 || p.LC > 4 || p.LP < 0 || p.LP > 4 || p.PB < 0 || p.PB > 4 {
		return fmt.Errorf("%w: lc=%d lp=%d pb=%d", ErrProps, p.LC, p.LP, p.PB)
	}
	if p.LC+p.LP > LCLPMax {
		return fmt.Errorf("%w: lc+lp=%d", ErrProps, p.LC+p.LP)
	}
	return nil
}

// Byte returns the encoded properties byte, (pb*5+lp)*9+lc.
func (p Props) Byte() byte {
	return byte((p.PB*5+p.LP)*9 + p.LC)
}

// PropsFromByte decodes a properties byte.
func PropsFromByte(b byte) (Props, error) {
	if b >= 9*5*5 {
		return Props{}, ErrProps
	}
	v := int(b)
	p := Props{LC: v % 9}
	v /= 9
	p.LP = v % 5
	p.PB = v / 5
	if p.LC+p.LP > LCLPMax {
		return Props{}, ErrProps
	}
	return p, nil
}

// The LZMA state tracks the kinds of the most recent operations.
// States below 7 follow a literal.

func stateAfterLiteral(s int) int {
	switch {
	case s < 4:
		return 0
	case s < 10:
		return s - 3
	default:
		return s - 6
	}
}

func stateAfterMatch(s int) int {
	if s < 7 {
		return 7
	}
	return 10
}

func stateAfterRep(s int) int {
	if s < 7 {
		return 8
	}
	return 11
}

func stateAfterShortRep(s int) int {
	if s < 7 {
		return 9
	}
	return 11
}

func isLiteralState(s int) bool {
	return s < 7
}

// model holds every adaptive probability of the LZMA coder. The encoder and
// decoder use the same layout.
type model struct {
	props Props

	state int
	reps  [4]uint32

	isMatch    [numStates << numPosBitsMax]prob
	isRep      [numStates]prob
	isRepG0    [numStates]prob
	isRepG1    [numStates]prob
	isRepG2    [numStates]prob
	isRep0Long [numStates << numPosBitsMax]prob

	literal literalCoder
	match   lengthCoder
	rep     lengthCoder
	dist    distanceCoder
}

func newModel(p Props) *model {
	m := &model{}
	m.match = newLengthCoder()
	m.rep = newLengthCoder()
	m.dist = newDistanceCoder()
	m.setProps(p)
	return m
}

// setProps changes the properties and resets the state.
func (m *model) setProps(p Props) {
	m.props = p
	m.literal.resize(p.LC + p.LP)
	m.reset()
}

// reset returns the probabilities, state and reps to their initial values.
func (m *model) reset() {
	m.state = 0
	m.reps = [4]uint32{}
	initProbs(m.isMatch[:])
	initProbs(m.isRep[:])
	initProbs(m.isRepG0[:])
	initProbs(m.isRepG1[:])
	initProbs(m.isRepG2[:])
	initProbs(m.isRep0Long[:])
	m.literal.reset()
	m.match.reset()
	m.rep.reset()
	m.dist.reset()
}

// posState returns the position context for the pb bits.
func (m *model) posState(pos int64) uint32 {
	return uint32(pos) & (1<<uint(m.props.PB) - 1)
}

// literalProbs returns the probability table for a literal at pos whose
// preceding byte is prev.
func (m *model) literalProbs(pos int64, prev byte) []prob {
	lc := uint(m.props.LC)
	lp := uint(m.props.LP)
	i := (uint32(pos)&(1<<lp-1))<<lc + uint32(prev)>>(8-lc)
	return m.literal.probs[i*0x300 : (i+1)*0x300]
}
