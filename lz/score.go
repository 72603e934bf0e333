package lz

import "math/bits"

// Rough LZMA costs, in bits.
const (
	literalBits = 7
	matchBits   = 10 // isMatch, isRep and the distance slot
	repBits     = 4  // isMatch, isRep and the rep selector bits
)

func lengthBits(n int) int {
	switch {
	case n < 10:
		return 4
	case n < 18:
		return 5
	default:
		return 10
	}
}

// score estimates how many bits coding m as a match saves over coding its
// bytes as literals. A match that saves nothing scores 0 or less.
func score(m AbsoluteMatch, reps *repHistory) int {
	n := m.length()
	if n < 2 {
		return 0
	}
	d := m.distance()
	if i := reps.index(d); i >= 0 {
		return n*literalBits - repBits - i - lengthBits(n)
	}
	if n < 3 {
		return 0
	}
	return n*literalBits - matchBits - bits.Len(uint(d)) - lengthBits(n)
}

// best returns the highest scoring match. Earlier entries win ties.
func best(matches []AbsoluteMatch, reps *repHistory) (AbsoluteMatch, int) {
	var m AbsoluteMatch
	maxScore := 0
	for _, c := range matches {
		if s := score(c, reps); s > maxScore {
			m = c
			maxScore = s
		}
	}
	return m, maxScore
}
