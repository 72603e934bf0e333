package lz

import (
	"encoding/binary"
	"math/bits"
)

// HashChain is a Searcher that indexes every position of a block by the
// hash of its first 4 bytes and walks the resulting chains, nearest
// candidate first.
type HashChain struct {
	// Attempts is how many entries to examine on the hash chain.
	// The default is 1.
	Attempts int

	// NiceLength ends the search as soon as a match at least this long
	// is found. 0 means no limit.
	NiceLength int

	// MaxDistance is the maximum distance (in bytes) to look back for
	// a match. The default is no limit.
	MaxDistance int

	// DivideAndConquer ends a chain walk once half of Attempts candidates
	// in a row have failed to improve on the best match.
	DivideAndConquer bool

	// Hybrid, if not nil, is searched first for short nearby matches.
	Hybrid *HybridChain

	head  []uint32
	chain []uint32
	shift uint
	src   []byte
}

const (
	minHashLog = 12
	maxHashLog = 20
)

// Reset clears the indexed block.
func (q *HashChain) Reset() {
	q.src = nil
	q.chain = q.chain[:0]
	if q.Hybrid != nil {
		q.Hybrid.Reset()
	}
}

// Index builds the hash chains over all of src, which must stay unchanged
// while q is searched.
func (q *HashChain) Index(src []byte) {
	hashLog := bits.Len(uint(len(src)))
	if hashLog < minHashLog {
		hashLog = minHashLog
	}
	if hashLog > maxHashLog {
		hashLog = maxHashLog
	}
	q.shift = uint(32 - hashLog)
	if cap(q.head) < 1<<hashLog {
		q.head = make([]uint32, 1<<hashLog)
	} else {
		q.head = q.head[:1<<hashLog]
		for i := range q.head {
			q.head[i] = 0
		}
	}
	if cap(q.chain) < len(src) {
		q.chain = make([]uint32, len(src))
	}
	q.chain = q.chain[:len(src)]
	q.src = src

	// Pre-calculate hashes and chains. Positions are stored plus one, so
	// that 0 marks the end of a chain.
	i := 0
	for ; i+4 <= len(src); i++ {
		h := hash4(binary.LittleEndian.Uint32(src[i:]), q.shift)
		q.chain[i] = q.head[h]
		q.head[h] = uint32(i + 1)
	}
	for ; i < len(src); i++ {
		q.chain[i] = 0
	}
	if q.Hybrid != nil {
		q.Hybrid.Reset()
	}
}

// Search looks for matches at pos, appending each one that is longer than
// the ones before it.
func (q *HashChain) Search(dst []AbsoluteMatch, pos, min, max int) []AbsoluteMatch {
	src := q.src
	length := 0
	if q.Hybrid != nil {
		dst, length = q.Hybrid.search(dst, src, pos, min, max)
	}
	if pos+4 > max || pos >= len(q.chain) {
		return dst
	}
	if q.NiceLength > 0 && length >= q.NiceLength {
		return dst
	}
	searchSeq := binary.LittleEndian.Uint32(src[pos:])
	attempts := q.Attempts
	if attempts < 1 {
		attempts = 1
	}
	misses := 0

	candidate := int(q.chain[pos]) - 1
	for i := 0; i < attempts && candidate >= 0; i++ {
		if q.MaxDistance > 0 && pos-candidate > q.MaxDistance {
			break
		}
		improved := false
		if binary.LittleEndian.Uint32(src[candidate:]) == searchSeq {
			newEnd := extendMatch(src[:max], candidate+4, pos+4)

			// Extend the match backward as far as possible.
			newStart := pos
			newMatch := candidate
			for newStart > min && newMatch > 0 && src[newStart-1] == src[newMatch-1] {
				newStart--
				newMatch--
			}

			if newEnd-newStart > length {
				dst = append(dst, AbsoluteMatch{
					Start: newStart,
					End:   newEnd,
					Match: newMatch,
				})
				length = newEnd - newStart
				improved = true
				if q.NiceLength > 0 && length >= q.NiceLength {
					break
				}
			}
		}
		if improved {
			misses = 0
		} else {
			misses++
			if q.DivideAndConquer && misses >= attempts/2 {
				break
			}
		}
		candidate = int(q.chain[candidate]) - 1
	}

	return dst
}

// Repeat checks for matches at pos at each of the given distances.
func (q *HashChain) Repeat(dst []AbsoluteMatch, pos, max int, distances []int) []AbsoluteMatch {
	src := q.src
	if pos+2 > max {
		return dst
	}
	for i, d := range distances {
		if d <= 0 || d > pos || (q.MaxDistance > 0 && d > q.MaxDistance) {
			continue
		}
		dup := false
		for _, e := range distances[:i] {
			if e == d {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		if src[pos] != src[pos-d] || src[pos+1] != src[pos+1-d] {
			continue
		}
		end := extendMatch(src[:max], pos-d+2, pos+2)
		dst = append(dst, AbsoluteMatch{Start: pos, End: end, Match: pos - d})
	}
	return dst
}

// HybridChain finds short matches close to the search position. It hashes
// 3 bytes and keeps its chain links in a ring of 1<<ChainLog entries, so it
// only reaches back that many positions.
type HybridChain struct {
	// ChainLog is the base-2 logarithm of the ring size.
	ChainLog int

	// Cycles is how many candidates to examine per search.
	Cycles int

	head []uint32
	ring []uint32
	next int
}

const hybridHashLog = 16

// Reset clears the chains.
func (h *HybridChain) Reset() {
	if len(h.head) != 1<<hybridHashLog {
		h.head = make([]uint32, 1<<hybridHashLog)
	} else {
		for i := range h.head {
			h.head[i] = 0
		}
	}
	if len(h.ring) != 1<<h.ChainLog {
		h.ring = make([]uint32, 1<<h.ChainLog)
	}
	h.next = 0
}

func (h *HybridChain) insert(src []byte, pos int) {
	mask := len(h.ring) - 1
	for ; h.next < pos && h.next+3 <= len(src); h.next++ {
		k := hash3(src, h.next, 32-hybridHashLog)
		h.ring[h.next&mask] = h.head[k]
		h.head[k] = uint32(h.next + 1)
	}
}

// search returns dst with the matches found appended, and the length of
// the longest one.
func (h *HybridChain) search(dst []AbsoluteMatch, src []byte, pos, min, max int) ([]AbsoluteMatch, int) {
	if pos+3 > max || len(h.ring) == 0 {
		return dst, 0
	}
	h.insert(src, pos)
	mask := len(h.ring) - 1
	candidate := int(h.head[hash3(src, pos, 32-hybridHashLog)]) - 1
	length := 0
	for i := 0; i < h.Cycles+len(h.ring) && candidate >= pos; i++ {
		// Positions indexed ahead of pos by an earlier search.
		prev := int(h.ring[candidate&mask]) - 1
		if prev >= candidate {
			return dst, 0
		}
		candidate = prev
	}
	for i := 0; i < h.Cycles && candidate >= 0; i++ {
		if candidate >= pos || pos-candidate >= len(h.ring) {
			break
		}
		if src[candidate] == src[pos] && src[candidate+1] == src[pos+1] && src[candidate+2] == src[pos+2] {
			newEnd := extendMatch(src[:max], candidate+3, pos+3)
			if newEnd-pos > length {
				dst = append(dst, AbsoluteMatch{Start: pos, End: newEnd, Match: candidate})
				length = newEnd - pos
			}
		}
		prev := int(h.ring[candidate&mask]) - 1
		if prev >= candidate {
			break
		}
		candidate = prev
	}
	return dst, length
}
