// Package lz finds LZ77 matches for the LZMA2 encoder.
//
// Compression is split into two parts: looking for repeated sequences of
// bytes, and coding the resulting literals and matches. This package holds
// the first part and the intermediate representation passed between them.
// Match finding is split again into a Searcher, which reports candidate
// matches at a single position, and a Parser, which chooses the matches
// to use.
package lz

// A Match is a run of literals followed by a copy. A list of Matches
// covers its input exactly; the last one may have Length 0.
type Match struct {
	Unmatched int // literal bytes before the copy
	Length    int // bytes copied
	Distance  int // how far back the copy starts
}

// A MatchFinder turns a block into a list of Matches.
type MatchFinder interface {
	// FindMatches appends the matches for src[start:] to dst. Matches may
	// reach back into src[:start], the history.
	FindMatches(dst []Match, src []byte, start int) []Match

	// Reset drops all state carried between calls.
	Reset()
}

// An AbsoluteMatch locates a match by positions in the block rather than
// by lengths: src[Start:End] equals src[Match:Match+End-Start].
type AbsoluteMatch struct {
	Start int
	End   int
	Match int
}

func (m AbsoluteMatch) length() int {
	return m.End - m.Start
}

func (m AbsoluteMatch) distance() int {
	return m.Start - m.Match
}

// A Searcher reports candidate matches at one position of an indexed
// block. Parsers decide which candidates to use.
type Searcher interface {
	// Search appends candidates at pos to dst. Each has
	// min <= Start <= pos < End <= max and Match < Start.
	Search(dst []AbsoluteMatch, pos, min, max int) []AbsoluteMatch

	// Repeat checks for matches at pos at each of the given distances, and
	// appends the ones at least 2 bytes long to dst. End is limited to max.
	Repeat(dst []AbsoluteMatch, pos, max int, distances []int) []AbsoluteMatch
}

// A Parser chooses among the candidates of a Searcher.
type Parser interface {
	// Parse appends matches covering [start, end) to dst.
	Parse(dst []Match, src Searcher, start, end int) []Match
}

// repHistory tracks the last four distances a parser emitted, which the
// LZMA coder can refer to cheaply.
type repHistory [4]int

func (r *repHistory) push(dist int) {
	for i, d := range r {
		if d == dist {
			copy(r[1:i+1], r[:i])
			r[0] = dist
			return
		}
	}
	copy(r[1:], r[:3])
	r[0] = dist
}

func (r *repHistory) index(dist int) int {
	for i, d := range r {
		if d == dist {
			return i
		}
	}
	return -1
}
