package lz

// An OverlapParser follows chains of overlapping matches. Having found a
// match, it looks for one starting two bytes before its end, and keeps
// going while each new match scores better than the last. The overlaps in
// the chain are then trimmed away, in favour of the longer match of each
// pair. The method is described at
// https://fastcompression.blogspot.com/2011/12/advanced-parsing-strategies.html
type OverlapParser struct {
	// FastLength ends a chain: a match this long is not challenged.
	FastLength int

	reps  repHistory
	cache []AbsoluteMatch
	links []link
}

// A link is one match of a chain, with the alternatives it was chosen
// from, kept so that it can be chosen again when its range shrinks.
type link struct {
	m    AbsoluteMatch
	alts []AbsoluteMatch
}

// pick sets l.m to the best alternative clipped to [lo, hi), and returns
// its score.
func (l *link) pick(lo, hi int, reps *repHistory) int {
	l.m = AbsoluteMatch{}
	top := 0
	for _, m := range l.alts {
		if m.Start < lo {
			m.Match += lo - m.Start
			m.Start = lo
		}
		if m.End > hi {
			m.End = hi
		}
		if m.End <= m.Start {
			continue
		}
		if s := score(m, reps); s > top {
			l.m, top = m, s
		}
	}
	return top
}

func (p *OverlapParser) Parse(dst []Match, src Searcher, start, end int) []Match {
	p.reps = initialReps
	emitted := start

	for pos := start; pos < end; {
		chain := p.resolve(p.grow(src, pos, emitted, end), emitted, end)
		if len(chain) == 0 {
			pos++
			continue
		}
		for _, l := range chain {
			dst = append(dst, Match{
				Unmatched: l.m.Start - emitted,
				Length:    l.m.length(),
				Distance:  l.m.distance(),
			})
			p.reps.push(l.m.distance())
			emitted = l.m.End
		}
		pos = emitted
	}

	if emitted < end {
		dst = append(dst, Match{Unmatched: end - emitted})
	}
	return dst
}

// grow builds the chain of ever better matches beginning at pos.
func (p *OverlapParser) grow(src Searcher, pos, emitted, end int) []link {
	chain := p.links[:0]
	p.cache = candidates(p.cache[:0], src, &p.reps, pos, emitted, end)
	last := link{alts: p.cache}
	sc := last.pick(emitted, end, &p.reps)
	if sc > 0 {
		chain = append(chain, last)
	}
	for sc > 0 && last.m.length() < p.FastLength {
		n := len(p.cache)
		p.cache = candidates(p.cache, src, &p.reps, last.m.End-2, last.m.Start, end)
		next := link{alts: p.cache[n:]}
		nextScore := next.pick(last.m.Start, end, &p.reps)
		if nextScore <= sc {
			break
		}
		chain = append(chain, next)
		last, sc = next, nextScore
	}
	p.links = chain
	return chain
}

// resolve removes the overlaps from a chain, walking it backward. Of two
// overlapping neighbours the shorter one gives way, and is dropped if
// nothing worth coding is left of it.
func (p *OverlapParser) resolve(chain []link, emitted, end int) []link {
	for i := len(chain) - 2; i >= 0; i-- {
		a, b := &chain[i], &chain[i+1]
		if a.m.length() <= b.m.length() {
			if a.m.End > b.m.Start {
				a.pick(emitted, b.m.Start, &p.reps)
			}
			if score(a.m, &p.reps) <= 0 {
				chain = append(chain[:i], chain[i+1:]...)
			}
			continue
		}

		// b may already have been trimmed from the right.
		if a.m.End > b.m.Start {
			hi := end
			if i+2 < len(chain) {
				hi = chain[i+2].m.Start
			}
			b.pick(a.m.End, hi, &p.reps)
		}
		if score(b.m, &p.reps) <= 0 {
			chain = append(chain[:i+1], chain[i+2:]...)
			if i+1 < len(chain) {
				// Check a against its new neighbour.
				i++
			}
		}
	}
	return chain
}
