package lz

// A LazyParser does one-step lazy matching: before taking a match, it checks
// whether starting one byte later would give a better one.
type LazyParser struct {
	// FastLength is the match length that is taken immediately, without
	// looking ahead.
	FastLength int

	reps       repHistory
	matchCache []AbsoluteMatch
}

func (p *LazyParser) Parse(dst []Match, src Searcher, start, end int) []Match {
	p.reps = initialReps
	s := start
	emitted := start

	for s+1 < end {
		p.matchCache = candidates(p.matchCache[:0], src, &p.reps, s, emitted, end)
		m, sc := best(p.matchCache, &p.reps)
		if sc <= 0 {
			s++
			continue
		}

		for m.length() < p.FastLength && m.Start+2 < end {
			p.matchCache = candidates(p.matchCache[:0], src, &p.reps, m.Start+1, emitted, end)
			next, nextScore := best(p.matchCache, &p.reps)
			if nextScore <= sc {
				break
			}
			m, sc = next, nextScore
		}

		dst = append(dst, Match{
			Unmatched: m.Start - emitted,
			Length:    m.length(),
			Distance:  m.distance(),
		})
		p.reps.push(m.distance())
		s = m.End
		emitted = s
	}

	if emitted < end {
		dst = append(dst, Match{
			Unmatched: end - emitted,
		})
	}
	return dst
}
