package lz

// initialReps matches the distances of a freshly reset LZMA state.
var initialReps = repHistory{1, 1, 1, 1}

// candidates appends the matches at pos: first the ones at recently used
// distances, then the ones src finds.
func candidates(dst []AbsoluteMatch, src Searcher, reps *repHistory, pos, min, max int) []AbsoluteMatch {
	dst = src.Repeat(dst, pos, max, reps[:])
	return src.Search(dst, pos, min, max)
}

// A GreedyParser takes the best scoring match at each position.
type GreedyParser struct {
	reps       repHistory
	matchCache []AbsoluteMatch
}

func (p *GreedyParser) Parse(dst []Match, src Searcher, start, end int) []Match {
	p.reps = initialReps
	emitted := start
	for s := start; s+1 < end; {
		p.matchCache = candidates(p.matchCache[:0], src, &p.reps, s, emitted, end)
		m, sc := best(p.matchCache, &p.reps)
		if sc <= 0 {
			s++
			continue
		}
		dst = append(dst, Match{
			Unmatched: m.Start - emitted,
			Length:    m.length(),
			Distance:  m.distance(),
		})
		p.reps.push(m.distance())
		emitted = m.End
		s = emitted
	}

	if emitted < end {
		dst = append(dst, Match{Unmatched: end - emitted})
	}
	return dst
}
