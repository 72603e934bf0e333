package lz

// A Strategy selects how a Finder parses its input.
type Strategy int

const (
	// Greedy takes the best match at each position.
	Greedy Strategy = iota
	// Lazy looks one byte ahead before taking a match.
	Lazy
	// Overlap searches for overlapping matches, with a short-range 3-byte
	// hash chain seeding the search.
	Overlap
)

// MaxLength is the longest match a Finder emits.
const MaxLength = 273

// Config holds the parameters of a Finder.
type Config struct {
	Strategy Strategy

	// ChainLog sets the search effort: 1<<(ChainLog-4) hash chain entries
	// per position, and a 1<<ChainLog entry ring for the 3-byte chain.
	ChainLog int

	// HybridCycles is the number of 3-byte chain candidates per position.
	HybridCycles int

	// SearchDepth is the match length at which a chain walk stops.
	SearchDepth int

	// FastLength is the match length the parsers accept without looking for
	// a better one.
	FastLength int

	DivideAndConquer bool

	// MaxDistance limits how far back matches may reach. 0 means no limit.
	MaxDistance int
}

// A Finder is a MatchFinder configured by a Config. Each call to
// FindMatches is independent of the previous ones.
type Finder struct {
	Config Config

	chain   HashChain
	hybrid  HybridChain
	greedy  GreedyParser
	lazy    LazyParser
	overlap OverlapParser
	matches []Match
}

// NewFinder returns a Finder for c.
func NewFinder(c Config) *Finder {
	return &Finder{Config: c}
}

func (f *Finder) Reset() {
	f.chain.Reset()
	f.matches = f.matches[:0]
}

func (f *Finder) configure() Parser {
	c := f.Config
	f.chain.Attempts = 1
	if c.ChainLog > 4 {
		f.chain.Attempts = 1 << uint(c.ChainLog-4)
	}
	f.chain.NiceLength = c.SearchDepth
	f.chain.MaxDistance = c.MaxDistance
	f.chain.DivideAndConquer = c.DivideAndConquer
	f.chain.Hybrid = nil

	switch c.Strategy {
	case Lazy:
		f.lazy.FastLength = c.FastLength
		return &f.lazy
	case Overlap:
		f.hybrid.ChainLog = c.ChainLog
		f.hybrid.Cycles = c.HybridCycles
		f.chain.Hybrid = &f.hybrid
		f.overlap.FastLength = c.FastLength
		return &f.overlap
	default:
		return &f.greedy
	}
}

// FindMatches looks for matches in src[start:], appends them to dst, and
// returns dst. No match is longer than MaxLength.
func (f *Finder) FindMatches(dst []Match, src []byte, start int) []Match {
	if start >= len(src) {
		return dst
	}
	parser := f.configure()
	f.chain.Index(src)
	f.matches = parser.Parse(f.matches[:0], &f.chain, start, len(src))
	f.chain.src = nil

	for _, m := range f.matches {
		for m.Length > MaxLength {
			// The match is too long; break it up into shorter matches.
			length := MaxLength
			if m.Length < MaxLength+4 {
				length = m.Length - 4
			}
			dst = append(dst, Match{
				Unmatched: m.Unmatched,
				Length:    length,
				Distance:  m.Distance,
			})
			m.Unmatched = 0
			m.Length -= length
		}
		dst = append(dst, m)
	}
	return dst
}
