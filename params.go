package fl2

import (
	"fmt"
	"math/bits"
)

// A Strategy selects the match finder's parsing method.
type Strategy int

const (
	// Fast takes the best match at each position.
	Fast Strategy = iota + 1
	// Optimized evaluates each match against the next position first.
	Optimized
	// Ultra adds a 3-byte hash chain and resolves overlapping matches.
	Ultra
)

func (s Strategy) String() string {
	switch s {
	case Fast:
		return "fast"
	case Optimized:
		return "optimized"
	case Ultra:
		return "ultra"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Parameter bounds. The dictionary limit depends on the address space.
const (
	DictLogMin  = 20
	DictLogMax  = 27 + 3*(bits.UintSize/64)
	DictSizeMin = 1 << DictLogMin
	DictSizeMax = 1 << DictLogMax

	OverlapFractionMax = 14
	ResetIntervalMin   = 1
	ResetIntervalMax   = 16
	BufferResizeMax    = 4
	ChainLogMin        = 4
	ChainLogMax        = 14
	HybridCyclesMin    = 1
	HybridCyclesMax    = 64
	SearchDepthMin     = 6
	SearchDepthMax     = 254
	FastLengthMin      = 6
	FastLengthMax      = 273
	LCMax              = 4
	LPMax              = 4
	PBMax              = 4
	LCLPMax            = 4

	DefaultCompressionLevel = 6
	MaxCompressionLevel     = 10
	MaxHighCompressionLevel = 10
)

// CompressionParameters is the complete configuration of a compressor.
type CompressionParameters struct {
	// DictionarySize is the size of the window, and the farthest a match
	// may reach back.
	DictionarySize int

	// OverlapFraction is the part of each block, in sixteenths, carried
	// into the next block as history.
	OverlapFraction int

	// ResetInterval is the number of dictionary sizes between dictionary
	// resets. Each reset starts a segment that can be decoded in parallel.
	ResetInterval int

	// BufferResize scales the block size: 0=50%, 1=75%, 2=100%, 3=150%,
	// 4=200% of a quarter of the dictionary size.
	BufferResize int

	// ChainLog sets the search effort of the hash chain, and the size of
	// the 3-byte chain used by the Ultra strategy.
	ChainLog     int
	HybridCycles int

	// SearchDepth is the match length at which the search stops.
	SearchDepth int

	// FastLength is the match length accepted without looking for a
	// better one.
	FastLength int

	DivideAndConquer bool
	Strategy         Strategy

	// LZMA literal context bits, literal position bits and position bits.
	LC, LP, PB int

	// OmitProperties leaves out the property byte at the start of the
	// stream. The decoder must then be given it separately.
	OmitProperties bool

	// DoXXHash appends an xxHash32 checksum of the uncompressed data.
	DoXXHash bool
}

// Validate checks that every parameter is within its bounds.
func (p *CompressionParameters) Validate() error {
	check := func(name string, v, lo, hi int) error {
		if v < lo || v > hi {
			return wrap(ParameterOutOfBound, fmt.Errorf("%s %d not in [%d, %d]", name, v, lo, hi))
		}
		return nil
	}
	for _, err := range []error{
		check("dictionary size", p.DictionarySize, DictSizeMin, DictSizeMax),
		check("overlap fraction", p.OverlapFraction, 0, OverlapFractionMax),
		check("reset interval", p.ResetInterval, ResetIntervalMin, ResetIntervalMax),
		check("buffer resize", p.BufferResize, 0, BufferResizeMax),
		check("chain log", p.ChainLog, ChainLogMin, ChainLogMax),
		check("hybrid cycles", p.HybridCycles, HybridCyclesMin, HybridCyclesMax),
		check("search depth", p.SearchDepth, SearchDepthMin, SearchDepthMax),
		check("fast length", p.FastLength, FastLengthMin, FastLengthMax),
		check("strategy", int(p.Strategy), int(Fast), int(Ultra)),
		check("lc", p.LC, 0, LCMax),
		check("lp", p.LP, 0, LPMax),
		check("pb", p.PB, 0, PBMax),
	} {
		if err != nil {
			return err
		}
	}
	if p.LC+p.LP > LCLPMax {
		return wrap(LclpMaxExceeded, fmt.Errorf("lc %d + lp %d", p.LC, p.LP))
	}
	return nil
}

type levelParams struct {
	dictLog    int
	overlap    int
	chainLog   int
	cycles     int
	depth      int
	fastLength int
	strategy   Strategy
}

// normalLevels holds the presets for levels 1 to 10.
var normalLevels = [MaxCompressionLevel + 1]levelParams{
	{},
	{20, 1, 7, 1, 6, 32, Fast},
	{20, 2, 7, 1, 12, 32, Fast},
	{21, 2, 7, 1, 14, 32, Fast},
	{21, 2, 8, 1, 26, 40, Optimized},
	{22, 2, 8, 1, 32, 40, Optimized},
	{24, 2, 9, 1, 42, 48, Ultra},
	{25, 2, 9, 1, 42, 64, Ultra},
	{26, 2, 10, 2, 50, 96, Ultra},
	{26, 3, 10, 2, 62, 128, Ultra},
	{27, 3, 11, 4, 90, 273, Ultra},
}

// highLevel returns the preset for a level of the high compression table,
// which trades speed for ratio at a dictionary size of 2^(19+level).
func highLevel(level int) levelParams {
	lp := levelParams{
		dictLog:    19 + level,
		overlap:    4,
		chainLog:   10,
		cycles:     8,
		depth:      128,
		fastLength: 273,
		strategy:   Ultra,
	}
	if level >= 6 {
		lp.chainLog = 11
	}
	return lp
}

// PresetForLevel returns the parameters of a compression level. Level 0
// selects the default level. If high is set, the level is taken from the
// high compression table.
func PresetForLevel(level int, high bool) (CompressionParameters, error) {
	maxLevel := MaxCompressionLevel
	if high {
		maxLevel = MaxHighCompressionLevel
	}
	if level < 0 || level > maxLevel {
		return CompressionParameters{}, wrap(ParameterOutOfBound, fmt.Errorf("compression level %d", level))
	}
	if level == 0 {
		level = DefaultCompressionLevel
	}

	lp := normalLevels[level]
	dc := true
	if high {
		lp = highLevel(level)
		dc = false
	}
	if lp.dictLog > DictLogMax {
		lp.dictLog = DictLogMax
	}
	return CompressionParameters{
		DictionarySize:   1 << lp.dictLog,
		OverlapFraction:  lp.overlap,
		ResetInterval:    4,
		BufferResize:     2,
		ChainLog:         lp.chainLog,
		HybridCycles:     lp.cycles,
		SearchDepth:      lp.depth,
		FastLength:       lp.fastLength,
		DivideAndConquer: dc,
		Strategy:         lp.strategy,
		LC:               3,
		LP:               0,
		PB:               2,
		DoXXHash:         true,
	}, nil
}

// DefaultParameters returns the parameters of the default level.
func DefaultParameters() CompressionParameters {
	p, _ := PresetForLevel(DefaultCompressionLevel, false)
	return p
}

// levelParameters checks a level passed to a compression call, which must
// be between 1 and the maximum level.
func levelParameters(level int, high bool) (CompressionParameters, error) {
	if level < 1 {
		return CompressionParameters{}, wrap(ParameterOutOfBound, fmt.Errorf("compression level %d", level))
	}
	return PresetForLevel(level, high)
}
