package fl2

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/kingsznhone/fl2/lz"
	"github.com/kingsznhone/fl2/lzma2"
)

// An engine splits compression passes into blocks and encodes them. It is
// safe for concurrent use by the workers of one session.
type engine struct {
	params    CompressionParameters
	props     lzma2.Props
	blockSize int
	overlap   int
	config    lz.Config
	coders    sync.Pool
}

// A blockCoder is the per-worker state for encoding blocks.
type blockCoder struct {
	finder  *lz.Finder
	enc     *lzma2.BlockEncoder
	matches []lz.Match
}

var strategies = map[Strategy]lz.Strategy{
	Fast:      lz.Greedy,
	Optimized: lz.Lazy,
	Ultra:     lz.Overlap,
}

func newEngine(p CompressionParameters) *engine {
	e := &engine{
		params:    p,
		props:     lzma2.Props{LC: p.LC, LP: p.LP, PB: p.PB},
		blockSize: blockSize(&p),
		config: lz.Config{
			Strategy:         strategies[p.Strategy],
			ChainLog:         p.ChainLog,
			HybridCycles:     p.HybridCycles,
			SearchDepth:      p.SearchDepth,
			FastLength:       p.FastLength,
			DivideAndConquer: p.DivideAndConquer,
		},
	}
	e.overlap = e.blockSize * p.OverlapFraction / 16
	e.coders.New = func() interface{} {
		return &blockCoder{
			finder: lz.NewFinder(e.config),
			enc:    lzma2.NewBlockEncoder(e.props),
		}
	}
	return e
}

// newWindow returns a window for the engine's parameters.
func (e *engine) newWindow(dual bool) *lz.Window {
	p := &e.params
	return lz.NewWindow(p.DictionarySize, e.overlap, int64(p.ResetInterval)*int64(p.DictionarySize), dual)
}

// compatible reports whether a window made for the engine's parameters
// can be reused with p.
func (e *engine) compatible(p *CompressionParameters) bool {
	return e.params.DictionarySize == p.DictionarySize &&
		e.params.ResetInterval == p.ResetInterval &&
		e.overlap == blockSize(p)*p.OverlapFraction/16
}

// A block is the unit of parallel compression: the new bytes
// src[start:] and the history before them.
type block struct {
	src     []byte
	start   int
	reset   bool
	dictPos int64
	out     []byte
}

// plan splits the new data of a pass into blocks, appending them to dst.
// Boundaries depend only on the parameters and the pass.
func (e *engine) plan(dst []block, p lz.Pass) []block {
	for s := p.Start; s < len(p.Data); s += e.blockSize {
		end := s + e.blockSize
		if end > len(p.Data) {
			end = len(p.Data)
		}
		dictPos := p.DictPos + int64(s-p.Start)
		h := e.overlap
		if h < 1 && dictPos > 0 {
			h = 1
		}
		if h > s {
			h = s
		}
		dst = append(dst, block{
			src:     p.Data[s-h : end],
			start:   h,
			reset:   p.Reset && s == p.Start,
			dictPos: dictPos,
		})
	}
	return dst
}

// encode finds the matches of b and encodes them as chunks into b.out.
func (e *engine) encode(b *block) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()

	c := e.coders.Get().(*blockCoder)
	defer e.coders.Put(c)
	c.matches = c.finder.FindMatches(c.matches[:0], b.src, b.start)
	if debugAsserts {
		if err := lz.Verify(b.src, b.start, c.matches); err != nil {
			return wrap(Internal, err)
		}
	}
	b.out = c.enc.Encode(b.out[:0], b.src, b.start, c.matches, b.reset, b.dictPos)
	if debug {
		printf("block at %d: %d bytes (%d matches) -> %d", b.dictPos, len(b.src)-b.start, len(c.matches), len(b.out))
	}
	return nil
}

// panicError converts a panic in a worker into an error. A failed
// allocation is reported as such; anything else is a bug.
func panicError(r interface{}) error {
	if re, ok := r.(runtime.Error); ok && strings.Contains(re.Error(), "makeslice") {
		return wrap(MemoryAllocation, re)
	}
	return wrap(Internal, fmt.Errorf("panic: %v", r))
}
