package fl2

import (
	"errors"
	"hash"
	"sync"

	"github.com/kingsznhone/fl2/lzma2"
	"github.com/kingsznhone/fl2/parallel"
	"github.com/pierrec/xxHash/xxHash32"
)

type dphase int

const (
	phaseProp dphase = iota
	phaseChunks
	phaseChecksum
	phaseDone
)

// A DStream is a streaming decompression session. With more than one
// thread it buffers whole dictionary-reset segments and decodes them in
// parallel, as long as they fit in the memory limit; otherwise it decodes
// chunk by chunk. A DStream is not safe for concurrent use, except that
// Cancel may be called at any time.
type DStream struct {
	threads  int
	memLimit uint64
	disp     *parallel.Dispatcher

	stage    stage
	closed   bool
	prop     int // property byte given by InitProp, or -1
	phase    dphase
	dictSize uint32
	hash     bool
	hasher   hash.Hash32
	expected uint32
	progress int64

	buf []byte // buffered input
	off int    // start of the unconsumed part of buf

	// sequential decoding
	dec *lzma2.Decoder

	// parallel decoding
	mt       bool
	scan     int             // next chunk to scan in buf
	segs     []lzma2.Segment // complete segments in buf
	cur      lzma2.Segment   // segment being buffered
	inSeg    bool
	ready    []byte // decoded output not yet delivered
	readyPos int

	mu       sync.Mutex
	batch    *parallel.Batch
	canceled bool
}

// NewDStream returns an uninitialized session using threads workers (0
// means one per CPU).
func NewDStream(threads int) *DStream {
	s := &DStream{threads: threadCount(threads), memLimit: defaultMemoryLimit(), prop: -1}
	if s.threads > 1 {
		s.disp = parallel.NewDispatcher(s.threads)
	}
	return s
}

// ThreadCount returns the number of workers.
func (s *DStream) ThreadCount() int { return s.threads }

// SetMemoryLimit sets how much memory parallel decoding may use for
// buffered input and output. Segments that do not fit are decoded on a
// single thread.
func (s *DStream) SetMemoryLimit(n uint64) {
	s.memLimit = n
}

// Init starts decoding a stream that begins with its property byte.
func (s *DStream) Init() error {
	if err := s.initCheck(); err != nil {
		return err
	}
	s.prop = -1
	s.reset()
	return nil
}

// InitProp starts decoding a stream written without a property byte,
// using prop instead.
func (s *DStream) InitProp(prop byte) error {
	if err := s.initCheck(); err != nil {
		return err
	}
	if _, _, err := parseProp(prop); err != nil {
		return err
	}
	s.prop = int(prop)
	s.reset()
	return nil
}

func (s *DStream) initCheck() error {
	switch {
	case s.closed:
		return wrap(StageWrong, errors.New("session closed"))
	case s.stage == stageActive || s.stage == stageFlushing:
		return wrap(InitMissing, errors.New("stream already active"))
	}
	return nil
}

func (s *DStream) reset() {
	s.phase = phaseProp
	s.buf = s.buf[:0]
	s.off = 0
	s.scan = 0
	s.segs = s.segs[:0]
	s.inSeg = false
	s.ready = nil
	s.readyPos = 0
	s.mt = s.threads > 1
	s.progress = 0
	s.mu.Lock()
	s.canceled = false
	s.mu.Unlock()
	s.stage = stageActive
}

// Progress returns the number of compressed bytes consumed since Init.
func (s *DStream) Progress() int64 {
	return s.progress
}

func (s *DStream) setProp(prop byte) error {
	dictSize, hash, err := parseProp(prop)
	if err != nil {
		return err
	}
	if s.dec == nil || s.dictSize != dictSize {
		s.dec = lzma2.NewDecoder(dictSize)
	} else {
		s.dec.Reset()
	}
	s.dictSize = dictSize
	s.hash = hash
	s.hasher = nil
	if hash {
		s.hasher = xxHash32.New(0)
	}
	s.phase = phaseChunks
	return nil
}

func (s *DStream) check() error {
	s.mu.Lock()
	canceled := s.canceled
	s.mu.Unlock()
	if canceled && s.stage == stageActive {
		s.stage = stageCanceled
	}
	switch {
	case s.closed:
		return wrap(StageWrong, errors.New("session closed"))
	case s.stage == stageUninitialized:
		return ErrInitMissing
	case s.stage == stageCanceled:
		return ErrCanceled
	case s.stage != stageActive:
		return ErrStageWrong
	}
	return nil
}

func (s *DStream) fail(err error) error {
	err = translate(err)
	if Code(err) == Canceled {
		s.stage = stageCanceled
	} else {
		s.stage = stageErrored
	}
	return err
}

// Decompress consumes compressed data from in and writes decoded data to
// out. It returns Done once the stream has been decoded and its checksum
// verified; bytes after the stream are left in in. Otherwise it returns
// MoreOutput if out is full, or MoreInput if all of in was consumed.
func (s *DStream) Decompress(out *OutBuffer, in *InBuffer) (status Status, err error) {
	if err := s.check(); err != nil {
		return MoreInput, err
	}
	if len(out.Dst) == 0 && len(in.Src) == 0 {
		return MoreInput, ErrBuffer
	}
	defer func() {
		if r := recover(); r != nil {
			s.stage = stageErrored
			err = decodePanic(r)
		}
	}()

	for {
		if err := s.check(); err != nil {
			return MoreInput, err
		}
		s.deliver(out)
		if s.hasOutput() && out.Full() {
			return MoreOutput, nil
		}

		switch s.phase {
		case phaseProp:
			if s.prop >= 0 {
				if err := s.setProp(byte(s.prop)); err != nil {
					return MoreInput, s.fail(err)
				}
				continue
			}
			if !s.fill(in, s.off+1) {
				return MoreInput, nil
			}
			prop := s.buf[s.off]
			s.consume(1)
			if err := s.setProp(prop); err != nil {
				return MoreInput, s.fail(err)
			}

		case phaseChunks:
			var progressed bool
			var err error
			if s.mt {
				progressed, err = s.stepParallel(in)
			} else {
				progressed, err = s.stepSequential(in)
			}
			if err != nil {
				return MoreInput, s.fail(err)
			}
			if !progressed {
				if s.hasOutput() {
					return MoreOutput, nil
				}
				return MoreInput, nil
			}

		case phaseChecksum:
			if !s.fill(in, s.off+hashSize) {
				return MoreInput, nil
			}
			s.expected = readChecksum(s.buf[s.off:])
			s.consume(hashSize)
			s.phase = phaseDone

		case phaseDone:
			if s.hasOutput() {
				return MoreOutput, nil
			}
			if s.hasher != nil && s.hasher.Sum32() != s.expected {
				return MoreInput, s.fail(ErrChecksumWrong)
			}
			s.stage = stageEnded
			return Done, nil
		}
	}
}

// fill buffers input until buf holds n bytes. It reports whether it
// succeeded; if not, all of in has been consumed.
func (s *DStream) fill(in *InBuffer, n int) bool {
	need := n - len(s.buf)
	if need <= 0 {
		return true
	}
	p := in.Remaining()
	if len(p) > need {
		p = p[:need]
	}
	s.buf = append(s.buf, p...)
	in.advance(len(p))
	s.progress += int64(len(p))
	return len(s.buf) >= n
}

func (s *DStream) consume(n int) {
	s.off += n
	if s.off == len(s.buf) {
		s.buf = s.buf[:0]
		s.off = 0
		s.scan = 0
	}
}

// chunkAt buffers the whole chunk starting at buf[pos]. ok is false if
// more input is needed.
func (s *DStream) chunkAt(in *InBuffer, pos int) (h lzma2.ChunkHeader, size int, ok bool, err error) {
	for {
		h, err = lzma2.ParseHeader(s.buf[pos:])
		switch {
		case err == nil:
			size = h.Size() + h.Packed
			if !s.fill(in, pos+size) {
				return h, size, false, nil
			}
			return h, size, true, nil
		case errors.Is(err, lzma2.ErrShortInput):
			if !s.fill(in, len(s.buf)+1) {
				return h, 0, false, nil
			}
		default:
			return h, 0, false, err
		}
	}
}

func (s *DStream) endOfChunks() {
	if s.hash {
		s.phase = phaseChecksum
	} else {
		s.phase = phaseDone
	}
}

// stepSequential decodes one chunk. It reports false if it needs more
// input, or room for output.
func (s *DStream) stepSequential(in *InBuffer) (bool, error) {
	h, size, ok, err := s.chunkAt(in, s.off)
	if !ok {
		return false, err
	}
	if h.End() {
		s.consume(size)
		s.endOfChunks()
		return true, nil
	}
	if !s.dec.Fits(h.Unpacked) {
		return false, nil
	}
	payload := s.off + h.Size()
	err = s.dec.DecodeChunk(h, s.buf[payload:payload+h.Packed])
	s.consume(size)
	return err == nil, err
}

// stepParallel buffers one chunk. When enough segments are buffered, or
// the end of the stream is reached, it decodes them in parallel.
func (s *DStream) stepParallel(in *InBuffer) (bool, error) {
	h, size, ok, err := s.chunkAt(in, s.scan)
	if !ok {
		return false, err
	}
	if (h.End() || h.DictReset()) && s.inSeg {
		s.cur.End = s.scan
		s.segs = append(s.segs, s.cur)
		s.inSeg = false
	}
	if h.End() {
		if err := s.decodeBuffered(); err != nil {
			return false, err
		}
		s.consume(size)
		s.endOfChunks()
		return true, nil
	}
	if h.DictReset() {
		s.cur = lzma2.Segment{Start: s.scan}
		s.inSeg = true
	} else if !s.inSeg {
		return false, lzma2.ErrCorrupt
	}
	s.cur.Unpacked += int64(h.Unpacked)
	s.scan += size

	if len(s.segs) >= s.threads {
		return true, s.decodeBuffered()
	}
	if s.memoryUsed() > s.memLimit {
		if len(s.segs) > 0 {
			return true, s.decodeBuffered()
		}
		// A single segment does not fit: decode the rest of the stream on
		// one thread.
		printf("dstream: segment exceeds memory limit of %d, decoding sequentially", s.memLimit)
		s.mt = false
		s.inSeg = false
		s.dec.Reset()
	}
	return true, nil
}

func (s *DStream) memoryUsed() uint64 {
	n := uint64(len(s.buf)) + uint64(s.cur.Unpacked)
	for _, seg := range s.segs {
		n += uint64(seg.Unpacked)
	}
	return n
}

// decodeBuffered decodes the complete segments in buf and queues their
// output.
func (s *DStream) decodeBuffered() error {
	if len(s.segs) == 0 {
		return nil
	}
	base := s.segs[0].Start
	var total int64
	for i := range s.segs {
		s.segs[i].Offset = total
		s.segs[i].Start -= base
		s.segs[i].End -= base
		total += s.segs[i].Unpacked
	}
	end := s.segs[len(s.segs)-1].End + base
	s.ready = make([]byte, total)
	s.readyPos = 0
	err := decodeSegments(s.ready, s.buf[base:end], s.segs, s.dictSize, s.disp, s.track)
	s.mu.Lock()
	s.batch = nil
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.segs = s.segs[:0]

	// Keep only the segment still being buffered.
	n := copy(s.buf, s.buf[end:])
	s.buf = s.buf[:n]
	s.off = 0
	s.scan -= end
	s.cur.Start -= end
	return nil
}

func (s *DStream) track(b *parallel.Batch) {
	s.mu.Lock()
	s.batch = b
	if s.canceled {
		b.Cancel()
	}
	s.mu.Unlock()
}

func (s *DStream) hasOutput() bool {
	return s.readyPos < len(s.ready) || (s.dec != nil && s.dec.Buffered() > 0)
}

// deliver copies decoded data to out.
func (s *DStream) deliver(out *OutBuffer) {
	start := out.Pos
	if s.readyPos < len(s.ready) {
		s.readyPos += out.write(s.ready[s.readyPos:])
		if s.readyPos == len(s.ready) {
			s.ready = nil
			s.readyPos = 0
		}
	}
	if s.dec != nil && s.readyPos == len(s.ready) {
		out.Pos += s.dec.Read(out.Free())
	}
	if s.hasher != nil {
		s.hasher.Write(out.Dst[start:out.Pos])
	}
}

// Cancel stops decoding. Segments being decoded in parallel are abandoned
// once the running ones finish. Cancel may be called from another
// goroutine.
func (s *DStream) Cancel() {
	s.mu.Lock()
	s.canceled = true
	if s.batch != nil {
		s.batch.Cancel()
	}
	s.mu.Unlock()
}

// Close releases the session's workers and buffers.
func (s *DStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.disp != nil {
		s.disp.Close()
	}
	s.buf = nil
	s.dec = nil
	s.ready = nil
	s.stage = stageUninitialized
	return nil
}
