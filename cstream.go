package fl2

import (
	"errors"
	"hash"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/kingsznhone/fl2/lz"
	"github.com/kingsznhone/fl2/lzma2"
	"github.com/kingsznhone/fl2/parallel"
	"github.com/pierrec/xxHash/xxHash32"
)

type stage int

const (
	stageUninitialized stage = iota
	stageActive
	stageFlushing
	stageEnded
	stageCanceled
	stageErrored
)

// A CStream is a streaming compression session. Input is buffered in the
// dictionary window; whenever the window fills, it is compressed by the
// session's workers while the caller goes on. A CStream is not safe for
// concurrent use, except that Cancel may be called at any time.
type CStream struct {
	threads int
	dual    bool
	cfg     settings
	timeout time.Duration

	stage    stage
	closed   bool
	eng      *engine
	win      *lz.Window
	disp     *parallel.Dispatcher
	hasher   hash.Hash32
	out      []byte // compressed data not yet delivered
	outPos   int
	progress int64
	ending   bool // the end marker has been queued

	mu       sync.Mutex
	job      *passJob
	canceled bool
}

// A passJob is a pass being compressed by the workers.
type passJob struct {
	pass   lz.Pass
	blocks []block
	batch  *parallel.Batch
}

// NewCStream returns an uninitialized session using threads workers (0
// means one per CPU). With dualBuffer set, input is accepted into a second
// window buffer while the first one is compressed.
func NewCStream(threads int, dualBuffer bool) *CStream {
	threads = threadCount(threads)
	return &CStream{
		threads: threads,
		dual:    dualBuffer,
		cfg:     defaultSettings(),
		disp:    parallel.NewDispatcher(threads),
	}
}

// ThreadCount returns the number of workers.
func (s *CStream) ThreadCount() int { return s.threads }

// Init starts a new stream at a compression level. Level 0 keeps the
// parameters set with SetParameter. A session can be initialized again
// once its stream has ended, been canceled or failed.
func (s *CStream) Init(level int) error {
	if err := s.initCheck(); err != nil {
		return err
	}
	if level != 0 {
		cfg := s.cfg
		if err := cfg.loadLevel(level, cfg.high); err != nil {
			return err
		}
		s.cfg = cfg
	}
	s.start()
	return nil
}

// InitParams starts a new stream with the parameters p.
func (s *CStream) InitParams(p CompressionParameters) error {
	if err := s.initCheck(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	s.cfg.params = p
	s.start()
	return nil
}

func (s *CStream) initCheck() error {
	switch {
	case s.closed:
		return wrap(StageWrong, errors.New("session closed"))
	case s.stage == stageActive || s.stage == stageFlushing:
		return wrap(InitMissing, errors.New("stream already active"))
	}
	return nil
}

func (s *CStream) start() {
	s.abandonJob()
	p := s.cfg.params
	if s.win != nil && s.eng.compatible(&p) {
		s.win.Reset()
	} else {
		s.win = nil
	}
	if s.eng == nil || s.eng.params != p {
		s.eng = newEngine(p)
	}
	if s.win == nil {
		s.win = s.eng.newWindow(s.dual)
	}

	s.hasher = nil
	if p.DoXXHash {
		s.hasher = xxHash32.New(0)
	}
	s.out = s.out[:0]
	s.outPos = 0
	if !p.OmitProperties {
		s.out = append(s.out, streamProp(&p))
	}
	s.progress = 0
	s.ending = false
	s.mu.Lock()
	s.canceled = false
	s.mu.Unlock()
	s.stage = stageActive
	printf("cstream: dictionary %d, block %d, overlap %d, %d threads", p.DictionarySize, s.eng.blockSize, s.eng.overlap, s.threads)
}

// abandonJob cancels the pass in flight, if any, and waits for it.
func (s *CStream) abandonJob() {
	s.mu.Lock()
	job := s.job
	s.job = nil
	s.mu.Unlock()
	if job != nil {
		job.batch.Cancel()
		job.batch.Wait(0)
	}
}

// SetParameter changes one parameter for the next stream. It fails while
// a stream is active.
func (s *CStream) SetParameter(p Parameter, value int) error {
	if s.stage == stageActive || s.stage == stageFlushing {
		return wrap(StageWrong, errors.New("parameters cannot change while a stream is active"))
	}
	return s.cfg.set(p, value)
}

// Parameter returns the current value of a parameter.
func (s *CStream) Parameter(p Parameter) (int, error) {
	return s.cfg.get(p)
}

// Parameters returns the parameters of the current or next stream.
func (s *CStream) Parameters() CompressionParameters {
	return s.cfg.params
}

// SetTimeout limits how long a call waits for the workers. A call that
// times out returns an error for which IsTimedOut is true; it can be
// repeated. 0 means no limit.
func (s *CStream) SetTimeout(d time.Duration) {
	s.timeout = d
}

// Progress returns the number of uncompressed bytes accepted since Init.
func (s *CStream) Progress() int64 {
	return s.progress
}

// DictSizeProperty returns the property byte of the stream, which must be
// passed to the decoder when OmitProperties is set.
func (s *CStream) DictSizeProperty() byte {
	return streamProp(&s.cfg.params)
}

func (s *CStream) check() error {
	s.mu.Lock()
	canceled := s.canceled
	s.mu.Unlock()
	if canceled && (s.stage == stageActive || s.stage == stageFlushing) {
		s.stage = stageCanceled
	}
	switch {
	case s.closed:
		return wrap(StageWrong, errors.New("session closed"))
	case s.stage == stageUninitialized:
		return ErrInitMissing
	case s.stage == stageCanceled:
		return ErrCanceled
	case s.stage != stageActive && s.stage != stageFlushing:
		return ErrStageWrong
	}
	return nil
}

// fail records a fatal error. Timeouts are not fatal.
func (s *CStream) fail(err error) error {
	err = translate(err)
	switch Code(err) {
	case TimedOut:
	case Canceled:
		s.stage = stageCanceled
	default:
		s.stage = stageErrored
	}
	return err
}

// recoverAlloc turns a failed allocation into an error.
func (s *CStream) recoverAlloc(err *error) {
	if r := recover(); r != nil {
		s.stage = stageErrored
		*err = allocError(r)
	}
}

// allocError returns the error for a panic caused by a failed allocation.
// Other panics are propagated.
func allocError(r interface{}) error {
	re, ok := r.(runtime.Error)
	if !ok || !strings.Contains(re.Error(), "makeslice") {
		panic(r)
	}
	return wrap(MemoryAllocation, re)
}

// Compress consumes input from in and writes compressed data to out. It
// returns when in is consumed or out is full. Full windows are compressed
// in the background; their output is delivered by later calls.
func (s *CStream) Compress(out *OutBuffer, in *InBuffer) (status Status, err error) {
	if err := s.check(); err != nil {
		return s.status(), err
	}
	if s.ending {
		return s.status(), wrap(StageWrong, errors.New("stream is ending"))
	}
	if len(out.Dst) == 0 && len(in.Src) == 0 {
		return s.status(), ErrBuffer
	}
	defer s.recoverAlloc(&err)

	for {
		s.drain(out)
		if s.pending() > 0 {
			return MoreOutput, nil
		}
		if len(in.Remaining()) == 0 {
			break
		}
		if err := s.feed(in); err != nil {
			return s.status(), s.fail(err)
		}
	}
	if err := s.poll(); err != nil {
		return s.status(), s.fail(err)
	}
	s.drain(out)
	return s.status(), nil
}

// feed copies input into the window, and starts a pass when the window
// is full. If a pass in flight keeps the window from taking input, it
// waits for that pass first.
func (s *CStream) feed(in *InBuffer) error {
	p := in.Remaining()
	n := s.win.Write(p)
	if s.hasher != nil {
		s.hasher.Write(p[:n])
	}
	s.progress += int64(n)
	in.advance(n)

	if s.win.Full() || (n == 0 && len(in.Remaining()) > 0) {
		if s.job != nil {
			if err := s.collect(); err != nil {
				return err
			}
		}
		if s.win.Full() {
			s.submit()
		}
	}
	return nil
}

// submit hands the window's buffered input to the workers.
func (s *CStream) submit() {
	p, ok := s.win.Take()
	if !ok {
		panic("fl2: window taken while a pass is in flight")
	}
	job := &passJob{pass: p}
	job.blocks = s.eng.plan(nil, p)
	eng := s.eng
	s.mu.Lock()
	s.job = job
	job.batch = s.disp.Submit(len(job.blocks), func(i int) error {
		return eng.encode(&job.blocks[i])
	})
	if s.canceled {
		job.batch.Cancel()
	}
	s.mu.Unlock()
}

// collect waits for the pass in flight and queues its output.
func (s *CStream) collect() error {
	job := s.job
	if err := job.batch.Wait(s.timeout); err != nil {
		if err == parallel.ErrTimedOut {
			return ErrTimedOut
		}
		return err
	}
	for i := range job.blocks {
		s.out = append(s.out, job.blocks[i].out...)
	}
	s.win.Release(job.pass)
	s.mu.Lock()
	s.job = nil
	s.mu.Unlock()
	return nil
}

// poll collects the pass in flight if it has finished.
func (s *CStream) poll() error {
	if s.job == nil {
		return nil
	}
	select {
	case <-s.job.batch.Done():
		return s.collect()
	default:
		return nil
	}
}

func (s *CStream) pending() int {
	return len(s.out) - s.outPos
}

func (s *CStream) drain(out *OutBuffer) {
	s.outPos += out.write(s.out[s.outPos:])
	if s.outPos == len(s.out) {
		s.out = s.out[:0]
		s.outPos = 0
	}
}

func (s *CStream) status() Status {
	if s.pending() > 0 {
		return MoreOutput
	}
	return MoreInput
}

// flushInput compresses everything buffered and waits for it.
func (s *CStream) flushInput() error {
	for s.job != nil || s.win.Pending() > 0 {
		if s.job != nil {
			if err := s.collect(); err != nil {
				return err
			}
		}
		if s.win.Pending() > 0 {
			s.submit()
		}
	}
	return nil
}

// Flush compresses all buffered input and writes it to out. It returns
// MoreOutput until everything has been delivered. Flushing often costs
// compression ratio.
func (s *CStream) Flush(out *OutBuffer) (status Status, err error) {
	if err := s.check(); err != nil {
		return s.status(), err
	}
	defer s.recoverAlloc(&err)
	if !s.ending {
		if err := s.flushInput(); err != nil {
			return s.status(), s.fail(err)
		}
	}
	s.drain(out)
	if s.pending() > 0 {
		s.stage = stageFlushing
		return MoreOutput, nil
	}
	if !s.ending {
		s.stage = stageActive
	}
	return Done, nil
}

// finish compresses all buffered input and queues the end marker and
// checksum.
func (s *CStream) finish() error {
	if s.ending {
		return nil
	}
	if err := s.flushInput(); err != nil {
		return err
	}
	s.out = append(s.out, lzma2.EndMarker)
	if s.hasher != nil {
		s.out = appendChecksum(s.out, s.hasher.Sum32())
	}
	s.ending = true
	return nil
}

// End finishes the stream: it flushes all input and writes the end marker
// and checksum. It returns MoreOutput until everything has been
// delivered, then Done; the session can then be initialized again.
func (s *CStream) End(out *OutBuffer) (status Status, err error) {
	if err := s.check(); err != nil {
		return s.status(), err
	}
	defer s.recoverAlloc(&err)
	if err := s.finish(); err != nil {
		return s.status(), s.fail(err)
	}
	s.drain(out)
	if s.pending() > 0 {
		s.stage = stageFlushing
		return MoreOutput, nil
	}
	s.stage = stageEnded
	return Done, nil
}

// compressAll compresses src as a complete stream and appends it to dst.
func (s *CStream) compressAll(dst, src []byte) (out []byte, err error) {
	defer s.recoverAlloc(&err)
	in := InBuffer{Src: src}
	for len(in.Remaining()) > 0 {
		if err := s.feed(&in); err != nil {
			return dst, s.fail(err)
		}
		dst = append(dst, s.out[s.outPos:]...)
		s.out = s.out[:0]
		s.outPos = 0
	}
	if err := s.finish(); err != nil {
		return dst, s.fail(err)
	}
	dst = append(dst, s.out[s.outPos:]...)
	s.out = s.out[:0]
	s.outPos = 0
	s.stage = stageEnded
	return dst, nil
}

// Cancel stops the stream. Blocks not yet started are skipped; the session
// must be initialized again before further use. Cancel may be called from
// another goroutine.
func (s *CStream) Cancel() {
	s.mu.Lock()
	s.canceled = true
	if s.job != nil {
		s.job.batch.Cancel()
	}
	s.mu.Unlock()
}

// Close releases the session's workers and buffers.
func (s *CStream) Close() error {
	if s.closed {
		return nil
	}
	s.abandonJob()
	s.disp.Close()
	s.closed = true
	s.win = nil
	s.eng = nil
	s.out = nil
	s.stage = stageUninitialized
	return nil
}
