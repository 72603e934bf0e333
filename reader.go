package fl2

import "io"

// maxEmptyReads is how many (0, nil) reads fill tolerates in a row.
const maxEmptyReads = 100

// A Reader decompresses the concatenated streams read from an underlying
// io.Reader.
type Reader struct {
	src  io.Reader
	s    *DStream
	prop int
	buf  []byte
	in   InBuffer

	done     bool // the current stream has ended
	eof      bool
	consumed int64
	err      error
}

// NewReader returns a Reader decoding with threads workers (0 means one
// per CPU).
func NewReader(r io.Reader, threads int) (*Reader, error) {
	return newReader(r, -1, threads)
}

// NewReaderProp returns a Reader for streams written without a property
// byte.
func NewReaderProp(r io.Reader, prop byte, threads int) (*Reader, error) {
	return newReader(r, int(prop), threads)
}

func newReader(r io.Reader, prop, threads int) (*Reader, error) {
	zr := &Reader{src: r, s: NewDStream(threads), prop: prop, buf: make([]byte, 1<<16)}
	if err := zr.init(); err != nil {
		zr.s.Close()
		return nil, err
	}
	return zr, nil
}

func (r *Reader) init() error {
	r.consumed += r.s.Progress()
	if r.prop >= 0 {
		return r.s.InitProp(byte(r.prop))
	}
	return r.s.Init()
}

// fill reads more compressed data. It returns false at the end of the
// input or on error.
func (r *Reader) fill() bool {
	if r.eof {
		return false
	}
	for i := 0; i < maxEmptyReads; i++ {
		n, err := r.src.Read(r.buf)
		r.in = InBuffer{Src: r.buf[:n]}
		if err == io.EOF {
			r.eof = true
		} else if err != nil {
			r.err = err
		}
		if n > 0 || err != nil {
			return n > 0
		}
	}
	r.err = io.ErrNoProgress
	return false
}

func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	out := OutBuffer{Dst: p}
	for {
		if r.done {
			if len(r.in.Remaining()) == 0 && !r.fill() {
				if r.err == nil {
					r.err = io.EOF
				}
				if out.Pos > 0 {
					return out.Pos, nil
				}
				return 0, r.err
			}
			if err := r.init(); err != nil {
				r.err = err
				return out.Pos, err
			}
			r.done = false
		}

		status, err := r.s.Decompress(&out, &r.in)
		if err != nil {
			r.err = err
			return out.Pos, err
		}
		switch status {
		case Done:
			r.done = true
			if out.Pos > 0 {
				return out.Pos, nil
			}
		case MoreOutput:
			return out.Pos, nil
		case MoreInput:
			if out.Pos > 0 {
				return out.Pos, nil
			}
			if !r.fill() {
				if r.err == nil {
					r.err = io.ErrUnexpectedEOF
				}
				return 0, r.err
			}
		}
	}
}

// Progress returns the number of compressed bytes consumed.
func (r *Reader) Progress() int64 {
	return r.consumed + r.s.Progress()
}

// Close releases the workers. It does not close the underlying reader.
func (r *Reader) Close() error {
	if r.err == nil {
		r.err = ErrStageWrong
	}
	return r.s.Close()
}
