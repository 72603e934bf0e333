package fl2

import "io"

// A Writer compresses data written to it and writes the result to an
// underlying io.Writer.
//
// Append adds data to the current stream. Write is terminal: it appends
// the data and ends the stream, so that every Write produces a complete
// stream. The next call starts a new one; concatenated streams are decoded
// as a whole by Decompress and Reader.
type Writer struct {
	dst   io.Writer
	s     *CStream
	buf   []byte
	open  bool // a stream has been started and not ended
	total int64
	err   error
}

// NewWriter returns a Writer compressing at a level from 1 to
// MaxCompressionLevel with threads workers (0 means one per CPU).
func NewWriter(w io.Writer, level, threads int) (*Writer, error) {
	p, err := levelParameters(level, false)
	if err != nil {
		return nil, err
	}
	return NewWriterParams(w, p, threads)
}

// NewWriterParams returns a Writer compressing with the parameters p.
func NewWriterParams(w io.Writer, p CompressionParameters, threads int) (*Writer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := NewCStream(threads, true)
	s.cfg.params = p
	return &Writer{dst: w, s: s, buf: make([]byte, 1<<16)}, nil
}

func (w *Writer) begin() error {
	if w.open {
		return nil
	}
	w.total += w.s.Progress()
	if err := w.s.InitParams(w.s.cfg.params); err != nil {
		return err
	}
	w.open = true
	return nil
}

func (w *Writer) emit(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	_, err := w.dst.Write(p)
	return err
}

// Append compresses p as part of the current stream, without ending it.
func (w *Writer) Append(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if err := w.begin(); err != nil {
		w.err = err
		return 0, err
	}
	in := InBuffer{Src: p}
	for {
		out := OutBuffer{Dst: w.buf}
		status, err := w.s.Compress(&out, &in)
		if werr := w.emit(out.Written()); werr != nil && err == nil {
			err = werr
		}
		if err != nil {
			w.err = err
			return in.Pos, err
		}
		if status != MoreOutput && len(in.Remaining()) == 0 {
			return len(p), nil
		}
	}
}

// Write compresses p and ends the stream.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.Append(p)
	if err != nil {
		return n, err
	}
	return n, w.end()
}

func (w *Writer) end() error {
	if !w.open {
		return nil
	}
	for {
		out := OutBuffer{Dst: w.buf}
		status, err := w.s.End(&out)
		if werr := w.emit(out.Written()); werr != nil && err == nil {
			err = werr
		}
		if err != nil {
			w.err = err
			return err
		}
		if status == Done {
			w.open = false
			return nil
		}
	}
}

// Flush compresses all data appended so far and writes it out. The
// stream stays open.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if !w.open {
		return nil
	}
	for {
		out := OutBuffer{Dst: w.buf}
		status, err := w.s.Flush(&out)
		if werr := w.emit(out.Written()); werr != nil && err == nil {
			err = werr
		}
		if err != nil {
			w.err = err
			return err
		}
		if status == Done {
			return nil
		}
	}
}

// Progress returns the number of uncompressed bytes accepted.
func (w *Writer) Progress() int64 {
	return w.total + w.s.Progress()
}

// Cancel abandons the current stream. It may be called from another
// goroutine; later calls fail.
func (w *Writer) Cancel() {
	w.s.Cancel()
}

// Close ends the current stream, if one is open, and releases the
// workers. It does not close the underlying writer.
func (w *Writer) Close() error {
	var err error
	if w.err == nil {
		err = w.end()
	}
	if Code(err) == Canceled {
		err = nil
	}
	w.s.Close()
	if w.err == nil {
		w.err = ErrStageWrong
	}
	return err
}
