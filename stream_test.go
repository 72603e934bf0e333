package fl2

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"
	"time"
)

// streamCompress compresses data through s, feeding inSize bytes and
// taking outSize bytes per call.
func streamCompress(t *testing.T, s *CStream, data []byte, inSize, outSize int) []byte {
	t.Helper()
	var compressed []byte
	out := OutBuffer{Dst: make([]byte, outSize)}
	for pos := 0; pos < len(data); {
		end := pos + inSize
		if end > len(data) {
			end = len(data)
		}
		in := InBuffer{Src: data[pos:end]}
		for {
			out.Pos = 0
			status, err := s.Compress(&out, &in)
			if err != nil {
				t.Fatal(err)
			}
			compressed = append(compressed, out.Written()...)
			if status != MoreOutput && len(in.Remaining()) == 0 {
				break
			}
		}
		pos = end
	}
	for {
		out.Pos = 0
		status, err := s.End(&out)
		if err != nil {
			t.Fatal(err)
		}
		compressed = append(compressed, out.Written()...)
		if status == Done {
			return compressed
		}
	}
}

// streamDecompress decodes one stream from src through s, feeding inSize
// bytes and taking outSize bytes per call. It returns the output and the
// number of bytes of src consumed.
func streamDecompress(s *DStream, src []byte, inSize, outSize int) ([]byte, int, error) {
	var decompressed []byte
	out := OutBuffer{Dst: make([]byte, outSize)}
	pos := 0
	for {
		end := pos + inSize
		if end > len(src) {
			end = len(src)
		}
		in := InBuffer{Src: src[pos:end]}
		out.Pos = 0
		status, err := s.Decompress(&out, &in)
		decompressed = append(decompressed, out.Written()...)
		pos += in.Pos
		if err != nil {
			return decompressed, pos, err
		}
		switch status {
		case Done:
			return decompressed, pos, nil
		case MoreInput:
			if pos == len(src) {
				return decompressed, pos, io.ErrUnexpectedEOF
			}
		}
	}
}

func TestCStreamMatchesOneShot(t *testing.T) {
	data := testText(2<<20+12345, 20)
	p, _ := PresetForLevel(3, false)
	p.DictionarySize = DictSizeMin
	want, err := CompressParams(data, p, 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, dual := range []bool{false, true} {
		for _, size := range []struct{ in, out int }{
			{1 << 30, 1 << 20},
			{100000, 7},
			{4093, 65536},
			{1 << 20, 1},
		} {
			s := NewCStream(3, dual)
			if err := s.InitParams(p); err != nil {
				t.Fatal(err)
			}
			got := streamCompress(t, s, data, size.in, size.out)
			if s.Progress() != int64(len(data)) {
				t.Errorf("progress %d, want %d", s.Progress(), len(data))
			}
			s.Close()
			if !bytes.Equal(got, want) {
				t.Fatalf("dual=%v in=%d out=%d: streamed output differs from one-shot output", dual, size.in, size.out)
			}
		}
	}
}

func TestCStreamFlush(t *testing.T) {
	data := testText(500000, 21)
	s := NewCStream(2, true)
	defer s.Close()
	if err := s.Init(4); err != nil {
		t.Fatal(err)
	}
	var compressed []byte
	out := OutBuffer{Dst: make([]byte, 1000)}
	for pos := 0; pos < len(data); pos += 100000 {
		in := InBuffer{Src: data[pos : pos+100000]}
		for {
			out.Pos = 0
			status, err := s.Compress(&out, &in)
			if err != nil {
				t.Fatal(err)
			}
			compressed = append(compressed, out.Written()...)
			if status != MoreOutput && len(in.Remaining()) == 0 {
				break
			}
		}
		for {
			out.Pos = 0
			status, err := s.Flush(&out)
			if err != nil {
				t.Fatal(err)
			}
			compressed = append(compressed, out.Written()...)
			if status == Done {
				break
			}
		}
		// Everything accepted so far can be decoded.
		d := NewDStream(1)
		d.Init()
		got, _, err := streamDecompress(d, compressed, len(compressed), 1<<20)
		if err != io.ErrUnexpectedEOF || !bytes.Equal(got, data[:pos+100000]) {
			t.Fatalf("after flush at %d: decoded %d bytes, err %v", pos+100000, len(got), err)
		}
	}
	for {
		out.Pos = 0
		status, err := s.End(&out)
		if err != nil {
			t.Fatal(err)
		}
		compressed = append(compressed, out.Written()...)
		if status == Done {
			break
		}
	}
	roundTrip(t, data, compressed, 1)
}

func TestCStreamReuse(t *testing.T) {
	s := NewCStream(2, false)
	defer s.Close()
	for i, level := range []int{2, 2, 5, 1} {
		data := testText(300000+i*1000, int64(22+i))
		if err := s.Init(level); err != nil {
			t.Fatal(err)
		}
		compressed := streamCompress(t, s, data, 50000, 4096)
		roundTrip(t, data, compressed, 1)
	}
}

func TestCStreamStages(t *testing.T) {
	s := NewCStream(1, false)
	out := OutBuffer{Dst: make([]byte, 100)}
	in := InBuffer{Src: []byte("abc")}
	if _, err := s.Compress(&out, &in); !errors.Is(err, ErrInitMissing) {
		t.Fatalf("Compress before Init: %v", err)
	}
	if err := s.Init(1); err != nil {
		t.Fatal(err)
	}
	if err := s.Init(1); Code(err) != InitMissing {
		t.Fatalf("Init while active: %v", err)
	}
	if err := s.SetParameter(ParamDictionaryLog, 21); Code(err) != StageWrong {
		t.Fatalf("SetParameter while active: %v", err)
	}
	if _, err := s.Compress(&OutBuffer{}, &InBuffer{}); !errors.Is(err, ErrBuffer) {
		t.Fatalf("empty buffers: %v", err)
	}
	compressed := streamCompress(t, s, []byte("abcabcabc"), 3, 1)
	if _, err := s.Compress(&out, &in); Code(err) != StageWrong {
		t.Fatalf("Compress after End: %v", err)
	}
	if err := s.SetParameter(ParamDictionaryLog, 21); err != nil {
		t.Fatal(err)
	}
	roundTrip(t, []byte("abcabcabc"), compressed, 1)

	s.Close()
	if err := s.Init(1); Code(err) != StageWrong {
		t.Fatalf("Init after Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCStreamCancel(t *testing.T) {
	data := testText(3<<20, 23)
	s := NewCStream(2, true)
	defer s.Close()
	p, _ := PresetForLevel(1, false)
	if err := s.InitParams(p); err != nil {
		t.Fatal(err)
	}
	out := OutBuffer{Dst: make([]byte, 1<<16)}
	in := InBuffer{Src: data}
	if _, err := s.Compress(&out, &in); err != nil {
		t.Fatal(err)
	}
	s.Cancel()
	if _, err := s.Compress(&out, &in); !errors.Is(err, ErrCanceled) {
		t.Fatalf("Compress after Cancel: %v", err)
	}
	if _, err := s.End(&out); !errors.Is(err, ErrCanceled) {
		t.Fatalf("End after Cancel: %v", err)
	}

	// A canceled session can start again.
	if err := s.InitParams(p); err != nil {
		t.Fatal(err)
	}
	compressed := streamCompress(t, s, data, 1<<20, 1<<16)
	roundTrip(t, data, compressed, 1)
}

func TestCStreamTimeout(t *testing.T) {
	data := testText(3<<20, 24)
	p, _ := PresetForLevel(7, false)
	p.DictionarySize = DictSizeMin
	want, err := CompressParams(data, p, 2)
	if err != nil {
		t.Fatal(err)
	}

	s := NewCStream(2, true)
	defer s.Close()
	if err := s.InitParams(p); err != nil {
		t.Fatal(err)
	}
	s.SetTimeout(time.Nanosecond)
	var compressed []byte
	timeouts := 0
	out := OutBuffer{Dst: make([]byte, 1<<16)}
	in := InBuffer{Src: data}
	for {
		out.Pos = 0
		status, err := s.Compress(&out, &in)
		compressed = append(compressed, out.Written()...)
		if IsTimedOut(err) {
			timeouts++
			continue
		}
		if err != nil {
			t.Fatal(err)
		}
		if status != MoreOutput && len(in.Remaining()) == 0 {
			break
		}
	}
	s.SetTimeout(0)
	for {
		out.Pos = 0
		status, err := s.End(&out)
		if err != nil {
			t.Fatal(err)
		}
		compressed = append(compressed, out.Written()...)
		if status == Done {
			break
		}
	}
	if timeouts == 0 {
		t.Log("no call timed out")
	}
	if !bytes.Equal(compressed, want) {
		t.Fatal("output after timeouts differs")
	}
}

func TestDStreamSmallBuffers(t *testing.T) {
	data := testText(200000, 25)
	compressed, _ := Compress(data, 6)
	for _, threads := range []int{1, 2} {
		s := NewDStream(threads)
		if err := s.Init(); err != nil {
			t.Fatal(err)
		}
		got, n, err := streamDecompress(s, compressed, 1, 1)
		if err != nil {
			t.Fatal(err)
		}
		if n != len(compressed) || s.Progress() != int64(n) {
			t.Fatalf("consumed %d of %d bytes, progress %d", n, len(compressed), s.Progress())
		}
		if !bytes.Equal(got, data) {
			t.Fatal("decompressed output doesn't match")
		}
		s.Close()
	}
}

func TestDStreamSegments(t *testing.T) {
	data := testText(5<<20+777, 26)
	p, _ := PresetForLevel(2, false)
	p.DictionarySize = DictSizeMin
	p.ResetInterval = 1
	compressed, err := CompressParams(data, p, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		name          string
		threads       int
		limit         uint64
		inSize, outSz int
	}{
		{"sequential", 1, 0, 1 << 16, 1 << 16},
		{"parallel", 4, 0, 1 << 16, 1 << 16},
		{"two-threads", 2, 0, 12345, 100000},
		{"limit", 4, 3 << 20, 1 << 16, 1 << 16},
		{"fallback", 4, 1000, 1 << 16, 1 << 16},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := NewDStream(tc.threads)
			defer s.Close()
			if tc.limit > 0 {
				s.SetMemoryLimit(tc.limit)
			}
			s.Init()
			got, _, err := streamDecompress(s, compressed, tc.inSize, tc.outSz)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, data) {
				t.Fatal("decompressed output doesn't match")
			}
		})
	}
}

func TestDStreamTrailingData(t *testing.T) {
	a := testText(100000, 27)
	compressed, _ := Compress(a, 3)
	src := append(append([]byte(nil), compressed...), "trailing"...)
	s := NewDStream(2)
	defer s.Close()
	s.Init()
	got, n, err := streamDecompress(s, src, 1000, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(compressed) || !bytes.Equal(got, a) {
		t.Fatalf("consumed %d of %d bytes", n, len(compressed))
	}
	out := OutBuffer{Dst: make([]byte, 10)}
	if _, err := s.Decompress(&out, &InBuffer{Src: src[n:]}); Code(err) != StageWrong {
		t.Fatalf("Decompress after Done: %v", err)
	}
}

func TestDStreamInitProp(t *testing.T) {
	data := testText(100000, 28)
	p := DefaultParameters()
	p.OmitProperties = true
	compressed, err := CompressParams(data, p, 1)
	if err != nil {
		t.Fatal(err)
	}
	s := NewDStream(1)
	defer s.Close()
	if err := s.InitProp(0x41); err == nil {
		t.Fatal("invalid property accepted")
	}
	if err := s.InitProp(streamProp(&p)); err != nil {
		t.Fatal(err)
	}
	got, _, err := streamDecompress(s, compressed, 333, 4444)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("decompressed output doesn't match")
	}
}

func TestDStreamErrors(t *testing.T) {
	data := testText(100000, 29)
	compressed, _ := Compress(data, 5)

	s := NewDStream(1)
	defer s.Close()
	out := OutBuffer{Dst: make([]byte, 100)}
	if _, err := s.Decompress(&out, &InBuffer{Src: compressed}); !errors.Is(err, ErrInitMissing) {
		t.Fatalf("before Init: %v", err)
	}

	bad := append([]byte(nil), compressed...)
	bad[len(bad)-2] ^= 0x10
	s.Init()
	if _, _, err := streamDecompress(s, bad, 4096, 4096); !errors.Is(err, ErrChecksumWrong) {
		t.Fatalf("bad checksum: %v", err)
	}
	if _, err := s.Decompress(&out, &InBuffer{}); Code(err) != StageWrong {
		t.Fatalf("after failure: %v", err)
	}

	s.Init()
	if _, _, err := streamDecompress(s, compressed[:len(compressed)/2], 4096, 4096); err != io.ErrUnexpectedEOF {
		t.Fatalf("truncated: %v", err)
	}

	if err := s.Init(); Code(err) != InitMissing {
		t.Fatalf("Init while active: %v", err)
	}
	s.Cancel()
	if _, err := s.Decompress(&out, &InBuffer{Src: compressed}); !errors.Is(err, ErrCanceled) {
		t.Fatalf("after Cancel: %v", err)
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	got, _, err := streamDecompress(s, compressed, 4096, 4096)
	if err != nil || !bytes.Equal(got, data) {
		t.Fatalf("after restart: %v", err)
	}
}

func TestWriter(t *testing.T) {
	data := testText(1<<20+999, 30)
	want, err := CompressMT(data, 4, 2)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf, 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	for pos := 0; pos < len(data); pos += 77777 {
		end := pos + 77777
		if end > len(data) {
			end = len(data)
		}
		if _, err := w.Append(data[pos:end]); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if w.Progress() != int64(len(data)) {
		t.Errorf("progress %d", w.Progress())
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatal("Writer output differs from one-shot output")
	}
	if _, err := w.Append(data); err == nil {
		t.Fatal("Append after Close succeeded")
	}
}

func TestWriterWriteEndsStream(t *testing.T) {
	a := testText(200000, 31)
	b := testText(50000, 32)
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(a); err != nil {
		t.Fatal(err)
	}
	first := buf.Len()
	if _, err := w.Append(b[:1000]); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(b[1000:]); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	single, _ := Decompress(buf.Bytes()[:first])
	if !bytes.Equal(single, a) {
		t.Fatal("first stream is not complete")
	}
	roundTrip(t, append(append([]byte(nil), a...), b...), buf.Bytes(), 1)
}

func TestWriterParams(t *testing.T) {
	p := DefaultParameters()
	p.LC = 4
	p.LP = 1
	if _, err := NewWriterParams(io.Discard, p, 1); !errors.Is(err, ErrLclpMaxExceeded) {
		t.Fatalf("lc+lp=5: %v", err)
	}
	if _, err := NewWriter(io.Discard, 11, 1); !errors.Is(err, ErrParameterOutOfBound) {
		t.Fatalf("level 11: %v", err)
	}
}

func TestReader(t *testing.T) {
	a := testText(700000, 33)
	b := testRandom(70000, 34)
	ca, _ := CompressMT(a, 6, 2)
	cb, _ := Compress(b, 1)
	src := append(append([]byte(nil), ca...), cb...)
	want := append(append([]byte(nil), a...), b...)

	for _, tc := range []struct {
		name    string
		r       func() io.Reader
		threads int
	}{
		{"whole", func() io.Reader { return bytes.NewReader(src) }, 1},
		{"one-byte", func() io.Reader { return iotest.OneByteReader(bytes.NewReader(src)) }, 1},
		{"half", func() io.Reader { return iotest.HalfReader(bytes.NewReader(src)) }, 2},
		{"data-err", func() io.Reader { return iotest.DataErrReader(bytes.NewReader(src)) }, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewReader(tc.r(), tc.threads)
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, want) {
				t.Fatal("decompressed output doesn't match")
			}
			if r.Progress() != int64(len(src)) {
				t.Errorf("progress %d, want %d", r.Progress(), len(src))
			}
		})
	}
}

func TestReaderTruncated(t *testing.T) {
	compressed, _ := Compress(testText(100000, 35), 3)
	r, _ := NewReader(bytes.NewReader(compressed[:len(compressed)-1]), 1)
	defer r.Close()
	if _, err := io.ReadAll(r); err != io.ErrUnexpectedEOF {
		t.Fatalf("got %v, want io.ErrUnexpectedEOF", err)
	}
}

// stallReader returns (0, nil) stalls times before each read it passes
// through.
type stallReader struct {
	r      io.Reader
	stalls int
	n      int
}

func (s *stallReader) Read(p []byte) (int, error) {
	if s.n < s.stalls {
		s.n++
		return 0, nil
	}
	s.n = 0
	return s.r.Read(p)
}

func TestReaderEmptyReads(t *testing.T) {
	data := testText(200000, 37)
	compressed, _ := Compress(data, 4)
	r, _ := NewReader(&stallReader{r: iotest.HalfReader(bytes.NewReader(compressed)), stalls: 5}, 1)
	got, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("decompressed output doesn't match")
	}

	r, _ = NewReader(&stallReader{r: bytes.NewReader(compressed), stalls: 1 << 30}, 1)
	defer r.Close()
	if _, err := io.ReadAll(r); err != io.ErrNoProgress {
		t.Fatalf("got %v, want io.ErrNoProgress", err)
	}
}

func TestReaderProp(t *testing.T) {
	data := testText(100000, 36)
	var buf bytes.Buffer
	p := DefaultParameters()
	p.OmitProperties = true
	w, _ := NewWriterParams(&buf, p, 1)
	w.Write(data)
	w.Close()

	r, err := NewReaderProp(&buf, streamProp(&p), 1)
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("decompressed output doesn't match")
	}
}
