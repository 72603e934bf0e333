package fl2

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/kingsznhone/fl2/lzma2"
	"github.com/kingsznhone/fl2/parallel"
	"github.com/pierrec/xxHash/xxHash32"
)

// decodeSegment decodes the chunks of one segment into dst, which must be
// exactly the size of the segment's output.
func decodeSegment(dst, chunks []byte, dictSize uint32) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = decodePanic(r)
		}
	}()

	d := lzma2.NewFlatDecoder(dst, dictSize)
	for pos := 0; pos < len(chunks); {
		h, err := lzma2.ParseHeader(chunks[pos:])
		if err != nil {
			return err
		}
		if h.End() {
			break
		}
		payload := pos + h.Size()
		if payload+h.Packed > len(chunks) {
			return lzma2.ErrShortInput
		}
		if err := d.DecodeChunk(h, chunks[payload:payload+h.Packed]); err != nil {
			return err
		}
		pos = payload + h.Packed
	}
	if d.Written() != len(dst) {
		return lzma2.ErrCorrupt
	}
	return nil
}

// decodePanic converts a panic while decoding into an error. Anything but
// a failed allocation is reported as corruption.
func decodePanic(r interface{}) error {
	if re, ok := r.(runtime.Error); ok && strings.Contains(re.Error(), "makeslice") {
		return wrap(MemoryAllocation, re)
	}
	return wrap(CorruptionDetected, fmt.Errorf("decoder panic: %v", r))
}

// decodeSegments decodes the segments of a stream into dst, in parallel if
// a dispatcher is given. If track is not nil, it is called with the batch
// of parallel jobs before waiting for it.
func decodeSegments(dst, chunks []byte, segs []lzma2.Segment, dictSize uint32, disp *parallel.Dispatcher, track func(*parallel.Batch)) error {
	job := func(i int) error {
		s := segs[i]
		return decodeSegment(dst[s.Offset:s.Offset+s.Unpacked], chunks[s.Start:s.End], dictSize)
	}
	if disp == nil || len(segs) < 2 {
		for i := range segs {
			if err := job(i); err != nil {
				return err
			}
		}
		return nil
	}
	b := disp.Submit(len(segs), job)
	if track != nil {
		track(b)
	}
	return b.Wait(0)
}

func checksum(p []byte) uint32 {
	h := xxHash32.New(0)
	h.Write(p)
	return h.Sum32()
}

// A Decompressor decompresses whole buffers, keeping its workers between
// calls.
type Decompressor struct {
	threads  int
	prop     int // -1 if streams carry their property byte
	memLimit uint64
	disp     *parallel.Dispatcher
}

// NewDecompressor returns a Decompressor using threads workers (0 means one
// per CPU). Streams are decoded in parallel when they contain several
// dictionary resets.
func NewDecompressor(threads int) *Decompressor {
	d := &Decompressor{threads: threadCount(threads), prop: -1, memLimit: defaultMemoryLimit()}
	if d.threads > 1 {
		d.disp = parallel.NewDispatcher(d.threads)
	}
	return d
}

// ThreadCount returns the number of workers.
func (d *Decompressor) ThreadCount() int { return d.threads }

// SetMemoryLimit sets the largest output Decompress will allocate. Larger
// streams must be decoded with a DStream.
func (d *Decompressor) SetMemoryLimit(n uint64) {
	d.memLimit = n
}

// InitProp sets the property byte for streams written without one.
func (d *Decompressor) InitProp(prop byte) error {
	if _, _, err := parseProp(prop); err != nil {
		return err
	}
	d.prop = int(prop)
	return nil
}

// Decompress decodes the concatenated streams in src.
func (d *Decompressor) Decompress(src []byte) ([]byte, error) {
	size, err := findSize(src, d.prop)
	if err != nil {
		return nil, err
	}
	if size > math.MaxInt || size > d.memLimit {
		return nil, wrap(MemoryAllocation, fmt.Errorf("decompressed size %d exceeds limit of %d", size, d.memLimit))
	}
	out := make([]byte, size)

	var off int64
	for first := true; first || len(src) > 0; first = false {
		info, err := scanStream(src, d.prop)
		if err != nil {
			return nil, err
		}
		dst := out[off : off+info.size]
		if err := decodeSegments(dst, info.chunks, info.segments, info.dictSize, d.disp, nil); err != nil {
			return nil, translate(err)
		}
		if info.hash {
			want := readChecksum(src[info.length-hashSize:])
			if checksum(dst) != want {
				return nil, ErrChecksumWrong
			}
		}
		src = src[info.length:]
		off += info.size
	}
	return out, nil
}

// Close releases the workers.
func (d *Decompressor) Close() error {
	if d.disp != nil {
		d.disp.Close()
	}
	return nil
}

// Decompress decodes the concatenated streams in src on a single thread.
func Decompress(src []byte) ([]byte, error) {
	return DecompressMT(src, 1)
}

// DecompressMT decodes the concatenated streams in src using threads
// workers (0 means one per CPU).
func DecompressMT(src []byte, threads int) ([]byte, error) {
	d := NewDecompressor(threads)
	defer d.Close()
	return d.Decompress(src)
}
