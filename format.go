package fl2

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kingsznhone/fl2/lzma2"
)

const (
	// propHashBit is set in the property byte when the stream ends with
	// a checksum.
	propHashBit  = 0x80
	propDictMask = 0x3F

	hashSize = 4
)

// streamProp returns the property byte for p.
func streamProp(p *CompressionParameters) byte {
	prop := lzma2.DictProp(uint32(p.DictionarySize))
	if p.DoXXHash {
		prop |= propHashBit
	}
	return prop
}

// parseProp decodes a property byte into the dictionary size and checksum
// flag.
func parseProp(prop byte) (dictSize uint32, hash bool, err error) {
	if prop&^(propDictMask|propHashBit) != 0 {
		return 0, false, wrap(CorruptionDetected, fmt.Errorf("property byte %#x", prop))
	}
	dictSize, err = lzma2.DictSizeFromProp(prop & propDictMask)
	if err != nil {
		return 0, false, wrap(CorruptionDetected, err)
	}
	return dictSize, prop&propHashBit != 0, nil
}

// DictSizeFromProp returns the dictionary size given by a property byte.
func DictSizeFromProp(prop byte) (uint32, error) {
	d, _, err := parseProp(prop)
	return d, err
}

// CompressBound returns the largest compressed size of n bytes.
func CompressBound(n int) int {
	return n + n>>10 + 64
}

// streamInfo describes one stream found in a buffer.
type streamInfo struct {
	dictSize uint32
	hash     bool
	chunks   []byte // from the first chunk through the end marker
	segments []lzma2.Segment
	size     int64
	length   int // bytes of the stream including property byte and checksum
}

// scanStream locates the stream at the start of src. If prop is negative,
// the stream starts with its property byte; otherwise prop is used.
func scanStream(src []byte, prop int) (streamInfo, error) {
	var info streamInfo
	pos := 0
	if prop < 0 {
		if len(src) == 0 {
			return info, wrap(SrcSizeWrong, io.ErrUnexpectedEOF)
		}
		prop = int(src[0])
		pos++
	}
	var err error
	info.dictSize, info.hash, err = parseProp(byte(prop))
	if err != nil {
		return info, err
	}
	segs, n, err := lzma2.Scan(src[pos:])
	switch {
	case errors.Is(err, lzma2.ErrShortInput):
		return info, wrap(SrcSizeWrong, err)
	case err != nil:
		return info, translate(err)
	}
	info.chunks = src[pos : pos+n]
	info.segments = segs
	for _, s := range segs {
		info.size += s.Unpacked
	}
	pos += n
	if info.hash {
		if len(src)-pos < hashSize {
			return info, wrap(SrcSizeWrong, io.ErrUnexpectedEOF)
		}
		pos += hashSize
	}
	info.length = pos
	return info, nil
}

// FindDecompressedSize returns the uncompressed size of the streams in src.
func FindDecompressedSize(src []byte) (uint64, error) {
	return findSize(src, -1)
}

func findSize(src []byte, prop int) (uint64, error) {
	var total uint64
	for first := true; first || len(src) > 0; first = false {
		info, err := scanStream(src, prop)
		if err != nil {
			return 0, err
		}
		total += uint64(info.size)
		src = src[info.length:]
	}
	return total, nil
}

// FindDecompressedSizeFile returns the uncompressed size of the streams in
// the named file. Only chunk headers are read.
func FindDecompressedSizeFile(name string) (uint64, error) {
	f, err := os.Open(name)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return findSizeReaderAt(f, fi.Size())
}

func findSizeReaderAt(r io.ReaderAt, size int64) (uint64, error) {
	var total uint64
	var hdr [6]byte
	var pos int64
	for first := true; first || pos < size; first = false {
		if _, err := r.ReadAt(hdr[:1], pos); err != nil {
			return 0, wrap(SrcSizeWrong, err)
		}
		_, hash, err := parseProp(hdr[0])
		if err != nil {
			return 0, err
		}
		pos++
		for {
			n := int64(len(hdr))
			if size-pos < n {
				n = size - pos
			}
			if n <= 0 {
				return 0, wrap(SrcSizeWrong, io.ErrUnexpectedEOF)
			}
			if _, err := r.ReadAt(hdr[:n], pos); err != nil && err != io.EOF {
				return 0, err
			}
			h, err := lzma2.ParseHeader(hdr[:n])
			if errors.Is(err, lzma2.ErrShortInput) {
				return 0, wrap(SrcSizeWrong, err)
			} else if err != nil {
				return 0, translate(err)
			}
			if h.End() {
				pos++
				break
			}
			pos += int64(h.Size() + h.Packed)
			total += uint64(h.Unpacked)
		}
		if hash {
			pos += hashSize
		}
		if pos > size {
			return 0, wrap(SrcSizeWrong, io.ErrUnexpectedEOF)
		}
	}
	return total, nil
}

func appendChecksum(dst []byte, sum uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, sum)
}

func readChecksum(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}
