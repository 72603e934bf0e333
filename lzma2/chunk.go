package lzma2

const (
	// MaxChunkUnpacked is the largest uncompressed size of an LZMA chunk.
	MaxChunkUnpacked = 1 << 21
	// MaxChunkPacked is the largest compressed payload of an LZMA chunk.
	MaxChunkPacked = 1 << 16
	// MaxRawChunk is the largest payload of an uncompressed chunk.
	MaxRawChunk = 1 << 16

	// EndMarker terminates a chunk stream.
	EndMarker = 0x00

	ctrlRawReset = 0x01
	ctrlRaw      = 0x02
	ctrlLZMA     = 0x80

	resetNone  = 0
	resetState = 1
	resetProps = 2
	resetDict  = 3

	// MaxDictProp is the dictionary property meaning 4 GiB - 1.
	MaxDictProp = 40

	// maxChunkRatio bounds the unpacked size of an LZMA chunk per payload
	// byte. A saturated probability costs about 0.022 bits, so a maximal
	// rep0 match of 14 binary decisions yields under 7100 bytes per byte.
	maxChunkRatio = 1 << 14
)

// A ChunkHeader describes one chunk of the stream.
type ChunkHeader struct {
	Control  byte
	Unpacked int // uncompressed bytes produced by the chunk
	Packed   int // payload bytes following the header
	Props    Props
}

// End reports whether h is the end marker.
func (h ChunkHeader) End() bool { return h.Control == EndMarker }

// LZMA reports whether the payload is range coded.
func (h ChunkHeader) LZMA() bool { return h.Control >= ctrlLZMA }

// DictReset reports whether the chunk starts a new dictionary.
func (h ChunkHeader) DictReset() bool {
	return h.Control == ctrlRawReset || h.Control >= ctrlLZMA|resetDict<<5
}

// HasProps reports whether the header carries a properties byte.
func (h ChunkHeader) HasProps() bool { return h.Control >= ctrlLZMA|resetProps<<5 }

// StateReset reports whether the LZMA state is reset before the chunk.
func (h ChunkHeader) StateReset() bool { return h.Control >= ctrlLZMA|resetState<<5 }

// Size returns the length of the encoded header.
func (h ChunkHeader) Size() int {
	switch {
	case h.End():
		return 1
	case !h.LZMA():
		return 3
	case h.HasProps():
		return 6
	default:
		return 5
	}
}

// ParseHeader decodes the chunk header at the start of b. It returns
// ErrShortInput when b holds only part of the header, and ErrCorrupt for an
// LZMA chunk claiming more output than its payload can encode.
func ParseHeader(b []byte) (ChunkHeader, error) {
	if len(b) == 0 {
		return ChunkHeader{}, ErrShortInput
	}
	h := ChunkHeader{Control: b[0]}
	switch {
	case h.Control == EndMarker:
		return h, nil
	case h.Control == ctrlRawReset || h.Control == ctrlRaw:
		if len(b) < 3 {
			return h, ErrShortInput
		}
		h.Unpacked = (int(b[1])<<8 | int(b[2])) + 1
		h.Packed = h.Unpacked
		return h, nil
	case h.Control < ctrlLZMA:
		return h, ErrCorrupt
	}
	if len(b) < h.Size() {
		return h, ErrShortInput
	}
	h.Unpacked = (int(h.Control&0x1F)<<16 | int(b[1])<<8 | int(b[2])) + 1
	h.Packed = (int(b[3])<<8 | int(b[4])) + 1
	if h.Unpacked > h.Packed*maxChunkRatio {
		return h, ErrCorrupt
	}
	if h.HasProps() {
		p, err := PropsFromByte(b[5])
		if err != nil {
			return h, ErrCorrupt
		}
		h.Props = p
	}
	return h, nil
}

func appendRawHeader(dst []byte, reset bool, n int) []byte {
	c := byte(ctrlRaw)
	if reset {
		c = ctrlRawReset
	}
	return append(dst, c, byte((n-1)>>8), byte(n-1))
}

func appendLZMAHeader(dst []byte, reset int, unpacked, packed int, p Props) []byte {
	u := unpacked - 1
	dst = append(dst,
		byte(ctrlLZMA|reset<<5|(u>>16)&0x1F),
		byte(u>>8), byte(u),
		byte((packed-1)>>8), byte(packed-1))
	if reset >= resetProps {
		dst = append(dst, p.Byte())
	}
	return dst
}

// A Segment is a run of chunks that starts with a dictionary reset and
// can be decoded independently of the rest of the stream.
type Segment struct {
	Start, End int // byte range of the chunks within the scanned input
	Offset     int64
	Unpacked   int64
}

// Scan walks the chunk headers of the stream at the start of src up to
// and including the end marker. It returns the dictionary-reset segments
// and the number of bytes the stream occupies.
func Scan(src []byte) ([]Segment, int, error) {
	var segs []Segment
	var total int64
	pos := 0
	for {
		h, err := ParseHeader(src[pos:])
		if err != nil {
			return segs, pos, err
		}
		if h.End() {
			if len(segs) > 0 {
				segs[len(segs)-1].End = pos
			}
			return segs, pos + 1, nil
		}
		if h.DictReset() {
			if len(segs) > 0 {
				segs[len(segs)-1].End = pos
			}
			segs = append(segs, Segment{Start: pos, Offset: total})
		} else if len(segs) == 0 {
			return segs, pos, ErrCorrupt
		}
		n := h.Size() + h.Packed
		if len(src)-pos < n {
			return segs, pos, ErrShortInput
		}
		pos += n
		total += int64(h.Unpacked)
		segs[len(segs)-1].Unpacked += int64(h.Unpacked)
	}
}

// DictSizeFromProp returns the dictionary size encoded by an LZMA2
// dictionary property.
func DictSizeFromProp(p byte) (uint32, error) {
	if p > MaxDictProp {
		return 0, ErrDictProp
	}
	if p == MaxDictProp {
		return 0xFFFFFFFF, nil
	}
	return (2 | uint32(p)&1) << (p/2 + 11), nil
}

// DictProp returns the smallest dictionary property whose size covers n.
func DictProp(n uint32) byte {
	for p := byte(0); p < MaxDictProp; p++ {
		if s, _ := DictSizeFromProp(p); s >= n {
			return p
		}
	}
	return MaxDictProp
}
