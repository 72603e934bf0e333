package lzma2

import "errors"

var (
	// ErrCorrupt is returned when a chunk stream violates the format.
	ErrCorrupt = errors.New("lzma2: corrupt data")
	// ErrShortInput is returned when more input is needed to parse a header
	// or decode a chunk.
	ErrShortInput = errors.New("lzma2: unexpected end of input")
	// ErrProps is returned for invalid lc/lp/pb properties.
	ErrProps = errors.New("lzma2: invalid properties")
	// ErrDictProp is returned for a dictionary property above 40.
	ErrDictProp = errors.New("lzma2: invalid dictionary property")
	// ErrOutputFull is returned when decoded data does not fit the output
	// window.
	ErrOutputFull = errors.New("lzma2: output buffer too small")
)
