package lz

import (
	"errors"
	"fmt"
)

// ErrInvalidMatches is returned by Verify.
var ErrInvalidMatches = errors.New("lz: invalid match list")

// Verify checks that matches describe src[start:] exactly: they cover it
// byte for byte, and every match copies bytes equal to the ones it
// replaces from within src.
func Verify(src []byte, start int, matches []Match) error {
	pos := start
	for i, m := range matches {
		if m.Unmatched < 0 || m.Length < 0 || pos+m.Unmatched+m.Length > len(src) {
			return fmt.Errorf("%w: match %d %+v runs past the end", ErrInvalidMatches, i, m)
		}
		pos += m.Unmatched
		if m.Length == 0 {
			continue
		}
		if m.Length < 2 || m.Length > MaxLength {
			return fmt.Errorf("%w: match %d has length %d", ErrInvalidMatches, i, m.Length)
		}
		if m.Distance < 1 || m.Distance > pos {
			return fmt.Errorf("%w: match %d has distance %d at %d", ErrInvalidMatches, i, m.Distance, pos)
		}
		for k := 0; k < m.Length; k++ {
			if src[pos+k] != src[pos+k-m.Distance] {
				return fmt.Errorf("%w: match %d differs at %d", ErrInvalidMatches, i, pos+k)
			}
		}
		pos += m.Length
	}
	if pos != len(src) {
		return fmt.Errorf("%w: covers %d of %d bytes", ErrInvalidMatches, pos-start, len(src)-start)
	}
	return nil
}

// Text appends a human-readable form of the matches for src[start:] to
// dst. Matches are replaced with <Length,Distance> symbols.
func Text(dst []byte, src []byte, start int, matches []Match) []byte {
	pos := start
	for _, m := range matches {
		if m.Unmatched > 0 {
			dst = append(dst, src[pos:pos+m.Unmatched]...)
			pos += m.Unmatched
		}
		if m.Length > 0 {
			dst = append(dst, fmt.Sprintf("<%d,%d>", m.Length, m.Distance)...)
			pos += m.Length
		}
	}
	if pos < len(src) {
		dst = append(dst, src[pos:]...)
	}
	return dst
}
