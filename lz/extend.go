package lz

import (
	"encoding/binary"
	"math/bits"
)

// extendMatch compares src[i:] with src[j:], where i < j, and returns the
// index in src where the match starting at j ends: the first k >= j with
// src[k] != src[k-(j-i)], or len(src).
func extendMatch(src []byte, i, j int) int {
	for j+8 <= len(src) {
		x := binary.LittleEndian.Uint64(src[i:]) ^ binary.LittleEndian.Uint64(src[j:])
		if x != 0 {
			return j + bits.TrailingZeros64(x)/8
		}
		i += 8
		j += 8
	}
	for j < len(src) && src[i] == src[j] {
		i++
		j++
	}
	return j
}

// Multiplicative hashes; the result is the top 32-shift bits.
const (
	prime4 = 0x9E3779B1
	prime3 = 0x85EBCA77
)

func hash4(u uint32, shift uint) uint32 {
	return (u * prime4) >> shift
}

func hash3(src []byte, i int, shift uint) uint32 {
	u := uint32(src[i])<<8 | uint32(src[i+1])<<16 | uint32(src[i+2])<<24
	return (u * prime3) >> shift
}
