// Package fl2 is a multithreaded LZMA2 compressor and decompressor.
//
// Compression works on a dictionary window that is filled by the caller and
// split into blocks. Each block is parsed into LZ77 matches by a hash chain
// match finder (package lz) and range coded as LZMA2 chunks (package lzma2).
// Blocks are encoded concurrently and concatenated in order, so the output
// does not depend on the number of threads.
//
// A stream consists of a property byte holding the dictionary size class,
// the LZMA2 chunks, an end marker and an optional xxHash32 checksum of the
// uncompressed data:
//
//	[prop] chunk... 0x00 [xxhash32]
//
// The dictionary is reset at a fixed interval, so large streams can be
// decoded in parallel as well.
//
// There are three ways to use the package: the one-shot functions
// (Compress, Decompress and their variants), the reusable Compressor and
// Decompressor contexts, and the streaming sessions CStream and DStream,
// which are also wrapped as an io.Writer and an io.Reader.
package fl2
