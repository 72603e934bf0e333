package fl2

import "runtime"

const fallbackMemoryLimit = 1 << 30

// defaultMemoryLimit is the memory a multithreaded decoder may use before
// it falls back to decoding sequentially: a quarter of physical memory.
func defaultMemoryLimit() uint64 {
	if m := physicalMemory(); m > 0 {
		return m / 4
	}
	return fallbackMemoryLimit
}

func threadCount(threads int) int {
	if threads <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return threads
}

// blockSize returns the size of the blocks a pass is split into: a
// quarter of the dictionary, scaled by BufferResize.
func blockSize(p *CompressionParameters) int {
	scale := [BufferResizeMax + 1]int{2, 3, 4, 6, 8}
	n := p.DictionarySize / 16 * scale[p.BufferResize]
	if n < 1<<16 {
		n = 1 << 16
	}
	if n > 1<<23 {
		n = 1 << 23
	}
	return n
}

// EstimateCompressMemoryUsage returns the approximate memory used by a
// compressor at the given level and thread count.
func EstimateCompressMemoryUsage(level, threads int) (uint64, error) {
	p, err := levelParameters(level, false)
	if err != nil {
		return 0, err
	}
	return EstimateCompressMemoryUsageParams(p, threads)
}

// EstimateCompressMemoryUsageParams returns the approximate memory used by
// a compressor with parameters p.
func EstimateCompressMemoryUsageParams(p CompressionParameters, threads int) (uint64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	threads = threadCount(threads)
	bs := uint64(blockSize(&p))
	src := bs + bs*uint64(p.OverlapFraction)/16

	perThread := uint64(4 << 20) // hash heads
	perThread += 4 * src         // hash chain
	perThread += 8 * src         // match list
	perThread += 2 * (0x300 << uint(p.LC+p.LP))
	if p.Strategy == Ultra {
		perThread += 4<<uint(p.ChainLog) + 4<<16
	}
	window := uint64(p.DictionarySize) * 2
	return window + uint64(threads)*(perThread+bs), nil
}

// EstimateDecompressMemoryUsage returns the approximate memory used to
// decode a stream with the given dictionary size. Multithreaded decoding
// holds whole segments of the default reset interval in memory.
func EstimateDecompressMemoryUsage(dictSize uint32, threads int) uint64 {
	d := uint64(dictSize)
	if d < 1<<21 {
		d = 1 << 21
	}
	if threadCount(threads) == 1 {
		return d + 1<<16
	}
	return uint64(threadCount(threads)) * (4*uint64(dictSize) + 1<<16)
}
