//go:build !linux

package fl2

func physicalMemory() uint64 {
	return 0
}
