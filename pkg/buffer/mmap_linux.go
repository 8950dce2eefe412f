//go:build linux

package buffer

import (
	"golang.org/x/sys/unix"
)

// mmapFile maps length bytes of fd read-only and shared.
func mmapFile(fd int, length int) ([]byte, error) {
	return unix.Mmap(fd, 0, length, unix.PROT_READ, unix.MAP_SHARED)
}

// munmapFile unmaps a region returned by mmapFile.
func munmapFile(b []byte) error {
	return unix.Munmap(b)
}

// madviseSequential advises the kernel of a sequential access pattern.
func madviseSequential(b []byte) error {
	return unix.Madvise(b, unix.MADV_SEQUENTIAL)
}
