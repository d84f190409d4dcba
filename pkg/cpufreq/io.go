package cpufreq

import (
	"io"
)

// MaxReadSize bounds every scratch buffer the package allocates for a read.
const MaxReadSize = 64 << 10

// readFull pulls bytes from offset zero until buf is full or the attribute
// reports end of file. sysfs usually hands over the whole value in one read
// but nothing guarantees it.
func readFull(sys sysFile, fd int, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := sys.Pread(fd, buf[n:], int64(n))
		if err != nil {
			return n, err
		}
		if m <= 0 {
			break
		}
		n += m
	}
	return n, nil
}

// readAttribute reads the whole attribute into buf. A zero byte read is
// ErrNoData. Content that does not fit in buf is ErrCapacity, reported
// together with the bytes that did fit.
func readAttribute(sys sysFile, fd int, buf []byte) (int, error) {
	n, err := readFull(sys, fd, buf)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, ErrNoData
	}
	if n == len(buf) {
		var probe [1]byte
		m, err := sys.Pread(fd, probe[:], int64(n))
		if err != nil {
			return n, err
		}
		if m > 0 {
			return n, ErrCapacity
		}
	}
	return n, nil
}

// writeAttribute writes p at offset zero in a single call; the kernel parses
// each write on its own, so a split write would be two different stores.
func writeAttribute(sys sysFile, fd int, p []byte) (int, error) {
	n, err := sys.Pwrite(fd, p, 0)
	if err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// scratchLen sizes a read buffer for capacity values of at most width bytes
// each plus a separator, clamped to MaxReadSize.
func scratchLen(capacity, width int) int {
	if capacity <= 0 {
		return 0
	}
	if capacity > (MaxReadSize-1)/(width+1) {
		return MaxReadSize
	}
	return capacity*(width+1) + 1
}
