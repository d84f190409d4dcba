package cpufreq

import (
	"bytes"
)

// trimLine terminates the first line of buf[:n] with a NUL byte.
func trimLine(buf []byte, n int) {
	if i := bytes.IndexByte(buf[:n], '\n'); i >= 0 {
		buf[i] = 0
		return
	}
	if n < len(buf) {
		buf[n] = 0
	}
}

// readString reads at most len(dst) bytes. Text that does not fit is cut
// silently. The returned count is the number of bytes read before trimming.
func (c *Client) readString(fd int, dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, ErrInvalidAttribute
	}
	n, err := readFull(c.sys, fd, dst)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNoData
	}
	trimLine(dst, n)
	return n, nil
}

func (c *Client) writeString(fd int, s []byte) (int, error) {
	if len(s) == 0 {
		return 0, ErrInvalidAttribute
	}
	return writeAttribute(c.sys, fd, s)
}
