package cpufreq

import (
	"bytes"
	"errors"
	"strconv"
)

// U32MaxLen is the number of decimal digits of math.MaxUint32.
const U32MaxLen = 10

// scalarReadLen leaves room for a newline and for the kernel's textual
// placeholders such as "<unknown>" so they surface as parse errors.
const scalarReadLen = 32

func isSeparator(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', 0:
		return true
	}
	return false
}

// decodeUint32 parses a base-10 attribute value. Surrounding whitespace and
// trailing NUL bytes are ignored; anything else is a ParseError.
func decodeUint32(b []byte) (uint32, error) {
	tok := bytes.TrimFunc(b, isSeparator)
	v, err := strconv.ParseUint(string(tok), 10, 32)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return 0, &ParseError{Token: string(tok), Err: err}
	}
	return uint32(v), nil
}

// encodeUint32 formats v into buf without padding or newline.
func encodeUint32(buf *[U32MaxLen]byte, v uint32) []byte {
	return strconv.AppendUint(buf[:0], uint64(v), 10)
}

func (c *Client) readUint32(fd int) (uint32, error) {
	var buf [scalarReadLen]byte
	n, err := readAttribute(c.sys, fd, buf[:])
	if err != nil {
		if errors.Is(err, ErrCapacity) {
			return 0, &ParseError{Token: string(buf[:n]), Err: strconv.ErrRange}
		}
		return 0, err
	}
	return decodeUint32(buf[:n])
}

func (c *Client) writeUint32(fd int, v uint32) (int, error) {
	var buf [U32MaxLen]byte
	return writeAttribute(c.sys, fd, encodeUint32(&buf, v))
}
