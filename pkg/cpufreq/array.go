package cpufreq

import (
	"bytes"
)

// TokenMaxLen is the longest token the token reader budgets for when sizing
// its scratch buffer. Governor names are far shorter.
const TokenMaxLen = 128

// decodeUint32s parses every whitespace separated token of b into dst.
// dst is only written when all tokens parse and fit.
func decodeUint32s(b []byte, dst []uint32) (int, error) {
	fields := bytes.FieldsFunc(b, isSeparator)
	if len(fields) > len(dst) {
		return 0, ErrCapacity
	}
	staged := make([]uint32, len(fields))
	for i, f := range fields {
		v, err := decodeUint32(f)
		if err != nil {
			return 0, err
		}
		staged[i] = v
	}
	return copy(dst, staged), nil
}

// decodeTokens copies every whitespace separated token of b into the fixed
// width slots of dst. A token longer than its slot is truncated; the rest of
// each used slot is NUL filled. dst is untouched when the tokens do not fit.
func decodeTokens(b []byte, dst [][]byte) (int, error) {
	fields := bytes.FieldsFunc(b, isSeparator)
	if len(fields) > len(dst) {
		return 0, ErrCapacity
	}
	for i, f := range fields {
		n := copy(dst[i], f)
		clear(dst[i][n:])
	}
	return len(fields), nil
}

func (c *Client) readUint32s(fd int, dst []uint32) (int, error) {
	if len(dst) == 0 {
		return 0, ErrInvalidAttribute
	}
	buf := make([]byte, scratchLen(len(dst), U32MaxLen))
	n, err := readAttribute(c.sys, fd, buf)
	if err != nil {
		return 0, err
	}
	return decodeUint32s(buf[:n], dst)
}

func (c *Client) readTokens(fd int, dst [][]byte) (int, error) {
	if len(dst) == 0 {
		return 0, ErrInvalidAttribute
	}
	buf := make([]byte, scratchLen(len(dst), TokenMaxLen))
	n, err := readAttribute(c.sys, fd, buf)
	if err != nil {
		return 0, err
	}
	return decodeTokens(buf[:n], dst)
}

// NewTokenTable allocates n slots of width bytes for ScalingAvailableGovernors.
func NewTokenTable(n, width int) [][]byte {
	backing := make([]byte, n*width)
	table := make([][]byte, n)
	for i := range table {
		table[i] = backing[i*width : (i+1)*width : (i+1)*width]
	}
	return table
}

// TokenString returns the content of a slot up to its first NUL byte.
func TokenString(slot []byte) string {
	if i := bytes.IndexByte(slot, 0); i >= 0 {
		return string(slot[:i])
	}
	return string(slot)
}

// TokenStrings converts the first n slots of a table to strings.
func TokenStrings(table [][]byte, n int) []string {
	if n > len(table) {
		n = len(table)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = TokenString(table[i])
	}
	return out
}
