package cpufreq

import (
	"fmt"

	"golang.org/x/sys/unix"
)

var (
	// ErrCapacity is returned when an attribute holds more values than the
	// destination can take. Nothing is written to the destination.
	ErrCapacity error = unix.ERANGE
	// ErrNoData is returned when a read yields zero bytes.
	ErrNoData error = unix.ENODATA
	// ErrInvalidAttribute is returned for unknown attributes and for
	// operations the attribute does not support.
	ErrInvalidAttribute error = unix.EINVAL
	// ErrPathTooLong is returned when the resolved path exceeds MaxPathLen.
	ErrPathTooLong error = unix.ENAMETOOLONG
)

// AttributeError records a failed operation on a cpufreq attribute.
type AttributeError struct {
	Op        string
	Attribute Attribute
	Core      uint32
	Path      string
	Err       error
}

func (e *AttributeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("cpufreq %s %s (cpu%d): %v", e.Op, e.Attribute, e.Core, e.Err)
	}
	return fmt.Sprintf("cpufreq %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *AttributeError) Unwrap() error { return e.Err }

// ParseError reports attribute text that is not a valid unsigned 32-bit
// decimal value.
type ParseError struct {
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed value %q: %v", e.Token, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
