package cpufreq

import (
	"errors"
	"io/fs"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Handle is an optional caller-owned descriptor. The zero value, NoHandle,
// asks the accessor to open and close the attribute itself.
type Handle struct {
	fd    int
	valid bool
}

// NoHandle requests an ephemeral descriptor for a single call.
var NoHandle = Handle{}

// CallerHandle wraps a descriptor whose lifetime the caller manages.
// A negative fd yields NoHandle.
func CallerHandle(fd int) Handle {
	if fd < 0 {
		return NoHandle
	}
	return Handle{fd: fd, valid: true}
}

// FromFD applies the raw descriptor convention: fd <= 0 means no descriptor
// was supplied, fd > 0 is a caller-owned descriptor.
func FromFD(fd int) Handle {
	if fd <= 0 {
		return NoHandle
	}
	return Handle{fd: fd, valid: true}
}

// IsSet reports whether h carries a caller-owned descriptor.
func (h Handle) IsSet() bool {
	return h.valid
}

// FD returns the descriptor, or -1 for NoHandle.
func (h Handle) FD() int {
	if !h.valid {
		return -1
	}
	return h.fd
}

// Handles caches one descriptor per attribute of a core.
type Handles [numAttributes]Handle

// Get returns the handle cached for attr, or NoHandle.
func (hs *Handles) Get(attr Attribute) Handle {
	if hs == nil || !attr.Valid() {
		return NoHandle
	}
	return hs[attr]
}

// Open opens attr on core for reuse across calls. A negative flags value
// selects attr.DefaultFlags(). The returned handle must be released with
// Close.
func (c *Client) Open(core uint32, attr Attribute, flags int) (Handle, error) {
	path, err := c.resolve(core, attr)
	if err != nil {
		return NoHandle, &AttributeError{Op: "open", Attribute: attr, Core: core, Err: err}
	}
	if flags < 0 {
		flags = attr.DefaultFlags()
	}
	fd, err := c.sys.Open(path, flags)
	if err != nil {
		return NoHandle, &AttributeError{Op: "open", Attribute: attr, Core: core, Path: path, Err: err}
	}
	return Handle{fd: fd, valid: true}, nil
}

// Close closes a handle returned by Open. Closing NoHandle does nothing.
func (c *Client) Close(h Handle) error {
	if !h.valid {
		return nil
	}
	return c.sys.Close(h.fd)
}

// OpenAll opens every readable attribute of core with flags (negative for
// each attribute's default). Attributes the running driver does not provide,
// or that the caller may not open, are left as NoHandle so the accessors
// report the failure per attribute.
func (c *Client) OpenAll(core uint32, flags int) (*Handles, error) {
	hs := &Handles{}
	for _, attr := range Attributes() {
		if !attr.Readable() {
			continue
		}
		h, err := c.Open(core, attr, flags)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
				c.log.V(4).Info("attribute not cached", "cpu", core, "attribute", attr.String(), "reason", err.Error())
				continue
			}
			if cerr := c.CloseAll(hs); cerr != nil {
				c.log.Error(cerr, "failed to release partially opened handles", "cpu", core)
			}
			return nil, err
		}
		hs[attr] = h
	}
	return hs, nil
}

// CloseAll closes every handle in hs and resets them to NoHandle.
func (c *Client) CloseAll(hs *Handles) error {
	if hs == nil {
		return nil
	}
	var errs []error
	for attr := range hs {
		if err := c.Close(hs[attr]); err != nil {
			errs = append(errs, err)
		}
		hs[attr] = NoHandle
	}
	return utilerrors.NewAggregate(errs)
}

// acquire returns the descriptor to use for one operation and whether this
// package owns it.
func (c *Client) acquire(h Handle, core uint32, attr Attribute, flags int) (fd int, path string, owned bool, err error) {
	if h.valid {
		return h.fd, "", false, nil
	}
	path, err = c.resolve(core, attr)
	if err != nil {
		return -1, "", false, err
	}
	fd, err = c.sys.Open(path, flags)
	if err != nil {
		c.log.V(4).Info("open failed", "path", path, "error", err.Error())
		return -1, path, false, err
	}
	return fd, path, true, nil
}

// release closes fd when it was opened by acquire. A close failure is logged
// and dropped so it cannot mask the result of the operation.
func (c *Client) release(fd int, owned bool, path string) {
	if !owned {
		return
	}
	if err := c.sys.Close(fd); err != nil {
		c.log.Error(err, "failed to close attribute file", "path", path, "fd", fd)
	}
}

// do runs fn against the descriptor for attr and wraps any failure.
func (c *Client) do(op string, h Handle, core uint32, attr Attribute, flags int, fn func(fd int) error) error {
	fd, path, owned, err := c.acquire(h, core, attr, flags)
	if err != nil {
		return &AttributeError{Op: op, Attribute: attr, Core: core, Path: path, Err: err}
	}
	defer c.release(fd, owned, path)

	if err := fn(fd); err != nil {
		return &AttributeError{Op: op, Attribute: attr, Core: core, Path: path, Err: err}
	}
	return nil
}
