/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cpufreq

import (
	"golang.org/x/sys/unix"
)

func (c *Client) check(op string, core uint32, attr Attribute, shape Shape, write bool) error {
	ok := attr.Valid() && attr.Shape() == shape
	if write {
		ok = ok && attr.Writable()
	} else {
		ok = ok && attr.Readable()
	}
	if !ok {
		return &AttributeError{Op: op, Attribute: attr, Core: core, Err: ErrInvalidAttribute}
	}
	return nil
}

// ReadUint32 reads a scalar attribute. On error the value is 0; a 0 with a
// nil error is a value the kernel reported.
func (c *Client) ReadUint32(h Handle, core uint32, attr Attribute) (uint32, error) {
	if err := c.check("read", core, attr, Scalar, false); err != nil {
		return 0, err
	}
	var v uint32
	err := c.do("read", h, core, attr, unix.O_RDONLY, func(fd int) error {
		var err error
		v, err = c.readUint32(fd)
		return err
	})
	if err != nil {
		return 0, err
	}
	return v, nil
}

// ReadUint32s reads an integer array attribute into dst and returns the
// number of values stored. If the attribute holds more than len(dst) values
// the result is 0 and ErrCapacity.
func (c *Client) ReadUint32s(h Handle, core uint32, attr Attribute, dst []uint32) (int, error) {
	if err := c.check("read", core, attr, IntegerArray, false); err != nil {
		return 0, err
	}
	var n int
	err := c.do("read", h, core, attr, unix.O_RDONLY, func(fd int) error {
		var err error
		n, err = c.readUint32s(fd, dst)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ReadTokens reads a token array attribute into the fixed width slots of dst
// (see NewTokenTable) and returns the number of slots used.
func (c *Client) ReadTokens(h Handle, core uint32, attr Attribute, dst [][]byte) (int, error) {
	if err := c.check("read", core, attr, TokenArray, false); err != nil {
		return 0, err
	}
	var n int
	err := c.do("read", h, core, attr, unix.O_RDONLY, func(fd int) error {
		var err error
		n, err = c.readTokens(fd, dst)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ReadString reads a text attribute into dst with its newline replaced by a
// NUL byte and returns the number of bytes read.
func (c *Client) ReadString(h Handle, core uint32, attr Attribute, dst []byte) (int, error) {
	if err := c.check("read", core, attr, Text, false); err != nil {
		return 0, err
	}
	var n int
	err := c.do("read", h, core, attr, unix.O_RDONLY, func(fd int) error {
		var err error
		n, err = c.readString(fd, dst)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// WriteUint32 stores v in a writable scalar attribute and returns the number
// of bytes written.
func (c *Client) WriteUint32(h Handle, core uint32, attr Attribute, v uint32) (int, error) {
	if err := c.check("write", core, attr, Scalar, true); err != nil {
		return 0, err
	}
	var n int
	err := c.do("write", h, core, attr, unix.O_RDWR, func(fd int) error {
		var err error
		n, err = c.writeUint32(fd, v)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// WriteString stores s verbatim in a writable text attribute.
func (c *Client) WriteString(h Handle, core uint32, attr Attribute, s []byte) (int, error) {
	if err := c.check("write", core, attr, Text, true); err != nil {
		return 0, err
	}
	var n int
	err := c.do("write", h, core, attr, unix.O_RDWR, func(fd int) error {
		var err error
		n, err = c.writeString(fd, s)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// AffectedCPUs reads the CPUs that need software coordination with core.
func (c *Client) AffectedCPUs(h Handle, core uint32, dst []uint32) (int, error) {
	return c.ReadUint32s(h, core, AffectedCPUs, dst)
}

// BiosLimit reads the frequency limit imposed by the platform firmware.
func (c *Client) BiosLimit(h Handle, core uint32) (uint32, error) {
	return c.ReadUint32(h, core, BiosLimit)
}

// CPUInfoCurFreq reads the frequency reported by the hardware. The kernel
// restricts this file to root.
func (c *Client) CPUInfoCurFreq(h Handle, core uint32) (uint32, error) {
	return c.ReadUint32(h, core, CPUInfoCurFreq)
}

func (c *Client) CPUInfoMaxFreq(h Handle, core uint32) (uint32, error) {
	return c.ReadUint32(h, core, CPUInfoMaxFreq)
}

func (c *Client) CPUInfoMinFreq(h Handle, core uint32) (uint32, error) {
	return c.ReadUint32(h, core, CPUInfoMinFreq)
}

// CPUInfoTransitionLatency reads the switching latency in nanoseconds.
// Drivers that do not know it report math.MaxUint32.
func (c *Client) CPUInfoTransitionLatency(h Handle, core uint32) (uint32, error) {
	return c.ReadUint32(h, core, CPUInfoTransitionLatency)
}

// RelatedCPUs reads every CPU sharing a frequency policy with core.
func (c *Client) RelatedCPUs(h Handle, core uint32, dst []uint32) (int, error) {
	return c.ReadUint32s(h, core, RelatedCPUs, dst)
}

func (c *Client) ScalingAvailableFrequencies(h Handle, core uint32, dst []uint32) (int, error) {
	return c.ReadUint32s(h, core, ScalingAvailableFrequencies, dst)
}

func (c *Client) ScalingAvailableGovernors(h Handle, core uint32, dst [][]byte) (int, error) {
	return c.ReadTokens(h, core, ScalingAvailableGovernors, dst)
}

func (c *Client) ScalingCurFreq(h Handle, core uint32) (uint32, error) {
	return c.ReadUint32(h, core, ScalingCurFreq)
}

func (c *Client) ScalingDriver(h Handle, core uint32, dst []byte) (int, error) {
	return c.ReadString(h, core, ScalingDriver, dst)
}

func (c *Client) ScalingGovernor(h Handle, core uint32, dst []byte) (int, error) {
	return c.ReadString(h, core, ScalingGovernor, dst)
}

func (c *Client) SetScalingGovernor(h Handle, core uint32, governor []byte) (int, error) {
	return c.WriteString(h, core, ScalingGovernor, governor)
}

func (c *Client) ScalingMaxFreq(h Handle, core uint32) (uint32, error) {
	return c.ReadUint32(h, core, ScalingMaxFreq)
}

func (c *Client) SetScalingMaxFreq(h Handle, core uint32, freq uint32) (int, error) {
	return c.WriteUint32(h, core, ScalingMaxFreq, freq)
}

func (c *Client) ScalingMinFreq(h Handle, core uint32) (uint32, error) {
	return c.ReadUint32(h, core, ScalingMinFreq)
}

func (c *Client) SetScalingMinFreq(h Handle, core uint32, freq uint32) (int, error) {
	return c.WriteUint32(h, core, ScalingMinFreq, freq)
}

// SetScalingSetspeed requests freq from the userspace governor.
func (c *Client) SetScalingSetspeed(h Handle, core uint32, freq uint32) (int, error) {
	return c.WriteUint32(h, core, ScalingSetspeed, freq)
}
