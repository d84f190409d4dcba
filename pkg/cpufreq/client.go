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

// Package cpufreq reads and writes the per-core cpufreq attributes Linux
// publishes under /sys/devices/system/cpu/cpu<N>/cpufreq.
//
// Every accessor takes a Handle. NoHandle makes the call open the
// attribute, transfer at offset zero and close it again. A handle obtained
// from Client.Open (or wrapped with CallerHandle) is reused as is and never
// closed by this package.
//
// Linux does not guarantee that every attribute exists; bios_limit and
// scaling_setspeed in particular depend on the driver and governor.
// Frequencies are in kHz.
package cpufreq

import (
	"strconv"

	"github.com/go-logr/logr"
	"k8s.io/klog/v2"
)

const (
	// DefaultRoot is the directory holding the cpu<N> entries.
	DefaultRoot = "/sys/devices/system/cpu"
	// MaxPathLen bounds the length of a resolved attribute path.
	MaxPathLen = 128
)

// Client resolves attribute paths below a root and performs the accesses.
// A Client holds no mutable state and may be shared between goroutines.
type Client struct {
	root string
	sys  sysFile
	log  logr.Logger
}

type Option func(*Client)

// WithRoot replaces DefaultRoot, e.g. for a chroot or a test tree.
func WithRoot(root string) Option {
	return func(c *Client) {
		c.root = root
	}
}

func WithLogger(log logr.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func withSysFile(sys sysFile) Option {
	return func(c *Client) {
		c.sys = sys
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		root: DefaultRoot,
		sys:  unixSysFile{},
		log:  klog.NewKlogr().WithName("cpufreq"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the directory the client resolves paths against.
func (c *Client) Root() string {
	return c.root
}

// Path returns the pseudo-file path of attr on core.
func (c *Client) Path(core uint32, attr Attribute) (string, error) {
	path, err := c.resolve(core, attr)
	if err != nil {
		return "", &AttributeError{Op: "resolve", Attribute: attr, Core: core, Err: err}
	}
	return path, nil
}

func (c *Client) resolve(core uint32, attr Attribute) (string, error) {
	if !attr.Valid() {
		return "", ErrInvalidAttribute
	}
	buf := make([]byte, 0, MaxPathLen)
	buf = append(buf, c.root...)
	buf = append(buf, "/cpu"...)
	buf = strconv.AppendUint(buf, uint64(core), 10)
	buf = append(buf, "/cpufreq/"...)
	buf = append(buf, attr.String()...)
	if len(buf) >= MaxPathLen {
		return "", ErrPathTooLong
	}
	return string(buf), nil
}
