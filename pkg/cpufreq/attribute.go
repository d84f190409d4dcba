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
	"fmt"

	"golang.org/x/sys/unix"
)

// Attribute identifies one cpufreq pseudo-file of a core.
type Attribute int

const (
	AffectedCPUs Attribute = iota
	BiosLimit
	CPUInfoCurFreq
	CPUInfoMaxFreq
	CPUInfoMinFreq
	CPUInfoTransitionLatency
	RelatedCPUs
	ScalingAvailableFrequencies
	ScalingAvailableGovernors
	ScalingCurFreq
	ScalingDriver
	ScalingGovernor
	ScalingMaxFreq
	ScalingMinFreq
	ScalingSetspeed

	numAttributes
)

// Access is the access mode the kernel grants on an attribute.
type Access int

const (
	ReadOnly Access = iota
	ReadWrite
)

// Shape describes how the text of an attribute is laid out.
type Shape int

const (
	// Scalar is a single decimal integer.
	Scalar Shape = iota
	// IntegerArray is a whitespace separated list of decimal integers.
	IntegerArray
	// TokenArray is a whitespace separated list of short identifiers.
	TokenArray
	// Text is a single line of text.
	Text
)

type attributeInfo struct {
	name   string
	access Access
	shape  Shape
}

var attributes = [numAttributes]attributeInfo{
	AffectedCPUs:                {"affected_cpus", ReadOnly, IntegerArray},
	BiosLimit:                   {"bios_limit", ReadOnly, Scalar},
	CPUInfoCurFreq:              {"cpuinfo_cur_freq", ReadOnly, Scalar},
	CPUInfoMaxFreq:              {"cpuinfo_max_freq", ReadOnly, Scalar},
	CPUInfoMinFreq:              {"cpuinfo_min_freq", ReadOnly, Scalar},
	CPUInfoTransitionLatency:    {"cpuinfo_transition_latency", ReadOnly, Scalar},
	RelatedCPUs:                 {"related_cpus", ReadOnly, IntegerArray},
	ScalingAvailableFrequencies: {"scaling_available_frequencies", ReadOnly, IntegerArray},
	ScalingAvailableGovernors:   {"scaling_available_governors", ReadOnly, TokenArray},
	ScalingCurFreq:              {"scaling_cur_freq", ReadOnly, Scalar},
	ScalingDriver:               {"scaling_driver", ReadOnly, Text},
	ScalingGovernor:             {"scaling_governor", ReadWrite, Text},
	ScalingMaxFreq:              {"scaling_max_freq", ReadWrite, Scalar},
	ScalingMinFreq:              {"scaling_min_freq", ReadWrite, Scalar},
	ScalingSetspeed:             {"scaling_setspeed", ReadWrite, Scalar},
}

// Valid reports whether a is one of the known attributes.
func (a Attribute) Valid() bool {
	return a >= 0 && a < numAttributes
}

// String returns the pseudo-file name of the attribute.
func (a Attribute) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Attribute(%d)", int(a))
	}
	return attributes[a].name
}

func (a Attribute) Access() Access {
	if !a.Valid() {
		return ReadOnly
	}
	return attributes[a].access
}

func (a Attribute) Shape() Shape {
	if !a.Valid() {
		return Text
	}
	return attributes[a].shape
}

// Readable reports whether the layer exposes read semantics for a.
// scaling_setspeed is write-only from the point of view of this package.
func (a Attribute) Readable() bool {
	return a.Valid() && a != ScalingSetspeed
}

// Writable reports whether a supports the set operations.
func (a Attribute) Writable() bool {
	return a.Access() == ReadWrite
}

// DefaultFlags returns the flags Open and OpenAll use when given negative
// flags: read-write for writable attributes, read-only otherwise. Accessors
// called with NoHandle do not use it; they open read-only to read and
// read-write to write.
func (a Attribute) DefaultFlags() int {
	if a.Writable() {
		return unix.O_RDWR
	}
	return unix.O_RDONLY
}

// Attributes returns every known attribute in declaration order.
func Attributes() []Attribute {
	all := make([]Attribute, 0, numAttributes)
	for a := Attribute(0); a < numAttributes; a++ {
		all = append(all, a)
	}
	return all
}

// ParseAttribute maps a pseudo-file name back to its Attribute.
func ParseAttribute(name string) (Attribute, error) {
	for a := Attribute(0); a < numAttributes; a++ {
		if attributes[a].name == name {
			return a, nil
		}
	}
	return -1, fmt.Errorf("unknown cpufreq attribute %q: %w", name, ErrInvalidAttribute)
}
