// Package cpufreqtest builds cpufreq directory trees for tests of packages
// that sit on top of cpufreq.Client.
package cpufreqtest

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/go-logr/logr"

	"github.com/intel/cpufreq-bindings/pkg/cpufreq"
)

// Typical is the attribute set of an acpi-cpufreq policy covering cpus 0-3.
var Typical = map[cpufreq.Attribute]string{
	cpufreq.AffectedCPUs:                "0 1 2 3\n",
	cpufreq.BiosLimit:                   "3600000\n",
	cpufreq.CPUInfoCurFreq:              "2400000\n",
	cpufreq.CPUInfoMaxFreq:              "3600000\n",
	cpufreq.CPUInfoMinFreq:              "800000\n",
	cpufreq.CPUInfoTransitionLatency:    "10000\n",
	cpufreq.RelatedCPUs:                 "0 1 2 3\n",
	cpufreq.ScalingAvailableFrequencies: "3600000 2400000 1600000 800000\n",
	cpufreq.ScalingAvailableGovernors:   "performance powersave userspace\n",
	cpufreq.ScalingCurFreq:              "2400000\n",
	cpufreq.ScalingDriver:               "acpi-cpufreq\n",
	cpufreq.ScalingGovernor:             "userspace\n",
	cpufreq.ScalingMaxFreq:              "3600000\n",
	cpufreq.ScalingMinFreq:              "800000\n",
	cpufreq.ScalingSetspeed:             "2400000\n",
}

// Tree is a cpufreq hierarchy rooted in a temporary directory.
type Tree struct {
	t    testing.TB
	Root string
}

func NewTree(t testing.TB) *Tree {
	t.Helper()
	return &Tree{t: t, Root: t.TempDir()}
}

// Client returns a client resolving paths inside the tree.
func (tr *Tree) Client() *cpufreq.Client {
	return cpufreq.New(cpufreq.WithRoot(tr.Root), cpufreq.WithLogger(logr.Discard()))
}

func (tr *Tree) path(cpu int, attr cpufreq.Attribute) string {
	return filepath.Join(tr.Root, "cpu"+strconv.Itoa(cpu), "cpufreq", attr.String())
}

// Set writes content to attr of cpu, creating directories as needed.
func (tr *Tree) Set(cpu int, attr cpufreq.Attribute, content string) {
	tr.t.Helper()
	path := tr.path(cpu, attr)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tr.t.Fatal(err)
	}
	// truncate so shorter values do not leave stale digits behind
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		tr.t.Fatal(err)
	}
}

// Get returns the current content of attr on cpu.
func (tr *Tree) Get(cpu int, attr cpufreq.Attribute) string {
	tr.t.Helper()
	data, err := os.ReadFile(tr.path(cpu, attr))
	if err != nil {
		tr.t.Fatal(err)
	}
	return string(data)
}

// Remove deletes attr of cpu, as on a driver that does not provide it.
func (tr *Tree) Remove(cpu int, attr cpufreq.Attribute) {
	tr.t.Helper()
	if err := os.Remove(tr.path(cpu, attr)); err != nil {
		tr.t.Fatal(err)
	}
}

// Populate writes the Typical attribute set for every cpu given.
func (tr *Tree) Populate(cpus ...int) {
	tr.t.Helper()
	for _, cpu := range cpus {
		for attr, content := range Typical {
			tr.Set(cpu, attr, content)
		}
	}
}
