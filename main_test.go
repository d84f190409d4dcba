package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/cpufreq-bindings/pkg/cpufreq"
	"github.com/intel/cpufreq-bindings/pkg/cpufreq/cpufreqtest"
)

func runCLI(t *testing.T, opts options) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(logr.NewContext(context.Background(), logr.Discard()), opts, &out, logr.Discard())
	return out.String(), err
}

func TestRunText(t *testing.T) {
	tree := cpufreqtest.NewTree(t)
	tree.Populate(0, 1)
	tree.Remove(1, cpufreq.BiosLimit)

	for _, cacheFDs := range []bool{false, true} {
		out, err := runCLI(t, options{cpus: "0-1", output: "text", sysfsRoot: tree.Root, cacheFDs: cacheFDs})
		require.NoError(t, err)

		assert.Contains(t, out, "cpu0:\n  affected_cpus: 0-3\n  bios_limit: 3600000\n")
		assert.Contains(t, out, "cpu1:\n  affected_cpus: 0-3\n  bios_limit: no such file or directory\n")
		assert.Contains(t, out, "  scaling_available_frequencies: 3600000 2400000 1600000 800000\n")
		assert.Contains(t, out, "  scaling_available_governors: performance powersave userspace\n")
		assert.Contains(t, out, "  scaling_driver: acpi-cpufreq\n")
		assert.NotContains(t, out, "scaling_setspeed")
	}
}

func TestRunRootFromEnvironment(t *testing.T) {
	tree := cpufreqtest.NewTree(t)
	tree.Populate(2)
	t.Setenv(sysfsRootEnv, tree.Root)

	out, err := runCLI(t, options{cpus: "2", output: "text"})
	require.NoError(t, err)
	assert.Contains(t, out, "cpu2:\n")
	assert.Contains(t, out, "  scaling_governor: userspace\n")
}

func TestRunStructuredOutput(t *testing.T) {
	tree := cpufreqtest.NewTree(t)
	tree.Populate(0)

	out, err := runCLI(t, options{cpus: "0", output: "yaml", sysfsRoot: tree.Root})
	require.NoError(t, err)
	assert.Contains(t, out, "- affectedCPUs: 0-3\n")
	assert.Contains(t, out, "  scalingDriver: acpi-cpufreq\n")
	assert.Contains(t, out, "  scalingMaxFreq: 3600000\n")

	out, err = runCLI(t, options{cpus: "0", output: "json", sysfsRoot: tree.Root})
	require.NoError(t, err)
	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "userspace", decoded[0]["scalingGovernor"])
	assert.NotContains(t, decoded[0], "errors")

	_, err = runCLI(t, options{cpus: "0", output: "xml", sysfsRoot: tree.Root})
	assert.ErrorContains(t, err, `unknown output format "xml"`)
}

func TestRunSetters(t *testing.T) {
	tree := cpufreqtest.NewTree(t)
	tree.Populate(0, 1)

	out, err := runCLI(t, options{
		cpus:        "0-1",
		output:      "text",
		sysfsRoot:   tree.Root,
		minMHz:      1600,
		maxMHz:      2400,
		setspeedMHz: 1600,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "  scaling_max_freq: 2400000\n")
	assert.Contains(t, out, "  scaling_min_freq: 1600000\n")
	assert.Equal(t, "1600000", tree.Get(1, cpufreq.ScalingSetspeed)[:7])

	_, err = runCLI(t, options{cpus: "0", output: "text", sysfsRoot: tree.Root, governor: "performance"})
	require.NoError(t, err)
	assert.Equal(t, "performance", tree.Get(0, cpufreq.ScalingGovernor))

	// setspeed is refused once the governor is no longer userspace
	_, err = runCLI(t, options{cpus: "0", output: "text", sysfsRoot: tree.Root, setspeedMHz: 2400})
	assert.ErrorContains(t, err, "setspeed needs the userspace governor")
}

func TestRunInvalidCPUs(t *testing.T) {
	_, err := runCLI(t, options{cpus: "3-1", output: "text", sysfsRoot: t.TempDir()})
	assert.ErrorContains(t, err, "invalid -cpus")

	_, err = runCLI(t, options{cpus: "", output: "text", sysfsRoot: t.TempDir()})
	assert.ErrorContains(t, err, "no cpus selected")
}
