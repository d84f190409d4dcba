package exporter

import (
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/cpufreq-bindings/pkg/corestate"
	"github.com/intel/cpufreq-bindings/pkg/cpufreq"
	"github.com/intel/cpufreq-bindings/pkg/cpufreq/cpufreqtest"
	"github.com/intel/cpufreq-bindings/pkg/cpuset"
)

func newTestCollector(t *testing.T) (*cpufreqtest.Tree, *Collector) {
	tree := cpufreqtest.NewTree(t)
	tree.Populate(0, 1)
	tree.Set(1, cpufreq.ScalingGovernor, "performance\n")
	tree.Set(1, cpufreq.ScalingCurFreq, "3600000\n")
	tree.Remove(1, cpufreq.BiosLimit)
	return tree, NewCollector(tree.Client(), cpuset.NewCPUSet(0, 1), "node-1", corestate.DefaultOptions(), logr.Discard())
}

func TestCollectFrequencies(t *testing.T) {
	_, collector := newTestCollector(t)

	expected := `
# HELP cpufreq_scaling_cur_frequency_hertz Current frequency as last set by the governor.
# TYPE cpufreq_scaling_cur_frequency_hertz gauge
cpufreq_scaling_cur_frequency_hertz{cpu="0",node="node-1"} 2.4e+09
cpufreq_scaling_cur_frequency_hertz{cpu="1",node="node-1"} 3.6e+09
# HELP cpufreq_bios_limit_hertz Frequency limit imposed by the platform firmware.
# TYPE cpufreq_bios_limit_hertz gauge
cpufreq_bios_limit_hertz{cpu="0",node="node-1"} 3.6e+09
# HELP cpufreq_transition_latency_seconds Time to switch between two frequencies.
# TYPE cpufreq_transition_latency_seconds gauge
cpufreq_transition_latency_seconds{cpu="0",node="node-1"} 1e-05
cpufreq_transition_latency_seconds{cpu="1",node="node-1"} 1e-05
# HELP cpufreq_read_errors Attributes that could not be read during the last scrape.
# TYPE cpufreq_read_errors gauge
cpufreq_read_errors{cpu="0",node="node-1"} 0
cpufreq_read_errors{cpu="1",node="node-1"} 1
`
	err := testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"cpufreq_scaling_cur_frequency_hertz",
		"cpufreq_bios_limit_hertz",
		"cpufreq_transition_latency_seconds",
		"cpufreq_read_errors",
	)
	assert.NoError(t, err)
}

func TestCollectInfo(t *testing.T) {
	_, collector := newTestCollector(t)

	expected := `
# HELP cpufreq_scaling_info Scaling driver and governor of a CPU.
# TYPE cpufreq_scaling_info gauge
cpufreq_scaling_info{cpu="0",driver="acpi-cpufreq",governor="userspace",node="node-1"} 1
cpufreq_scaling_info{cpu="1",driver="acpi-cpufreq",governor="performance",node="node-1"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(expected), "cpufreq_scaling_info"))
}

func TestCollectReadsOnEveryScrape(t *testing.T) {
	tree, collector := newTestCollector(t)
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(collector))

	// 8 scalars + info + errors on cpu0, bios_limit missing on cpu1
	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 19, count)

	tree.Set(0, cpufreq.ScalingMaxFreq, "1600000\n")
	expected := `
# HELP cpufreq_scaling_max_frequency_hertz Maximum frequency the governor may select.
# TYPE cpufreq_scaling_max_frequency_hertz gauge
cpufreq_scaling_max_frequency_hertz{cpu="0",node="node-1"} 1.6e+09
cpufreq_scaling_max_frequency_hertz{cpu="1",node="node-1"} 3.6e+09
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "cpufreq_scaling_max_frequency_hertz"))
}

func TestCollectMissingPolicy(t *testing.T) {
	tree := cpufreqtest.NewTree(t)
	collector := NewCollector(tree.Client(), cpuset.NewCPUSet(7), "", corestate.DefaultOptions(), logr.Discard())

	assert.Equal(t, 1, testutil.CollectAndCount(collector))
	assert.Equal(t, 0, testutil.CollectAndCount(collector, "cpufreq_scaling_info"))
}
