package frequency

import (
	"context"
	"io/fs"
	"math"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/cpufreq-bindings/pkg/cpufreq"
	"github.com/intel/cpufreq-bindings/pkg/cpufreq/cpufreqtest"
	"github.com/intel/cpufreq-bindings/pkg/cpuset"
	"github.com/intel/cpufreq-bindings/pkg/util"
)

func testContext() context.Context {
	return logr.NewContext(context.Background(), logr.Discard())
}

func readScalar(t *testing.T, client *cpufreq.Client, cpu uint32, attr cpufreq.Attribute) uint32 {
	t.Helper()
	v, err := client.ReadUint32(cpufreq.NoHandle, cpu, attr)
	require.NoError(t, err)
	return v
}

func TestMHzToKHz(t *testing.T) {
	v, err := MHzToKHz(2400)
	assert.NoError(t, err)
	assert.Equal(t, uint32(2400000), v)

	v, err = MHzToKHz(math.MaxUint32 / 1000)
	assert.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32/1000*1000), v)

	_, err = MHzToKHz(math.MaxUint32/1000 + 1)
	assert.Error(t, err)
	_, err = MHzToKHz(-1)
	assert.Error(t, err)
}

func TestAdjustCPUFrequency(t *testing.T) {
	tree := cpufreqtest.NewTree(t)
	tree.Populate(0, 1)
	client := tree.Client()

	err := AdjustCPUFrequency(testContext(), client, cpuset.NewCPUSet(0, 1), 2400, MaxBound)
	require.NoError(t, err)
	assert.Equal(t, uint32(2400000), readScalar(t, client, 0, cpufreq.ScalingMaxFreq))
	assert.Equal(t, uint32(2400000), readScalar(t, client, 1, cpufreq.ScalingMaxFreq))

	err = AdjustCPUFrequency(testContext(), client, cpuset.NewCPUSet(1), 1600, MinBound)
	require.NoError(t, err)
	assert.Equal(t, uint32(1600000), readScalar(t, client, 1, cpufreq.ScalingMinFreq))
	assert.Equal(t, uint32(800000), readScalar(t, client, 0, cpufreq.ScalingMinFreq))
}

func TestAdjustCPUFrequencyAggregatesErrors(t *testing.T) {
	tree := cpufreqtest.NewTree(t)
	tree.Populate(0)
	client := tree.Client()

	// cpu2 and cpu3 have no cpufreq policy
	err := AdjustCPUFrequency(context.Background(), client, cpuset.MustParse("0,2-3"), 3000, MaxBound)
	require.Error(t, err)
	assert.Len(t, util.UnpackErrsToStrings(err), 2)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, uint32(3000000), readScalar(t, client, 0, cpufreq.ScalingMaxFreq))
}

func TestSetRange(t *testing.T) {
	tree := cpufreqtest.NewTree(t)
	tree.Populate(0)
	client := tree.Client()

	require.NoError(t, SetRange(testContext(), client, 0, 1600000, 2400000))
	assert.Equal(t, uint32(1600000), readScalar(t, client, 0, cpufreq.ScalingMinFreq))
	assert.Equal(t, uint32(2400000), readScalar(t, client, 0, cpufreq.ScalingMaxFreq))

	err := SetRange(testContext(), client, 0, 3600000, 2400000)
	assert.ErrorIs(t, err, ErrEmptyRange)
	assert.Equal(t, uint32(1600000), readScalar(t, client, 0, cpufreq.ScalingMinFreq))
}

func TestSetRangeMinFailure(t *testing.T) {
	tree := cpufreqtest.NewTree(t)
	tree.Populate(0, 1)
	tree.Remove(1, cpufreq.ScalingMinFreq)
	client := tree.Client()

	err := SetRangeAll(testContext(), client, cpuset.NewCPUSet(0, 1), 1600000, 2400000)
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Len(t, util.UnpackErrsToStrings(err), 1)

	// max is still written on the cpu whose min could not be
	assert.Equal(t, uint32(2400000), readScalar(t, client, 1, cpufreq.ScalingMaxFreq))
	assert.Equal(t, uint32(1600000), readScalar(t, client, 0, cpufreq.ScalingMinFreq))
}

func TestSetGovernor(t *testing.T) {
	tree := cpufreqtest.NewTree(t)
	tree.Populate(0, 1)
	client := tree.Client()

	governors, err := AvailableGovernors(client, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"performance", "powersave", "userspace"}, governors)

	require.NoError(t, SetGovernor(testContext(), client, cpuset.NewCPUSet(0, 1), "performance"))
	buf := make([]byte, 32)
	for _, cpu := range []uint32{0, 1} {
		_, err := client.ScalingGovernor(cpufreq.NoHandle, cpu, buf)
		require.NoError(t, err)
		assert.Equal(t, "performance", cpufreq.TokenString(buf))
	}

	err = SetGovernor(testContext(), client, cpuset.NewCPUSet(0), "schedutil")
	assert.ErrorContains(t, err, `governor "schedutil" not in`)
	_, err = client.ScalingGovernor(cpufreq.NoHandle, 0, buf)
	require.NoError(t, err)
	assert.Equal(t, "performance", cpufreq.TokenString(buf))
}

func TestSetSpeed(t *testing.T) {
	tree := cpufreqtest.NewTree(t)
	tree.Populate(0, 1)
	tree.Set(1, cpufreq.ScalingGovernor, "powersave\n")
	client := tree.Client()

	err := SetSpeed(testContext(), client, cpuset.NewCPUSet(0, 1), 1600000)
	require.Error(t, err)
	assert.ErrorContains(t, err, `cpu1: setspeed needs the userspace governor, not "powersave"`)
	assert.Len(t, util.UnpackErrsToStrings(err), 1)

	assert.Equal(t, "1600000", tree.Get(0, cpufreq.ScalingSetspeed)[:7])
	assert.Equal(t, "2400000\n", tree.Get(1, cpufreq.ScalingSetspeed))
}
