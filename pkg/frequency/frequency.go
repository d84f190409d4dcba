package frequency

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/intel/cpufreq-bindings/pkg/cpufreq"
	"github.com/intel/cpufreq-bindings/pkg/cpuset"
	"github.com/intel/cpufreq-bindings/pkg/util"
)

// Bound selects the scaling limit AdjustCPUFrequency writes.
type Bound int

const (
	MaxBound Bound = iota
	MinBound
)

const (
	userspaceGovernor = "userspace"
	maxGovernors      = 16
)

var ErrEmptyRange = errors.New("minimum frequency above maximum")

func (b Bound) attribute() cpufreq.Attribute {
	if b == MinBound {
		return cpufreq.ScalingMinFreq
	}
	return cpufreq.ScalingMaxFreq
}

// MHzToKHz converts a frequency in MHz to the kHz unit of the cpufreq files.
func MHzToKHz(freqMHz int) (uint32, error) {
	if freqMHz < 0 || freqMHz > math.MaxUint32/1000 {
		return 0, fmt.Errorf("frequency %d MHz out of range", freqMHz)
	}
	return uint32(freqMHz) * 1000, nil
}

// AdjustCPUFrequency writes freqMHz to the scaling limit selected by bound
// on every cpu in cpus.
func AdjustCPUFrequency(ctx context.Context, client *cpufreq.Client, cpus cpuset.CPUSet, freqMHz int, bound Bound) error {
	logger := logr.FromContextOrDiscard(ctx)

	freq, err := MHzToKHz(freqMHz)
	if err != nil {
		return err
	}
	attr := bound.attribute()
	var errs []error
	for _, cpu := range cpus.ToSliceUint32() {
		if _, err := client.WriteUint32(cpufreq.NoHandle, cpu, attr, freq); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.V(1).Info("adjusted frequency", "cpu", cpu, "attribute", attr.String(), "kHz", freq)
	}
	return utilerrors.NewAggregate(errs)
}

// SetRange sets scaling_min_freq and scaling_max_freq of cpu. Either write
// may be rejected while the other still holds its old value, so min is
// written again if it failed before max was updated.
func SetRange(ctx context.Context, client *cpufreq.Client, cpu uint32, minKHz, maxKHz uint32) error {
	logger := logr.FromContextOrDiscard(ctx)
	if minKHz > maxKHz {
		return fmt.Errorf("cpu%d: %d kHz > %d kHz: %w", cpu, minKHz, maxKHz, ErrEmptyRange)
	}

	_, minErr := client.SetScalingMinFreq(cpufreq.NoHandle, cpu, minKHz)
	if _, err := client.SetScalingMaxFreq(cpufreq.NoHandle, cpu, maxKHz); err != nil {
		return utilerrors.NewAggregate([]error{minErr, err})
	}
	if minErr != nil {
		logger.V(1).Info("retrying minimum frequency after raising maximum", "cpu", cpu, "error", minErr.Error())
		if _, err := client.SetScalingMinFreq(cpufreq.NoHandle, cpu, minKHz); err != nil {
			return err
		}
	}
	logger.V(1).Info("set frequency range", "cpu", cpu, "minKHz", minKHz, "maxKHz", maxKHz)
	return nil
}

// SetRangeAll applies SetRange to every cpu in cpus.
func SetRangeAll(ctx context.Context, client *cpufreq.Client, cpus cpuset.CPUSet, minKHz, maxKHz uint32) error {
	var errs []error
	for _, cpu := range cpus.ToSliceUint32() {
		if err := SetRange(ctx, client, cpu, minKHz, maxKHz); err != nil {
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}

// AvailableGovernors lists the governors cpu can switch to.
func AvailableGovernors(client *cpufreq.Client, cpu uint32) ([]string, error) {
	table := cpufreq.NewTokenTable(maxGovernors, cpufreq.TokenMaxLen)
	n, err := client.ScalingAvailableGovernors(cpufreq.NoHandle, cpu, table)
	if err != nil {
		return nil, err
	}
	return cpufreq.TokenStrings(table, n), nil
}

// SetGovernor switches every cpu in cpus to governor after checking that
// the cpu offers it.
func SetGovernor(ctx context.Context, client *cpufreq.Client, cpus cpuset.CPUSet, governor string) error {
	logger := logr.FromContextOrDiscard(ctx)
	var errs []error
	for _, cpu := range cpus.ToSliceUint32() {
		available, err := AvailableGovernors(client, cpu)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !util.StringInStringList(governor, available) {
			errs = append(errs, fmt.Errorf("cpu%d: governor %q not in %v", cpu, governor, available))
			continue
		}
		if _, err := client.SetScalingGovernor(cpufreq.NoHandle, cpu, []byte(governor)); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.V(1).Info("set governor", "cpu", cpu, "governor", governor)
	}
	return utilerrors.NewAggregate(errs)
}

// SetSpeed writes kHz to scaling_setspeed of every cpu in cpus. Only the
// userspace governor accepts it.
func SetSpeed(ctx context.Context, client *cpufreq.Client, cpus cpuset.CPUSet, kHz uint32) error {
	logger := logr.FromContextOrDiscard(ctx)
	governor := make([]byte, cpufreq.TokenMaxLen)
	var errs []error
	for _, cpu := range cpus.ToSliceUint32() {
		if _, err := client.ScalingGovernor(cpufreq.NoHandle, cpu, governor); err != nil {
			errs = append(errs, err)
			continue
		}
		if current := cpufreq.TokenString(governor); current != userspaceGovernor {
			errs = append(errs, fmt.Errorf("cpu%d: setspeed needs the %s governor, not %q", cpu, userspaceGovernor, current))
			continue
		}
		if _, err := client.SetScalingSetspeed(cpufreq.NoHandle, cpu, kHz); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.V(1).Info("set speed", "cpu", cpu, "kHz", kHz)
	}
	return utilerrors.NewAggregate(errs)
}
