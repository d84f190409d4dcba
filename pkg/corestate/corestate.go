// Package corestate takes point-in-time snapshots of the cpufreq attributes
// of one or more cores.
package corestate

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/intel/cpufreq-bindings/pkg/cpufreq"
	"github.com/intel/cpufreq-bindings/pkg/cpuset"
)

// Options bounds the buffers used for array attributes.
type Options struct {
	MaxCPUs        int
	MaxFrequencies int
	MaxGovernors   int
	GovernorWidth  int
	// Parallel limits the number of cores ReadCores reads at once. Zero
	// means runtime.NumCPU().
	Parallel int
}

func DefaultOptions() Options {
	return Options{
		MaxCPUs:        1024,
		MaxFrequencies: 32,
		MaxGovernors:   16,
		GovernorWidth:  32,
	}
}

// CoreState is a snapshot of one core. Scalars the core does not provide
// are nil and the failure is kept in Errors under the attribute name.
type CoreState struct {
	CPU uint32 `json:"cpu"`

	AffectedCPUs string `json:"affectedCPUs,omitempty"`
	RelatedCPUs  string `json:"relatedCPUs,omitempty"`

	BiosLimit                *uint32 `json:"biosLimit,omitempty"`
	CPUInfoCurFreq           *uint32 `json:"cpuinfoCurFreq,omitempty"`
	CPUInfoMaxFreq           *uint32 `json:"cpuinfoMaxFreq,omitempty"`
	CPUInfoMinFreq           *uint32 `json:"cpuinfoMinFreq,omitempty"`
	CPUInfoTransitionLatency *uint32 `json:"cpuinfoTransitionLatency,omitempty"`
	ScalingCurFreq           *uint32 `json:"scalingCurFreq,omitempty"`
	ScalingMaxFreq           *uint32 `json:"scalingMaxFreq,omitempty"`
	ScalingMinFreq           *uint32 `json:"scalingMinFreq,omitempty"`

	ScalingAvailableFrequencies []uint32 `json:"scalingAvailableFrequencies,omitempty"`
	ScalingAvailableGovernors   []string `json:"scalingAvailableGovernors,omitempty"`
	ScalingDriver               string   `json:"scalingDriver,omitempty"`
	ScalingGovernor             string   `json:"scalingGovernor,omitempty"`

	Errors map[string]string `json:"errors,omitempty"`

	errs map[cpufreq.Attribute]error
}

// Scalar returns the value of a scalar attribute and whether it was read.
func (s *CoreState) Scalar(attr cpufreq.Attribute) (uint32, bool) {
	if p := s.scalar(attr); p != nil && *p != nil {
		return **p, true
	}
	return 0, false
}

// Err returns the error recorded for attr, if any.
func (s *CoreState) Err(attr cpufreq.Attribute) error {
	return s.errs[attr]
}

// Failed returns the failures of the snapshot as a single aggregate, or nil.
func (s *CoreState) Failed() error {
	errs := make([]error, 0, len(s.errs))
	for _, attr := range cpufreq.Attributes() {
		if err, ok := s.errs[attr]; ok {
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}

func (s *CoreState) scalar(attr cpufreq.Attribute) **uint32 {
	switch attr {
	case cpufreq.BiosLimit:
		return &s.BiosLimit
	case cpufreq.CPUInfoCurFreq:
		return &s.CPUInfoCurFreq
	case cpufreq.CPUInfoMaxFreq:
		return &s.CPUInfoMaxFreq
	case cpufreq.CPUInfoMinFreq:
		return &s.CPUInfoMinFreq
	case cpufreq.CPUInfoTransitionLatency:
		return &s.CPUInfoTransitionLatency
	case cpufreq.ScalingCurFreq:
		return &s.ScalingCurFreq
	case cpufreq.ScalingMaxFreq:
		return &s.ScalingMaxFreq
	case cpufreq.ScalingMinFreq:
		return &s.ScalingMinFreq
	}
	return nil
}

func (s *CoreState) record(attr cpufreq.Attribute, err error) {
	if s.errs == nil {
		s.errs = map[cpufreq.Attribute]error{}
		s.Errors = map[string]string{}
	}
	s.errs[attr] = err
	s.Errors[attr.String()] = err.Error()
}

// Read snapshots every readable attribute of cpu. Handles cached with
// client.OpenAll are used where present; hs may be nil.
func Read(client *cpufreq.Client, cpu uint32, hs *cpufreq.Handles, opts Options) *CoreState {
	s := &CoreState{CPU: cpu}

	cpus := make([]uint32, opts.MaxCPUs)
	for _, attr := range []cpufreq.Attribute{cpufreq.AffectedCPUs, cpufreq.RelatedCPUs} {
		n, err := client.ReadUint32s(hs.Get(attr), cpu, attr, cpus)
		if err != nil {
			s.record(attr, err)
			continue
		}
		set := cpuset.FromUint32(cpus[:n]).String()
		if attr == cpufreq.AffectedCPUs {
			s.AffectedCPUs = set
		} else {
			s.RelatedCPUs = set
		}
	}

	for _, attr := range cpufreq.Attributes() {
		p := s.scalar(attr)
		if p == nil {
			continue
		}
		v, err := client.ReadUint32(hs.Get(attr), cpu, attr)
		if err != nil {
			s.record(attr, err)
			continue
		}
		*p = &v
	}

	freqs := make([]uint32, opts.MaxFrequencies)
	if n, err := client.ScalingAvailableFrequencies(hs.Get(cpufreq.ScalingAvailableFrequencies), cpu, freqs); err != nil {
		s.record(cpufreq.ScalingAvailableFrequencies, err)
	} else {
		s.ScalingAvailableFrequencies = freqs[:n:n]
	}

	table := cpufreq.NewTokenTable(opts.MaxGovernors, opts.GovernorWidth)
	if n, err := client.ScalingAvailableGovernors(hs.Get(cpufreq.ScalingAvailableGovernors), cpu, table); err != nil {
		s.record(cpufreq.ScalingAvailableGovernors, err)
	} else {
		s.ScalingAvailableGovernors = cpufreq.TokenStrings(table, n)
	}

	text := make([]byte, cpufreq.TokenMaxLen)
	if _, err := client.ScalingDriver(hs.Get(cpufreq.ScalingDriver), cpu, text); err != nil {
		s.record(cpufreq.ScalingDriver, err)
	} else {
		s.ScalingDriver = cpufreq.TokenString(text)
	}
	if _, err := client.ScalingGovernor(hs.Get(cpufreq.ScalingGovernor), cpu, text); err != nil {
		s.record(cpufreq.ScalingGovernor, err)
	} else {
		s.ScalingGovernor = cpufreq.TokenString(text)
	}

	return s
}

// ReadCores snapshots every cpu in cpus, opts.Parallel at a time, each
// attribute through its own ephemeral descriptor. The result is ordered by
// cpu. The only error returned is the context's.
func ReadCores(ctx context.Context, client *cpufreq.Client, cpus cpuset.CPUSet, opts Options) ([]*CoreState, error) {
	list := cpus.ToSliceUint32()
	states := make([]*CoreState, len(list))

	limit := opts.Parallel
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, cpu := range list {
		i, cpu := i, cpu
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			states[i] = Read(client, cpu, nil, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return states, nil
}
