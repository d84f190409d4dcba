// Package topology finds the logical CPUs of the host and the cpufreq
// policies they are grouped into.
package topology

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-logr/logr"
	"github.com/jaypipes/ghw"

	"github.com/intel/cpufreq-bindings/pkg/cpufreq"
	"github.com/intel/cpufreq-bindings/pkg/cpuset"
)

// maxCPUs bounds the related_cpus list of a single policy.
const maxCPUs = 8192

// cpuInfo is swapped out by tests.
var cpuInfo = func() (*ghw.CPUInfo, error) {
	return ghw.CPU(ghw.WithDisableWarnings())
}

// LogicalCPUs returns every logical processor ghw reports for the host.
func LogicalCPUs() (cpuset.CPUSet, error) {
	info, err := cpuInfo()
	if err != nil {
		return cpuset.NewCPUSet(), fmt.Errorf("failed to read cpu topology: %w", err)
	}
	b := cpuset.NewBuilder()
	for _, proc := range info.Processors {
		for _, core := range proc.Cores {
			b.Add(core.LogicalProcessors...)
		}
	}
	return b.Result(), nil
}

// FrequencyDomains groups cpus by the policy their related_cpus reports, so
// a setting can be written once per policy. CPUs without a cpufreq
// directory are skipped.
func FrequencyDomains(client *cpufreq.Client, cpus cpuset.CPUSet, log logr.Logger) ([]cpuset.CPUSet, error) {
	var domains []cpuset.CPUSet
	remaining := cpus.Clone()
	related := make([]uint32, maxCPUs)
	for !remaining.IsEmpty() {
		cpu := uint32(remaining.ToSlice()[0])
		n, err := client.RelatedCPUs(cpufreq.NoHandle, cpu, related)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.V(1).Info("cpu has no cpufreq policy", "cpu", cpu)
				remaining = remaining.Difference(cpuset.NewCPUSet(int(cpu)))
				continue
			}
			return nil, err
		}
		domain := cpuset.FromUint32(related[:n]).Union(cpuset.NewCPUSet(int(cpu)))
		remaining = remaining.Difference(domain)
		domains = append(domains, domain)
	}
	return domains, nil
}
