// Package exporter publishes cpufreq snapshots as Prometheus metrics.
package exporter

import (
	"context"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/intel/cpufreq-bindings/pkg/corestate"
	"github.com/intel/cpufreq-bindings/pkg/cpufreq"
	"github.com/intel/cpufreq-bindings/pkg/cpuset"
)

const namespace = "cpufreq"

var labels = []string{"cpu", "node"}

type scalarMetric struct {
	attr cpufreq.Attribute
	desc *prometheus.Desc
	mul  float64
	div  float64
}

func newScalarMetric(attr cpufreq.Attribute, name, help string, mul, div float64) scalarMetric {
	return scalarMetric{
		attr: attr,
		desc: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil),
		mul:  mul,
		div:  div,
	}
}

func (m scalarMetric) value(v uint32) float64 {
	return float64(v) * m.mul / m.div
}

// frequencies are reported in kHz and latency in ns
var scalarMetrics = []scalarMetric{
	newScalarMetric(cpufreq.ScalingCurFreq, "scaling_cur_frequency_hertz", "Current frequency as last set by the governor.", 1e3, 1),
	newScalarMetric(cpufreq.ScalingMinFreq, "scaling_min_frequency_hertz", "Minimum frequency the governor may select.", 1e3, 1),
	newScalarMetric(cpufreq.ScalingMaxFreq, "scaling_max_frequency_hertz", "Maximum frequency the governor may select.", 1e3, 1),
	newScalarMetric(cpufreq.CPUInfoCurFreq, "cpuinfo_cur_frequency_hertz", "Current frequency reported by the hardware.", 1e3, 1),
	newScalarMetric(cpufreq.CPUInfoMinFreq, "cpuinfo_min_frequency_hertz", "Minimum operating frequency of the processor.", 1e3, 1),
	newScalarMetric(cpufreq.CPUInfoMaxFreq, "cpuinfo_max_frequency_hertz", "Maximum operating frequency of the processor.", 1e3, 1),
	newScalarMetric(cpufreq.BiosLimit, "bios_limit_hertz", "Frequency limit imposed by the platform firmware.", 1e3, 1),
	newScalarMetric(cpufreq.CPUInfoTransitionLatency, "transition_latency_seconds", "Time to switch between two frequencies.", 1, 1e9),
}

var (
	infoDesc = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "scaling_info"),
		"Scaling driver and governor of a CPU.", append(labels, "driver", "governor"), nil)
	readErrorsDesc = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "read_errors"),
		"Attributes that could not be read during the last scrape.", labels, nil)
)

// Collector reads the cpufreq attributes of its CPUs on every scrape.
type Collector struct {
	client   *cpufreq.Client
	cpus     cpuset.CPUSet
	nodeName string
	opts     corestate.Options
	log      logr.Logger
}

var _ prometheus.Collector = &Collector{}

func NewCollector(client *cpufreq.Client, cpus cpuset.CPUSet, nodeName string, opts corestate.Options, log logr.Logger) *Collector {
	return &Collector{
		client:   client,
		cpus:     cpus.Clone(),
		nodeName: nodeName,
		opts:     opts,
		log:      log,
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range scalarMetrics {
		ch <- m.desc
	}
	ch <- infoDesc
	ch <- readErrorsDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	states, err := corestate.ReadCores(context.Background(), c.client, c.cpus, c.opts)
	if err != nil {
		c.log.Error(err, "failed to read cpufreq state")
		return
	}
	for _, s := range states {
		cpu := strconv.FormatUint(uint64(s.CPU), 10)
		for _, m := range scalarMetrics {
			v, ok := s.Scalar(m.attr)
			if !ok {
				continue
			}
			ch <- prometheus.MustNewConstMetric(m.desc, prometheus.GaugeValue, m.value(v), cpu, c.nodeName)
		}
		if s.ScalingDriver != "" || s.ScalingGovernor != "" {
			ch <- prometheus.MustNewConstMetric(infoDesc, prometheus.GaugeValue, 1, cpu, c.nodeName, s.ScalingDriver, s.ScalingGovernor)
		}
		ch <- prometheus.MustNewConstMetric(readErrorsDesc, prometheus.GaugeValue, float64(len(s.Errors)), cpu, c.nodeName)
		if len(s.Errors) > 0 {
			c.log.V(4).Info("incomplete snapshot", "cpu", s.CPU, "errors", s.Errors)
		}
	}
}
