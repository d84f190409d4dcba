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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"

	"github.com/intel/cpufreq-bindings/pkg/corestate"
	"github.com/intel/cpufreq-bindings/pkg/cpufreq"
	"github.com/intel/cpufreq-bindings/pkg/cpuset"
	"github.com/intel/cpufreq-bindings/pkg/frequency"
	"github.com/intel/cpufreq-bindings/pkg/topology"
	"github.com/intel/cpufreq-bindings/pkg/util"
)

const sysfsRootEnv = "CPUFREQ_SYSFS_ROOT"

type options struct {
	cpus        string
	all         bool
	output      string
	governor    string
	minMHz      int
	maxMHz      int
	setspeedMHz int
	parallel    int
	sysfsRoot   string
	cacheFDs    bool
}

func newLogger() (logr.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapLog, err := cfg.Build()
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zapLog), nil
}

func main() {
	var opts options
	flag.StringVar(&opts.cpus, "cpus", "0", "CPUs to operate on, in list format such as 0-3,6.")
	flag.BoolVar(&opts.all, "all", false, "Operate on every logical CPU of the host.")
	flag.StringVar(&opts.output, "o", "text", "Output format: text, yaml or json.")
	flag.StringVar(&opts.governor, "governor", "", "Switch the selected CPUs to this governor.")
	flag.IntVar(&opts.minMHz, "min-mhz", 0, "Set scaling_min_freq, in MHz.")
	flag.IntVar(&opts.maxMHz, "max-mhz", 0, "Set scaling_max_freq, in MHz.")
	flag.IntVar(&opts.setspeedMHz, "setspeed-mhz", 0, "Request a frequency from the userspace governor, in MHz.")
	flag.IntVar(&opts.parallel, "parallel", 0, "Number of CPUs read at once. 0 uses one per logical CPU.")
	flag.StringVar(&opts.sysfsRoot, "sysfs-root", "", "Directory holding the cpu<N> directories. Defaults to $"+sysfsRootEnv+" or "+cpufreq.DefaultRoot+".")
	flag.BoolVar(&opts.cacheFDs, "cache-fds", false, "Open every attribute once per CPU and reuse the descriptors.")
	flag.Parse()

	setupLog, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to create logger: %v\n", err)
		os.Exit(1)
	}
	klog.SetLogger(setupLog.WithName("klog"))

	ctx := logr.NewContext(context.Background(), setupLog.WithName("frequency"))
	if err := run(ctx, opts, os.Stdout, setupLog.WithName("setup")); err != nil {
		for _, msg := range util.UnpackErrsToStrings(err) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer, log logr.Logger) error {
	root := opts.sysfsRoot
	if root == "" {
		root = os.Getenv(sysfsRootEnv)
	}
	if root == "" {
		root = cpufreq.DefaultRoot
	}
	client := cpufreq.New(cpufreq.WithRoot(root), cpufreq.WithLogger(log.WithName("cpufreq")))

	cpus, err := selectCPUs(opts)
	if err != nil {
		return err
	}
	log.V(1).Info("selected cpus", "cpus", cpus.String(), "root", root)

	if err := apply(ctx, client, cpus, opts); err != nil {
		return err
	}

	stateOpts := corestate.DefaultOptions()
	stateOpts.Parallel = opts.parallel
	states, err := readStates(ctx, client, cpus, stateOpts, opts.cacheFDs, log)
	if err != nil {
		return err
	}
	return printStates(out, opts.output, states)
}

func selectCPUs(opts options) (cpuset.CPUSet, error) {
	if opts.all {
		return topology.LogicalCPUs()
	}
	cpus, err := cpuset.Parse(opts.cpus)
	if err != nil {
		return cpus, fmt.Errorf("invalid -cpus: %w", err)
	}
	if cpus.IsEmpty() {
		return cpus, fmt.Errorf("no cpus selected")
	}
	return cpus, nil
}

func apply(ctx context.Context, client *cpufreq.Client, cpus cpuset.CPUSet, opts options) error {
	if opts.governor != "" {
		if err := frequency.SetGovernor(ctx, client, cpus, opts.governor); err != nil {
			return err
		}
	}

	switch {
	case opts.minMHz > 0 && opts.maxMHz > 0:
		minKHz, err := frequency.MHzToKHz(opts.minMHz)
		if err != nil {
			return err
		}
		maxKHz, err := frequency.MHzToKHz(opts.maxMHz)
		if err != nil {
			return err
		}
		if err := frequency.SetRangeAll(ctx, client, cpus, minKHz, maxKHz); err != nil {
			return err
		}
	case opts.minMHz > 0:
		if err := frequency.AdjustCPUFrequency(ctx, client, cpus, opts.minMHz, frequency.MinBound); err != nil {
			return err
		}
	case opts.maxMHz > 0:
		if err := frequency.AdjustCPUFrequency(ctx, client, cpus, opts.maxMHz, frequency.MaxBound); err != nil {
			return err
		}
	}

	if opts.setspeedMHz > 0 {
		kHz, err := frequency.MHzToKHz(opts.setspeedMHz)
		if err != nil {
			return err
		}
		if err := frequency.SetSpeed(ctx, client, cpus, kHz); err != nil {
			return err
		}
	}
	return nil
}

func readStates(ctx context.Context, client *cpufreq.Client, cpus cpuset.CPUSet, opts corestate.Options, cacheFDs bool, log logr.Logger) ([]*corestate.CoreState, error) {
	if !cacheFDs {
		return corestate.ReadCores(ctx, client, cpus, opts)
	}

	states := make([]*corestate.CoreState, 0, cpus.Size())
	for _, cpu := range cpus.ToSliceUint32() {
		hs, err := client.OpenAll(cpu, unix.O_RDONLY)
		if err != nil {
			return nil, err
		}
		states = append(states, corestate.Read(client, cpu, hs, opts))
		if err := client.CloseAll(hs); err != nil {
			log.Error(err, "failed to close cached descriptors", "cpu", cpu)
		}
	}
	return states, nil
}

func printStates(out io.Writer, format string, states []*corestate.CoreState) error {
	switch format {
	case "text":
		printText(out, states)
		return nil
	case "yaml":
		data, err := yaml.Marshal(states)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case "json":
		data, err := json.MarshalIndent(states, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	return fmt.Errorf("unknown output format %q", format)
}

// printText lists every attribute of each cpu, or the error that kept it
// from being read.
func printText(out io.Writer, states []*corestate.CoreState) {
	for _, s := range states {
		fmt.Fprintf(out, "cpu%d:\n", s.CPU)
		for _, attr := range cpufreq.Attributes() {
			if !attr.Readable() {
				continue
			}
			if err := s.Err(attr); err != nil {
				fmt.Fprintf(out, "  %s: %v\n", attr, unwrapErrno(err))
				continue
			}
			fmt.Fprintf(out, "  %s: %s\n", attr, textValue(s, attr))
		}
	}
}

func textValue(s *corestate.CoreState, attr cpufreq.Attribute) string {
	switch attr {
	case cpufreq.AffectedCPUs:
		return s.AffectedCPUs
	case cpufreq.RelatedCPUs:
		return s.RelatedCPUs
	case cpufreq.ScalingAvailableFrequencies:
		freqs := make([]string, len(s.ScalingAvailableFrequencies))
		for i, f := range s.ScalingAvailableFrequencies {
			freqs[i] = fmt.Sprint(f)
		}
		return strings.Join(freqs, " ")
	case cpufreq.ScalingAvailableGovernors:
		return strings.Join(s.ScalingAvailableGovernors, " ")
	case cpufreq.ScalingDriver:
		return s.ScalingDriver
	case cpufreq.ScalingGovernor:
		return s.ScalingGovernor
	}
	v, _ := s.Scalar(attr)
	return fmt.Sprint(v)
}

// unwrapErrno reduces an attribute error to its cause, which prints like
// strerror for errno values.
func unwrapErrno(err error) error {
	var attrErr *cpufreq.AttributeError
	if errors.As(err, &attrErr) {
		return attrErr.Err
	}
	return err
}
