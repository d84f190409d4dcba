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
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/klog/v2"

	"github.com/intel/cpufreq-bindings/pkg/corestate"
	"github.com/intel/cpufreq-bindings/pkg/cpufreq"
	"github.com/intel/cpufreq-bindings/pkg/cpuset"
	"github.com/intel/cpufreq-bindings/pkg/exporter"
	"github.com/intel/cpufreq-bindings/pkg/topology"
)

func main() {
	var metricsAddr, cpuList, sysfsRoot string
	flag.StringVar(&metricsAddr, "metrics-addr", ":10001", "The address the metric endpoint binds to.")
	flag.StringVar(&cpuList, "cpus", "", "CPUs to export, in list format. Defaults to every logical CPU.")
	flag.StringVar(&sysfsRoot, "sysfs-root", cpufreq.DefaultRoot, "Directory holding the cpu<N> directories.")
	flag.Parse()

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapLog, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to create logger: %v\n", err)
		os.Exit(1)
	}
	logger := zapr.NewLogger(zapLog)
	klog.SetLogger(logger.WithName("klog"))
	setupLog := logger.WithName("setup")
	nodeName := os.Getenv("NODE_NAME")

	var cpus cpuset.CPUSet
	if cpuList == "" {
		cpus, err = topology.LogicalCPUs()
	} else {
		cpus, err = cpuset.Parse(cpuList)
	}
	if err != nil {
		setupLog.Error(err, "unable to determine cpus")
		os.Exit(1)
	}

	client := cpufreq.New(cpufreq.WithRoot(sysfsRoot), cpufreq.WithLogger(logger.WithName("cpufreq")))
	domains, err := topology.FrequencyDomains(client, cpus, logger.WithName("topology"))
	if err != nil {
		setupLog.Error(err, "unable to read frequency domains")
		os.Exit(1)
	}
	for _, domain := range domains {
		first := uint32(domain.ToSlice()[0])
		driver := make([]byte, cpufreq.TokenMaxLen)
		if _, err := client.ScalingDriver(cpufreq.NoHandle, first, driver); err != nil {
			setupLog.Error(err, "frequency domain without driver", "cpus", domain.String())
			continue
		}
		setupLog.Info("frequency domain", "cpus", domain.String(), "driver", cpufreq.TokenString(driver))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		exporter.NewCollector(client, cpus, nodeName, corestate.DefaultOptions(), logger.WithName("exporter")),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{ErrorLog: zap.NewStdLog(zapLog)}))
	server := &http.Server{
		Addr:              metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			setupLog.Error(err, "problem shutting down metrics server")
		}
	}()

	setupLog.Info("starting metrics server", "addr", metricsAddr, "node", nodeName, "cpus", cpus.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		setupLog.Error(err, "problem running metrics server")
		os.Exit(1)
	}
}
