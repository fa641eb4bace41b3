/*
Copyright 2025.

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
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wesleyemery/k8s-resource-reporter/internal/config"
	"github.com/wesleyemery/k8s-resource-reporter/pkg/metrics"
	"github.com/wesleyemery/k8s-resource-reporter/pkg/report"
)

const (
	formatJSON     = "json"
	formatMarkdown = "markdown"
	formatBoth     = "both"

	jsonFileName     = "resource_metrics.json"
	markdownFileName = "resource_metrics.md"

	envPrefix = "RESOURCE_REPORTER"
)

type options struct {
	prometheusURL string
	urlsFile      string
	namespaces    string
	hosts         string
	duration      int
	outputDir     string
	outputFormat  string
	verbose       bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "resource-reporter",
		Short: "Collect resource utilization metrics from Prometheus",
		Long: `resource-reporter queries a Prometheus-compatible API for pod-level CPU,
memory and network usage plus NGINX ingress-controller request metrics, and
writes the results as JSON and/or a Markdown report.`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			bindEnvOverrides(cmd.Flags())
			switch opts.outputFormat {
			case formatJSON, formatMarkdown, formatBoth:
				return nil
			default:
				return fmt.Errorf("invalid --output-format %q (expected %s, %s or %s)",
					opts.outputFormat, formatJSON, formatMarkdown, formatBoth)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.prometheusURL, "prometheus-url", "http://localhost:9090", "Prometheus server URL")
	flags.StringVar(&opts.urlsFile, "urls", "", "JSON file with {namespace, url} entries; namespaces and hosts are derived from it")
	flags.StringVar(&opts.namespaces, "namespaces", "", "Comma-separated namespaces to monitor (overrides --urls)")
	flags.StringVar(&opts.hosts, "hosts", "", "Comma-separated ingress hosts to monitor (overrides --urls)")
	flags.IntVar(&opts.duration, "duration", 5, "Rate window in minutes")
	flags.StringVar(&opts.outputDir, "output-dir", "results", "Directory the result files are written to")
	flags.StringVar(&opts.outputFormat, "output-format", formatBoth, "Output format: json, markdown or both")
	flags.BoolVar(&opts.verbose, "verbose", false, "Log every issued query")

	return cmd
}

// bindEnvOverrides lets RESOURCE_REPORTER_* environment variables stand in
// for flags that were not set on the command line.
func bindEnvOverrides(flags *pflag.FlagSet) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = flags.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func run(ctx context.Context, opts *options) error {
	log, err := newLogger(opts.verbose)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	namespaces, hosts, err := config.Resolve(opts.namespaces, opts.hosts, opts.urlsFile)
	if err != nil {
		return err
	}

	log.Info("collecting metrics from Prometheus",
		"url", opts.prometheusURL,
		"namespaces", namespaces,
		"hosts", hosts,
		"durationMinutes", opts.duration)

	client, err := metrics.NewPrometheusClient(opts.prometheusURL)
	if err != nil {
		return err
	}

	workload, err := metrics.NewWorkloadCollector(client, log).Collect(ctx, namespaces, opts.duration)
	if err != nil {
		return err
	}

	ingress, err := metrics.NewIngressCollector(client, log).Collect(ctx, hosts, opts.duration)
	if err != nil {
		return err
	}

	if opts.outputFormat == formatJSON || opts.outputFormat == formatBoth {
		combined := metrics.CombinedReport{
			WorkloadMetrics: workload,
			IngressMetrics:  ingress,
		}
		data, err := json.MarshalIndent(combined, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		path := filepath.Join(opts.outputDir, jsonFileName)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		log.Info("wrote JSON results", "path", path)
	}

	if opts.outputFormat == formatMarkdown || opts.outputFormat == formatBoth {
		doc := report.Render(workload, ingress)
		path := filepath.Join(opts.outputDir, markdownFileName)
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		log.Info("wrote Markdown report", "path", path)
		fmt.Println()
		fmt.Print(doc)
	}

	return nil
}

func newLogger(verbose bool) (logr.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zl, err := cfg.Build()
	if err != nil {
		return logr.Logger{}, fmt.Errorf("failed to build logger: %w", err)
	}
	return zapr.NewLogger(zl).WithName("resource-reporter"), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
