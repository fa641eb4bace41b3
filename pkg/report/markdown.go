// Package report renders collected metrics as a Markdown document.
//
// Known limitation: the pod table is driven by the CPU mapping alone, so a
// pod that reported memory or network samples but no CPU samples does not
// appear in the rendered table (it is still present in the JSON output).
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/wesleyemery/k8s-resource-reporter/pkg/metrics"
)

// maxPodNameWidth is the display width pod names are truncated to. The
// underlying keys stay untruncated.
const maxPodNameWidth = 40

// Render produces the Markdown report for one collection run. The ingress
// table is emitted only when at least one host returned data.
func Render(workload *metrics.WorkloadMetrics, ingress *metrics.IngressMetrics) string {
	var md strings.Builder

	md.WriteString("## 📊 Resource Utilization Metrics\n\n")
	fmt.Fprintf(&md, "*Collected at %s (last %d minutes)*\n\n",
		workload.CollectionTime.Format(time.RFC3339), workload.DurationMinutes)

	md.WriteString("### Pod Resource Usage\n\n")
	md.WriteString("| Namespace | Pod | CPU (millicores) | Memory (MB) | Network RX (KB/s) | Network TX (KB/s) |\n")
	md.WriteString("|-----------|-----|------------------|-------------|-------------------|-------------------|\n")

	for _, ns := range workload.CPU.Keys() {
		pods, _ := workload.CPU.Get(ns)
		for _, pod := range pods.Keys() {
			fmt.Fprintf(&md, "| %s | %s | %v | %v | %v | %v |\n",
				ns,
				displayName(pod),
				workload.Millicores(ns, pod),
				workload.MemoryMB(ns, pod),
				workload.RxKBPerSec(ns, pod),
				workload.TxKBPerSec(ns, pod))
		}
	}

	if ingress.Ingress.Len() > 0 {
		md.WriteString("\n### Ingress Controller Metrics (from Prometheus)\n\n")
		md.WriteString("| Host | Requests | Req/sec | p50 (ms) | p95 (ms) | p99 (ms) |\n")
		md.WriteString("|------|----------|---------|----------|----------|----------|\n")

		for _, host := range ingress.Ingress.Keys() {
			stats, _ := ingress.Ingress.Get(host)
			fmt.Fprintf(&md, "| %s | %v | %v | %v | %v | %v |\n",
				host,
				intOrZero(stats.TotalRequests),
				floatOrZero(stats.RequestsPerSec),
				floatOrZero(stats.P50LatencyMs),
				floatOrZero(stats.P95LatencyMs),
				floatOrZero(stats.P99LatencyMs))
		}
	}

	md.WriteString("\n")
	return md.String()
}

// displayName truncates long pod names for the table; truncation is display
// only.
func displayName(pod string) string {
	if len(pod) > maxPodNameWidth {
		return pod[:maxPodNameWidth] + "..."
	}
	return pod
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func intOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
