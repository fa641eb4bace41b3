package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyemery/k8s-resource-reporter/pkg/metrics"
)

func newWorkload(t *testing.T) *metrics.WorkloadMetrics {
	t.Helper()
	return &metrics.WorkloadMetrics{
		Namespaces:      []string{"default"},
		CollectionTime:  time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
		DurationMinutes: 5,
		CPU:             metrics.NewOrderedMap[*metrics.OrderedMap[metrics.CPUUsage]](),
		Memory:          metrics.NewOrderedMap[*metrics.OrderedMap[metrics.MemoryUsage]](),
		Network:         metrics.NewOrderedMap[*metrics.OrderedMap[*metrics.NetworkUsage]](),
	}
}

func newIngress() *metrics.IngressMetrics {
	return &metrics.IngressMetrics{
		Hosts:   nil,
		Ingress: metrics.NewOrderedMap[*metrics.IngressStats](),
	}
}

func addCPU(w *metrics.WorkloadMetrics, namespace, pod string, millicores float64) {
	pods, ok := w.CPU.Get(namespace)
	if !ok {
		pods = metrics.NewOrderedMap[metrics.CPUUsage]()
		w.CPU.Set(namespace, pods)
	}
	pods.Set(pod, metrics.CPUUsage{UsageCores: millicores / 1000, UsageMillicores: millicores})
}

func TestRender_Header(t *testing.T) {
	doc := Render(newWorkload(t), newIngress())

	assert.Contains(t, doc, "## 📊 Resource Utilization Metrics")
	assert.Contains(t, doc, "*Collected at 2026-08-31T12:00:00Z (last 5 minutes)*")
	assert.Contains(t, doc, "| Namespace | Pod | CPU (millicores) | Memory (MB) | Network RX (KB/s) | Network TX (KB/s) |")
}

func TestRender_MissingCrossReferencesDefaultToZero(t *testing.T) {
	w := newWorkload(t)
	addCPU(w, "default", "api-7f9", 123.4)

	doc := Render(w, newIngress())

	assert.Contains(t, doc, "| default | api-7f9 | 123.4 | 0 | 0 | 0 |")
}

func TestRender_LongPodNamesAreTruncated(t *testing.T) {
	longPod := strings.Repeat("a", 45)
	w := newWorkload(t)
	addCPU(w, "default", longPod, 10)

	doc := Render(w, newIngress())

	assert.Contains(t, doc, "| default | "+strings.Repeat("a", 40)+"... | 10 |")
	assert.NotContains(t, doc, longPod)
}

func TestRender_RowsFollowCPUInsertionOrder(t *testing.T) {
	w := newWorkload(t)
	addCPU(w, "zebra", "z-pod", 1)
	addCPU(w, "alpha", "a-pod-2", 2)
	addCPU(w, "alpha", "a-pod-1", 3)

	doc := Render(w, newIngress())

	zebra := strings.Index(doc, "| zebra | z-pod |")
	alpha2 := strings.Index(doc, "| alpha | a-pod-2 |")
	alpha1 := strings.Index(doc, "| alpha | a-pod-1 |")
	require.NotEqual(t, -1, zebra)
	require.NotEqual(t, -1, alpha2)
	require.NotEqual(t, -1, alpha1)
	assert.Less(t, zebra, alpha2)
	assert.Less(t, alpha2, alpha1)
}

// Pods without a CPU entry are not rendered even when they have memory or
// network samples; the JSON output still carries them.
func TestRender_RowsAreDrivenByCPUMappingOnly(t *testing.T) {
	w := newWorkload(t)
	memPods := metrics.NewOrderedMap[metrics.MemoryUsage]()
	memPods.Set("memory-only-pod", metrics.MemoryUsage{UsageBytes: 1048576, UsageMB: 1})
	w.Memory.Set("default", memPods)

	doc := Render(w, newIngress())

	assert.NotContains(t, doc, "memory-only-pod")
}

func TestRender_IngressTableOnlyWhenDataPresent(t *testing.T) {
	w := newWorkload(t)

	doc := Render(w, newIngress())
	assert.NotContains(t, doc, "### Ingress Controller Metrics")

	ingress := newIngress()
	p50 := 95.3
	rps := 12.34
	var total int64 = 1234
	ingress.Ingress.Set("foo.localhost", &metrics.IngressStats{
		TotalRequests:  &total,
		RequestsPerSec: &rps,
		P50LatencyMs:   &p50,
	})

	doc = Render(w, ingress)
	assert.Contains(t, doc, "### Ingress Controller Metrics (from Prometheus)")
	assert.Contains(t, doc, "| Host | Requests | Req/sec | p50 (ms) | p95 (ms) | p99 (ms) |")

	// Absent percentiles render as zero in the table while staying absent
	// from the JSON document.
	assert.Contains(t, doc, "| foo.localhost | 1234 | 12.34 | 95.3 | 0 | 0 |")
}
