package metrics

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

const labelUnknown = "unknown"

// OrderedMap is a string-keyed map that preserves insertion order for both
// iteration and JSON encoding. Query result rows are folded into nested
// OrderedMaps so the rendered report reproduces the order Prometheus
// returned them in.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: make(map[string]V)}
}

// Set inserts or replaces the value for key. A key that is already present
// keeps its original position.
func (m *OrderedMap[V]) Set(key string, value V) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it is present.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order. The returned slice is shared;
// callers must not modify it.
func (m *OrderedMap[V]) Keys() []string {
	return m.keys
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}

// MarshalJSON encodes the map as a JSON object with keys in insertion order.
func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CPUUsage is the CPU consumption of one pod over the collection window.
type CPUUsage struct {
	UsageCores      float64 `json:"usage_cores"`
	UsageMillicores float64 `json:"usage_millicores"`
}

// MemoryUsage is the current working-set size of one pod.
type MemoryUsage struct {
	UsageBytes float64 `json:"usage_bytes"`
	UsageMB    float64 `json:"usage_mb"`
}

// NetworkUsage is the network throughput of one pod. Receive and transmit
// come from independent queries; a direction that returned no sample stays
// nil and is omitted from the JSON rather than reported as zero.
type NetworkUsage struct {
	RxBytesPerSec *float64 `json:"rx_bytes_per_sec,omitempty"`
	RxKBPerSec    *float64 `json:"rx_kb_per_sec,omitempty"`
	TxBytesPerSec *float64 `json:"tx_bytes_per_sec,omitempty"`
	TxKBPerSec    *float64 `json:"tx_kb_per_sec,omitempty"`
}

// IngressStats aggregates the ingress-controller metrics for one host. Every
// field comes from a separate query and is omitted when that query returned
// no series for the host; a missing latency figure is a meaningfully
// different state from a true zero latency.
type IngressStats struct {
	TotalRequests  *int64   `json:"total_requests,omitempty"`
	RequestsPerSec *float64 `json:"requests_per_sec,omitempty"`
	P50LatencyMs   *float64 `json:"p50_latency_ms,omitempty"`
	P95LatencyMs   *float64 `json:"p95_latency_ms,omitempty"`
	P99LatencyMs   *float64 `json:"p99_latency_ms,omitempty"`
}

// WorkloadMetrics holds the collected pod-level metrics, keyed by namespace
// then pod. A pod appears under a namespace only if at least one query
// returned a sample for that pair. Immutable once Collect returns.
type WorkloadMetrics struct {
	Namespaces      []string                                `json:"namespaces"`
	CollectionTime  time.Time                               `json:"collection_time"`
	DurationMinutes int                                     `json:"duration_minutes"`
	CPU             *OrderedMap[*OrderedMap[CPUUsage]]      `json:"cpu"`
	Memory          *OrderedMap[*OrderedMap[MemoryUsage]]   `json:"memory"`
	Network         *OrderedMap[*OrderedMap[*NetworkUsage]] `json:"network"`
}

// Millicores returns the CPU usage in millicores for the (namespace, pod)
// pair, or 0 when no CPU sample was collected for it.
func (w *WorkloadMetrics) Millicores(namespace, pod string) float64 {
	if pods, ok := w.CPU.Get(namespace); ok {
		if usage, ok := pods.Get(pod); ok {
			return usage.UsageMillicores
		}
	}
	return 0
}

// MemoryMB returns the working-set size in MB for the (namespace, pod) pair,
// or 0 when no memory sample was collected for it.
func (w *WorkloadMetrics) MemoryMB(namespace, pod string) float64 {
	if pods, ok := w.Memory.Get(namespace); ok {
		if usage, ok := pods.Get(pod); ok {
			return usage.UsageMB
		}
	}
	return 0
}

// RxKBPerSec returns the receive rate in KB/s for the (namespace, pod) pair,
// or 0 when no receive sample was collected for it.
func (w *WorkloadMetrics) RxKBPerSec(namespace, pod string) float64 {
	if usage, ok := w.networkFor(namespace, pod); ok && usage.RxKBPerSec != nil {
		return *usage.RxKBPerSec
	}
	return 0
}

// TxKBPerSec returns the transmit rate in KB/s for the (namespace, pod)
// pair, or 0 when no transmit sample was collected for it.
func (w *WorkloadMetrics) TxKBPerSec(namespace, pod string) float64 {
	if usage, ok := w.networkFor(namespace, pod); ok && usage.TxKBPerSec != nil {
		return *usage.TxKBPerSec
	}
	return 0
}

func (w *WorkloadMetrics) networkFor(namespace, pod string) (*NetworkUsage, bool) {
	if pods, ok := w.Network.Get(namespace); ok {
		if usage, ok := pods.Get(pod); ok {
			return usage, true
		}
	}
	return nil, false
}

// IngressMetrics holds the collected ingress-controller metrics keyed by
// host. Immutable once Collect returns.
type IngressMetrics struct {
	Hosts   []string                   `json:"hosts"`
	Ingress *OrderedMap[*IngressStats] `json:"ingress"`
}

// CombinedReport is the shallow merge of workload and ingress metrics
// written to resource_metrics.json. JSON field promotion of the embedded
// structs performs the merge; the two field sets do not collide.
type CombinedReport struct {
	*WorkloadMetrics
	*IngressMetrics
}

// podBucket returns the per-pod map for namespace, creating it on first use.
func podBucket[V any](m *OrderedMap[*OrderedMap[V]], namespace string) *OrderedMap[V] {
	pods, ok := m.Get(namespace)
	if !ok {
		pods = NewOrderedMap[V]()
		m.Set(namespace, pods)
	}
	return pods
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func ptrTo[V any](v V) *V {
	return &v
}
