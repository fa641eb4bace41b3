package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// WorkloadCollector gathers CPU, memory and network usage for every pod in a
// set of namespaces.
type WorkloadCollector struct {
	client *PrometheusClient
	log    logr.Logger
}

// NewWorkloadCollector creates a collector that issues its queries through
// client.
func NewWorkloadCollector(client *PrometheusClient, log logr.Logger) *WorkloadCollector {
	return &WorkloadCollector{
		client: client,
		log:    log.WithName("workload"),
	}
}

// Collect runs the CPU, memory and network queries for the given namespaces
// and folds the results into a nested namespace -> pod mapping.
// durationMinutes is the rate window and is echoed into the output. A query
// whose response status is not "success" contributes no rows; transport
// failures abort the collection.
func (c *WorkloadCollector) Collect(ctx context.Context, namespaces []string, durationMinutes int) (*WorkloadMetrics, error) {
	out := &WorkloadMetrics{
		Namespaces:      namespaces,
		CollectionTime:  time.Now(),
		DurationMinutes: durationMinutes,
		CPU:             NewOrderedMap[*OrderedMap[CPUUsage]](),
		Memory:          NewOrderedMap[*OrderedMap[MemoryUsage]](),
		Network:         NewOrderedMap[*OrderedMap[*NetworkUsage]](),
	}

	cpuQuery := queryPodCPU(namespaces, durationMinutes)
	c.log.V(1).Info("querying CPU usage", "query", cpuQuery)
	cpuResult, err := c.client.Query(ctx, cpuQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query CPU metrics: %w", err)
	}
	for _, row := range cpuResult.Rows() {
		ns, pod := row.Label("namespace"), row.Label("pod")
		value := float64(row.Value.Value)
		podBucket(out.CPU, ns).Set(pod, CPUUsage{
			UsageCores:      roundTo(value, 4),
			UsageMillicores: roundTo(value*1000, 2),
		})
	}

	memQuery := queryPodMemory(namespaces)
	c.log.V(1).Info("querying memory usage", "query", memQuery)
	memResult, err := c.client.Query(ctx, memQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory metrics: %w", err)
	}
	for _, row := range memResult.Rows() {
		ns, pod := row.Label("namespace"), row.Label("pod")
		value := float64(row.Value.Value)
		podBucket(out.Memory, ns).Set(pod, MemoryUsage{
			UsageBytes: roundTo(value, 0),
			UsageMB:    roundTo(value/(1024*1024), 2),
		})
	}

	rxQuery := queryPodNetworkRx(namespaces, durationMinutes)
	c.log.V(1).Info("querying network receive rate", "query", rxQuery)
	rxResult, err := c.client.Query(ctx, rxQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query network receive metrics: %w", err)
	}

	txQuery := queryPodNetworkTx(namespaces, durationMinutes)
	c.log.V(1).Info("querying network transmit rate", "query", txQuery)
	txResult, err := c.client.Query(ctx, txQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query network transmit metrics: %w", err)
	}

	for _, row := range rxResult.Rows() {
		ns, pod := row.Label("namespace"), row.Label("pod")
		value := float64(row.Value.Value)
		usage := c.networkRecord(out, ns, pod)
		usage.RxBytesPerSec = ptrTo(roundTo(value, 2))
		usage.RxKBPerSec = ptrTo(roundTo(value/1024, 2))
	}
	for _, row := range txResult.Rows() {
		ns, pod := row.Label("namespace"), row.Label("pod")
		value := float64(row.Value.Value)
		usage := c.networkRecord(out, ns, pod)
		usage.TxBytesPerSec = ptrTo(roundTo(value, 2))
		usage.TxKBPerSec = ptrTo(roundTo(value/1024, 2))
	}

	c.log.Info("collected workload metrics",
		"namespaces", len(namespaces),
		"cpuSeries", seriesCount(out.CPU),
		"memorySeries", seriesCount(out.Memory),
		"networkSeries", seriesCount(out.Network))

	return out, nil
}

// networkRecord returns the network record for the (namespace, pod) pair,
// creating it on first use so receive and transmit merge into one record.
func (c *WorkloadCollector) networkRecord(out *WorkloadMetrics, namespace, pod string) *NetworkUsage {
	pods := podBucket(out.Network, namespace)
	usage, ok := pods.Get(pod)
	if !ok {
		usage = &NetworkUsage{}
		pods.Set(pod, usage)
	}
	return usage
}

func seriesCount[V any](m *OrderedMap[*OrderedMap[V]]) int {
	total := 0
	for _, ns := range m.Keys() {
		if pods, ok := m.Get(ns); ok {
			total += pods.Len()
		}
	}
	return total
}
