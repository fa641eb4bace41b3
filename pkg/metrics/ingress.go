package metrics

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
)

// IngressCollector gathers NGINX ingress-controller request metrics for a
// set of hostnames.
type IngressCollector struct {
	client *PrometheusClient
	log    logr.Logger
}

// NewIngressCollector creates a collector that issues its queries through
// client.
func NewIngressCollector(client *PrometheusClient, log logr.Logger) *IngressCollector {
	return &IngressCollector{
		client: client,
		log:    log.WithName("ingress"),
	}
}

// Collect runs the request-count, request-rate and latency-percentile
// queries for the given hosts. A percentile query that returns no data for a
// host leaves that field unset rather than defaulting it to zero. Transport
// failures abort the collection.
func (c *IngressCollector) Collect(ctx context.Context, hosts []string, durationMinutes int) (*IngressMetrics, error) {
	out := &IngressMetrics{
		Hosts:   hosts,
		Ingress: NewOrderedMap[*IngressStats](),
	}

	totalQuery := queryIngressRequestTotal(hosts)
	c.log.V(1).Info("querying request totals", "query", totalQuery)
	totalResult, err := c.client.Query(ctx, totalQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query request totals: %w", err)
	}
	for _, row := range totalResult.Rows() {
		stats := c.hostRecord(out, row.Label("host"))
		stats.TotalRequests = ptrTo(int64(float64(row.Value.Value)))
	}

	rateQuery := queryIngressRequestRate(hosts, durationMinutes)
	c.log.V(1).Info("querying request rates", "query", rateQuery)
	rateResult, err := c.client.Query(ctx, rateQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query request rates: %w", err)
	}
	for _, row := range rateResult.Rows() {
		stats := c.hostRecord(out, row.Label("host"))
		stats.RequestsPerSec = ptrTo(roundTo(float64(row.Value.Value), 2))
	}

	percentiles := []struct {
		quantile float64
		assign   func(*IngressStats, *float64)
	}{
		{0.50, func(s *IngressStats, v *float64) { s.P50LatencyMs = v }},
		{0.95, func(s *IngressStats, v *float64) { s.P95LatencyMs = v }},
		{0.99, func(s *IngressStats, v *float64) { s.P99LatencyMs = v }},
	}
	for _, p := range percentiles {
		latencyQuery := queryIngressLatencyQuantile(p.quantile, hosts, durationMinutes)
		c.log.V(1).Info("querying latency percentile", "quantile", p.quantile, "query", latencyQuery)
		latencyResult, err := c.client.Query(ctx, latencyQuery)
		if err != nil {
			return nil, fmt.Errorf("failed to query latency percentiles: %w", err)
		}
		for _, row := range latencyResult.Rows() {
			stats := c.hostRecord(out, row.Label("host"))
			// histogram_quantile yields seconds; report milliseconds.
			p.assign(stats, ptrTo(roundTo(float64(row.Value.Value)*1000, 2)))
		}
	}

	c.log.Info("collected ingress metrics", "hosts", len(hosts), "hostsWithData", out.Ingress.Len())

	return out, nil
}

// hostRecord returns the stats record for host, creating it on first use so
// the independent queries merge into one record per host.
func (c *IngressCollector) hostRecord(out *IngressMetrics, host string) *IngressStats {
	stats, ok := out.Ingress.Get(host)
	if !ok {
		stats = &IngressStats{}
		out.Ingress.Set(host, stats)
	}
	return stats
}
