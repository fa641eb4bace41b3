package metrics

import (
	"fmt"
	"strings"
)

// PromQL query templates for collecting pod and ingress metrics.
//
// These queries are designed to work with:
//   - Standard Prometheus + cAdvisor metrics (container_cpu_usage_seconds_total,
//     container_memory_working_set_bytes, container_network_*_bytes_total)
//   - The NGINX Ingress Controller exporter (nginx_ingress_controller_requests,
//     nginx_ingress_controller_request_duration_seconds_bucket)

// alternation joins names into a PromQL regex alternation (a|b|c) for use
// inside a =~ matcher.
func alternation(names []string) string {
	return strings.Join(names, "|")
}

// queryPodCPU returns PromQL for the per-second CPU consumption rate over the
// trailing window, in cores per (namespace, pod). The container!="" matcher
// excludes the pod-level pseudo-container series.
func queryPodCPU(namespaces []string, durationMinutes int) string {
	return fmt.Sprintf(
		`sum by (namespace, pod) (rate(container_cpu_usage_seconds_total{namespace=~"%s", container!=""}[%dm]))`,
		alternation(namespaces), durationMinutes,
	)
}

// queryPodMemory returns PromQL for current working-set bytes per
// (namespace, pod). This is an instantaneous gauge, not rate-windowed.
func queryPodMemory(namespaces []string) string {
	return fmt.Sprintf(
		`sum by (namespace, pod) (container_memory_working_set_bytes{namespace=~"%s", container!=""})`,
		alternation(namespaces),
	)
}

// queryPodNetworkRx returns PromQL for the receive byte rate over the
// trailing window per (namespace, pod).
func queryPodNetworkRx(namespaces []string, durationMinutes int) string {
	return fmt.Sprintf(
		`sum by (namespace, pod) (rate(container_network_receive_bytes_total{namespace=~"%s"}[%dm]))`,
		alternation(namespaces), durationMinutes,
	)
}

// queryPodNetworkTx returns PromQL for the transmit byte rate over the
// trailing window per (namespace, pod).
func queryPodNetworkTx(namespaces []string, durationMinutes int) string {
	return fmt.Sprintf(
		`sum by (namespace, pod) (rate(container_network_transmit_bytes_total{namespace=~"%s"}[%dm]))`,
		alternation(namespaces), durationMinutes,
	)
}

// queryIngressRequestTotal returns PromQL for the cumulative request count
// per host.
func queryIngressRequestTotal(hosts []string) string {
	return fmt.Sprintf(
		`sum by (host) (nginx_ingress_controller_requests{host=~"%s"})`,
		alternation(hosts),
	)
}

// queryIngressRequestRate returns PromQL for the request rate over the
// trailing window per host.
func queryIngressRequestRate(hosts []string, durationMinutes int) string {
	return fmt.Sprintf(
		`sum by (host) (rate(nginx_ingress_controller_requests{host=~"%s"}[%dm]))`,
		alternation(hosts), durationMinutes,
	)
}

// queryIngressLatencyQuantile returns PromQL estimating a latency percentile
// per host from the bucketed request-duration histogram. The result is in
// seconds.
func queryIngressLatencyQuantile(quantile float64, hosts []string, durationMinutes int) string {
	return fmt.Sprintf(
		`histogram_quantile(%g, sum by (host, le) (rate(nginx_ingress_controller_request_duration_seconds_bucket{host=~"%s"}[%dm])))`,
		quantile, alternation(hosts), durationMinutes,
	)
}
