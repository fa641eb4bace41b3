package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/api"
	"github.com/prometheus/common/model"
)

const (
	instantQueryEndpoint = "/api/v1/query"
	rangeQueryEndpoint   = "/api/v1/query_range"

	// DefaultStep is the resolution used for range queries when the caller
	// does not specify one.
	DefaultStep = "15s"

	statusSuccess = "success"

	queryTimeout = 30 * time.Second
)

// QueryResponse is the top-level envelope returned by the Prometheus HTTP API.
type QueryResponse struct {
	Status string    `json:"status"`
	Data   QueryData `json:"data"`
}

// QueryData holds the result payload of a query response.
type QueryData struct {
	ResultType string         `json:"resultType"`
	Result     []VectorSample `json:"result"`
}

// VectorSample is one row of a query result: the label set that produced the
// sample plus its value. Instant queries populate Value, range queries Values.
type VectorSample struct {
	Metric model.Metric       `json:"metric"`
	Value  model.SamplePair   `json:"value"`
	Values []model.SamplePair `json:"values,omitempty"`
}

// Label returns the value of the named label, or "unknown" when the series
// does not carry it.
func (s VectorSample) Label(name model.LabelName) string {
	if v, ok := s.Metric[name]; ok {
		return string(v)
	}
	return labelUnknown
}

// Rows returns the result vector, or nil when the response status is not
// success. A non-success status means "no data here", not a failure.
func (r *QueryResponse) Rows() []VectorSample {
	if r == nil || r.Status != statusSuccess {
		return nil
	}
	return r.Data.Result
}

// PrometheusClient issues instant and range queries against a
// Prometheus-compatible HTTP API.
type PrometheusClient struct {
	client api.Client
}

// NewPrometheusClient creates a new Prometheus client
func NewPrometheusClient(prometheusURL string) (*PrometheusClient, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &PrometheusClient{client: client}, nil
}

// Query executes an instant query. Network failures, non-2xx responses and an
// undecodable envelope are errors; everything else is returned verbatim,
// including responses whose status is not "success".
func (p *PrometheusClient) Query(ctx context.Context, expr string) (*QueryResponse, error) {
	params := url.Values{}
	params.Set("query", expr)
	return p.get(ctx, instantQueryEndpoint, params)
}

// QueryRange executes a range query. start and end are epoch seconds; step is
// a Prometheus duration string, DefaultStep when empty.
func (p *PrometheusClient) QueryRange(ctx context.Context, expr string, start, end float64, step string) (*QueryResponse, error) {
	if step == "" {
		step = DefaultStep
	}

	params := url.Values{}
	params.Set("query", expr)
	params.Set("start", strconv.FormatFloat(start, 'f', -1, 64))
	params.Set("end", strconv.FormatFloat(end, 'f', -1, 64))
	params.Set("step", step)
	return p.get(ctx, rangeQueryEndpoint, params)
}

// Scalar runs an instant query and returns the first result's value. A
// non-success status or an empty result vector yields 0.0; at this layer a
// missing metric is indistinguishable from a true zero.
func (p *PrometheusClient) Scalar(ctx context.Context, expr string) (float64, error) {
	result, err := p.Query(ctx, expr)
	if err != nil {
		return 0, err
	}

	rows := result.Rows()
	if len(rows) == 0 {
		return 0, nil
	}
	return float64(rows[0].Value.Value), nil
}

func (p *PrometheusClient) get(ctx context.Context, endpoint string, params url.Values) (*QueryResponse, error) {
	u := p.client.URL(endpoint, nil)
	u.RawQuery = params.Encode()

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	resp, body, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to query Prometheus: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("prometheus returned status %d for %s", resp.StatusCode, endpoint)
	}

	var envelope QueryResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &envelope, nil
}
