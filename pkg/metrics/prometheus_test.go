package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singleResultEnvelope = `{
	"status": "success",
	"data": {
		"resultType": "vector",
		"result": [
			{"metric": {"namespace": "default", "pod": "api-7f9"}, "value": [1700000000, "1.5"]}
		]
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *PrometheusClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewPrometheusClient(srv.URL)
	require.NoError(t, err)
	return client
}

func TestQuery_SendsQueryParameter(t *testing.T) {
	var gotPath, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		_, _ = w.Write([]byte(singleResultEnvelope))
	})

	result, err := client.Query(context.Background(), `up{job="node"}`)

	require.NoError(t, err)
	assert.Equal(t, "/api/v1/query", gotPath)
	assert.Equal(t, `up{job="node"}`, gotQuery)
	assert.Equal(t, "success", result.Status)
	require.Len(t, result.Rows(), 1)
	assert.Equal(t, 1.5, float64(result.Rows()[0].Value.Value))
}

func TestQuery_HTTPErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	result, err := client.Query(context.Background(), "up")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Nil(t, result)
}

func TestQuery_MalformedEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	})

	_, err := client.Query(context.Background(), "up")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestQuery_ErrorStatusIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "error", "errorType": "bad_data", "error": "parse error"}`))
	})

	result, err := client.Query(context.Background(), "up{")

	require.NoError(t, err)
	assert.Equal(t, "error", result.Status)
	assert.Nil(t, result.Rows())
}

func TestQueryRange_Parameters(t *testing.T) {
	var got map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{
			"path":  r.URL.Path,
			"query": r.URL.Query().Get("query"),
			"start": r.URL.Query().Get("start"),
			"end":   r.URL.Query().Get("end"),
			"step":  r.URL.Query().Get("step"),
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"matrix","result":[]}}`))
	})

	_, err := client.QueryRange(context.Background(), "up", 1700000000, 1700000030.5, "1m")

	require.NoError(t, err)
	assert.Equal(t, "/api/v1/query_range", got["path"])
	assert.Equal(t, "up", got["query"])
	assert.Equal(t, "1700000000", got["start"])
	assert.Equal(t, "1700000030.5", got["end"])
	assert.Equal(t, "1m", got["step"])
}

func TestQueryRange_DefaultStep(t *testing.T) {
	var gotStep string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotStep = r.URL.Query().Get("step")
		_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"matrix","result":[]}}`))
	})

	_, err := client.QueryRange(context.Background(), "up", 0, 60, "")

	require.NoError(t, err)
	assert.Equal(t, DefaultStep, gotStep)
}

func TestScalar(t *testing.T) {
	tests := []struct {
		name     string
		envelope string
		want     float64
	}{
		{
			name:     "error status yields zero",
			envelope: `{"status": "error"}`,
			want:     0.0,
		},
		{
			name:     "empty result vector yields zero",
			envelope: `{"status": "success", "data": {"resultType": "vector", "result": []}}`,
			want:     0.0,
		},
		{
			name:     "first result value is parsed",
			envelope: singleResultEnvelope,
			want:     1.5,
		},
		{
			name:     "unexpected shape reads as no data",
			envelope: `{"surprise": true}`,
			want:     0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.envelope))
			})

			got, err := client.Scalar(context.Background(), "up")

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScalar_TransportErrorPropagates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusBadGateway)
	})

	_, err := client.Scalar(context.Background(), "up")

	assert.Error(t, err)
}

func TestVectorSample_LabelDefault(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1700000000,"1"]}]}}`))
	})

	result, err := client.Query(context.Background(), "up")

	require.NoError(t, err)
	require.Len(t, result.Rows(), 1)
	assert.Equal(t, "unknown", result.Rows()[0].Label("namespace"))
	assert.Equal(t, "unknown", result.Rows()[0].Label("pod"))
}
