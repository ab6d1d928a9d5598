package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const emptyVector = `{"status":"success","data":{"resultType":"vector","result":[]}}`

func fakePrometheus(t *testing.T, respond func(query string) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, respond(r.Form.Get("query")))
	}))
}

func TestGetEngineMetrics(t *testing.T) {
	values := map[string]string{
		`sum(chatguide_turns_total)`:                              "10",
		`sum(chatguide_turns_total{status="error"})`:              "2",
		`sum(chatguide_task_outcomes_total{outcome="completed"})`: "7",
		`sum(chatguide_task_outcomes_total{outcome="failed"})`:    "1",
		`sum(chatguide_adjustments_fired_total)`:                  "3",
	}
	server := fakePrometheus(t, func(query string) string {
		v, ok := values[query]
		if !ok {
			return emptyVector
		}
		return fmt.Sprintf(
			`{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1700000000,%q]}]}}`, v)
	})
	defer server.Close()

	svc, err := NewQueryService(server.URL)
	require.NoError(t, err)

	m, err := svc.GetEngineMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), m.Turns)
	assert.Equal(t, int64(2), m.FailedTurns)
	assert.Equal(t, int64(7), m.CompletedTasks)
	assert.Equal(t, int64(1), m.FailedTasks)
	assert.Equal(t, int64(3), m.AdjustmentsFired)
}

func TestGetEngineMetricsEmptyServer(t *testing.T) {
	server := fakePrometheus(t, func(string) string { return emptyVector })
	defer server.Close()

	svc, err := NewQueryService(server.URL)
	require.NoError(t, err)

	m, err := svc.GetEngineMetrics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, m.Turns)
	assert.Zero(t, m.CompletedTasks)
}

func TestGetTaskOutcomes(t *testing.T) {
	server := fakePrometheus(t, func(query string) string {
		return `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"task":"get_name","outcome":"completed"},"value":[1700000000,"4"]},
			{"metric":{"task":"get_code","outcome":"failed"},"value":[1700000000,"2"]}]}}`
	})
	defer server.Close()

	svc, err := NewQueryService(server.URL)
	require.NoError(t, err)

	outcomes, err := svc.GetTaskOutcomes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), outcomes["get_name"]["completed"])
	assert.Equal(t, int64(2), outcomes["get_code"]["failed"])
}
