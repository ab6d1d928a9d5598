package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// EngineMetrics is the aggregated view of engine activity a dashboard or
// operator query sees.
type EngineMetrics struct {
	Turns            int64 `json:"turns"`
	FailedTurns      int64 `json:"failed_turns"`
	CompletedTasks   int64 `json:"completed_tasks"`
	FailedTasks      int64 `json:"failed_tasks"`
	AdjustmentsFired int64 `json:"adjustments_fired"`
}

// QueryService reads engine metrics back from a Prometheus server.
type QueryService struct {
	queryAPI v1.API
}

// NewQueryService creates a query service against the given Prometheus URL.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{Address: prometheusURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	return &QueryService{queryAPI: v1.NewAPI(client)}, nil
}

// GetEngineMetrics aggregates turn and task counters across all models.
func (q *QueryService) GetEngineMetrics(ctx context.Context) (*EngineMetrics, error) {
	out := &EngineMetrics{}

	queries := []struct {
		expr string
		dst  *int64
	}{
		{`sum(chatguide_turns_total)`, &out.Turns},
		{`sum(chatguide_turns_total{status="error"})`, &out.FailedTurns},
		{`sum(chatguide_task_outcomes_total{outcome="completed"})`, &out.CompletedTasks},
		{`sum(chatguide_task_outcomes_total{outcome="failed"})`, &out.FailedTasks},
		{`sum(chatguide_adjustments_fired_total)`, &out.AdjustmentsFired},
	}

	for _, query := range queries {
		result, _, err := q.queryAPI.Query(ctx, query.expr, time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", query.expr, err)
		}
		if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
			*query.dst = int64(vector[0].Value)
		}
	}

	return out, nil
}

// GetTaskOutcomes returns terminal outcome counts per task id.
func (q *QueryService) GetTaskOutcomes(ctx context.Context) (map[string]map[string]int64, error) {
	result, _, err := q.queryAPI.Query(ctx, `sum by (task, outcome) (chatguide_task_outcomes_total)`, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query task outcomes: %w", err)
	}

	out := make(map[string]map[string]int64)
	vector, ok := result.(model.Vector)
	if !ok {
		return out, nil
	}
	for _, sample := range vector {
		task := string(sample.Metric["task"])
		outcome := string(sample.Metric["outcome"])
		if out[task] == nil {
			out[task] = make(map[string]int64)
		}
		out[task][outcome] = int64(sample.Value)
	}
	return out, nil
}
