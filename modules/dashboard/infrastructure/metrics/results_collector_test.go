package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/report"
)

type docSource map[report.Kind]string

func (s docSource) Document(_ context.Context, kind report.Kind) (json.RawMessage, error) {
	doc, ok := s[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", report.ErrReportNotFound, kind)
	}
	return json.RawMessage(doc), nil
}

func gatherResults(t *testing.T, source ReportSource) map[string][]*dto.Metric {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewResultsCollector(source)))
	mfs, err := reg.Gather()
	require.NoError(t, err)
	out := map[string][]*dto.Metric{}
	for _, mf := range mfs {
		out[mf.GetName()] = mf.GetMetric()
	}
	return out
}

func labelsOf(m *dto.Metric) map[string]string {
	out := map[string]string{}
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func TestResultsCollector_ExportsReports(t *testing.T) {
	got := gatherResults(t, docSource{
		report.KindOptimization: `{"results": [
			{"alternative": "t3.medium", "score": 0.81, "rank": 1},
			{"alternative": "t3.micro", "score": 0.2, "rank": 2}
		]}`,
		report.KindMonteCarlo: `{"alternatives": {
			"t3.medium": {"probability_best": 0.9, "confidence_interval": {"lower": 0.7, "upper": 0.95}}
		}}`,
		report.KindCostPrediction: `{"costs": {"total": 12.5}}`,
	})

	scores := got["topsis_score"]
	require.Len(t, scores, 2)
	byInstance := map[string]*dto.Metric{}
	for _, m := range scores {
		byInstance[labelsOf(m)["instance"]] = m
	}
	assert.Equal(t, "1", labelsOf(byInstance["t3.medium"])["rank"])
	assert.InDelta(t, 0.81, byInstance["t3.medium"].GetGauge().GetValue(), 1e-9)
	assert.Equal(t, "2", labelsOf(byInstance["t3.micro"])["rank"])

	require.Len(t, got["topsis_probability_best"], 1)
	assert.InDelta(t, 0.9, got["topsis_probability_best"][0].GetGauge().GetValue(), 1e-9)
	assert.InDelta(t, 0.7, got["topsis_confidence_interval_lower"][0].GetGauge().GetValue(), 1e-9)
	assert.InDelta(t, 0.95, got["topsis_confidence_interval_upper"][0].GetGauge().GetValue(), 1e-9)

	require.Len(t, got["optimization_cost_dollars"], 1)
	assert.InDelta(t, 12.5, got["optimization_cost_dollars"][0].GetGauge().GetValue(), 1e-9)
}

func TestResultsCollector_TopLevelTotalCost(t *testing.T) {
	got := gatherResults(t, docSource{
		report.KindCostPrediction: `{"total_cost": 3.25, "costs": {"total": 99}}`,
	})
	require.Len(t, got["optimization_cost_dollars"], 1)
	assert.InDelta(t, 3.25, got["optimization_cost_dollars"][0].GetGauge().GetValue(), 1e-9)
}

func TestResultsCollector_MissingAndBrokenReports(t *testing.T) {
	before := counterValue(t, "dashboard_report_metrics_decode_errors_total", map[string]string{"report": string(report.KindMonteCarlo)})

	got := gatherResults(t, docSource{
		report.KindMonteCarlo: `{"alternatives": []}`,
		report.KindOptimization: `{"results": [
			{"alternative": "t3.small", "score": 0.5, "rank": 1},
			{"alternative": "t3.small", "score": 0.4, "rank": 2}
		]}`,
	})

	assert.Len(t, got["topsis_score"], 1)
	assert.NotContains(t, got, "topsis_probability_best")
	assert.NotContains(t, got, "optimization_cost_dollars")
	assert.Equal(t, before+1, counterValue(t, "dashboard_report_metrics_decode_errors_total", map[string]string{"report": string(report.KindMonteCarlo)}))
}

func TestResultsCollector_NoSource(t *testing.T) {
	assert.Empty(t, gatherResults(t, nil))
}
