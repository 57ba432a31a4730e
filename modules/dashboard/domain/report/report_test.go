package report_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/report"
)

func TestNewAvailability_ReadyRequiresCoreReports(t *testing.T) {
	reports := map[report.Kind]bool{
		report.KindOptimization:     true,
		report.KindSensitivity:      true,
		report.KindMethodComparison: true,
	}
	assert.Equal(t, report.StatusReady, report.NewAvailability(reports, nil).OverallStatus)

	reports[report.KindSensitivity] = false
	assert.Equal(t, report.StatusIncomplete, report.NewAvailability(reports, nil).OverallStatus)
}

func TestAvailability_MarshalJSONIsFlat(t *testing.T) {
	a := report.NewAvailability(
		map[report.Kind]bool{report.KindOptimization: true, report.KindCostPrediction: false},
		map[string]bool{"topsis_comparison": true},
	)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"optimization_results": true,
		"cost_prediction": false,
		"charts": {"topsis_comparison": true},
		"overall_status": "incomplete"
	}`, string(data))
}

func TestLookup(t *testing.T) {
	def, ok := report.Lookup(report.KindMonteCarlo)
	require.True(t, ok)
	assert.Equal(t, "monte_carlo_results.json", def.File)

	_, ok = report.Lookup("unknown")
	assert.False(t, ok)
}
