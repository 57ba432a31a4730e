package report

import (
	"encoding/json"
	"path"
	"strings"

	"github.com/syurii10/cloud-optimization-project/pkg/serrors"
)

// Kind names a report document produced by one of the offline analysis
// scripts.
type Kind string

const (
	KindOptimization     Kind = "optimization_results"
	KindSensitivity      Kind = "sensitivity_analysis"
	KindMethodComparison Kind = "method_comparison"
	KindMonteCarlo       Kind = "monte_carlo_validation"
	KindCostPrediction   Kind = "cost_prediction"
)

// DocumentStore reads report documents by file name.
type DocumentStore interface {
	Exists(name string) (bool, error)
	Read(name string) (json.RawMessage, error)
}

// ChartStore locates rendered chart images.
type ChartStore interface {
	Exists(name string) (bool, error)
	List(exts ...string) ([]string, error)
	Path(name string) string
}

// ChartExt is the extension of the charts tracked by /api/status.
const ChartExt = ".png"

// ImageExts are the file extensions served from the charts directory.
var ImageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"}

// IsImageName reports whether name carries one of ImageExts.
func IsImageName(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, want := range ImageExts {
		if ext == want {
			return true
		}
	}
	return false
}

type Definition struct {
	Kind     Kind
	File     string
	NotFound string
	Hint     string
}

// Definitions lists every report in the order it is shown on /api/status.
var Definitions = []Definition{
	{KindOptimization, "optimization_results.json", "No optimization results found", "Run optimization first"},
	{KindSensitivity, "sensitivity_analysis.json", "Sensitivity analysis not found", "Run sensitivity_analysis.py first"},
	{KindMethodComparison, "method_comparison.json", "Method comparison not found", "Run method_comparison.py first"},
	{KindMonteCarlo, "monte_carlo_results.json", "Monte Carlo results not found", "Run monte_carlo_validation.py first"},
	{KindCostPrediction, "cost_estimate.json", "Cost prediction not found", "Run cost_predictor.py first"},
}

// RequiredForReady are the reports that must exist for overall_status=ready.
var RequiredForReady = []Kind{KindOptimization, KindSensitivity, KindMethodComparison}

// Charts are the visualizations tracked by /api/status.
var Charts = []string{
	"topsis_comparison",
	"sensitivity_analysis",
	"method_comparison",
	"cost_breakdown",
	"stability_indices",
	"correlation_heatmap",
	"monte_carlo_analysis",
}

func Lookup(kind Kind) (Definition, bool) {
	for _, d := range Definitions {
		if d.Kind == kind {
			return d, true
		}
	}
	return Definition{}, false
}

var (
	ErrReportNotFound = serrors.NewError("REPORT_NOT_FOUND", "report not found")
	ErrChartNotFound  = serrors.NewError("CHART_NOT_FOUND", "Chart not found")
	ErrUnreadable     = serrors.NewError("REPORT_UNREADABLE", "report could not be read")
)

const (
	StatusReady      = "ready"
	StatusIncomplete = "incomplete"
)

// Availability is the wire shape of GET /api/status.
type Availability struct {
	Reports       map[Kind]bool   `json:"-"`
	Charts        map[string]bool `json:"charts"`
	OverallStatus string          `json:"overall_status"`
}

// MarshalJSON flattens report flags next to charts and overall_status.
func (a Availability) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Reports)+2)
	for kind, ok := range a.Reports {
		out[string(kind)] = ok
	}
	charts := a.Charts
	if charts == nil {
		charts = map[string]bool{}
	}
	out["charts"] = charts
	out["overall_status"] = a.OverallStatus
	return json.Marshal(out)
}

func NewAvailability(reports map[Kind]bool, charts map[string]bool) Availability {
	status := StatusReady
	for _, kind := range RequiredForReady {
		if !reports[kind] {
			status = StatusIncomplete
			break
		}
	}
	return Availability{Reports: reports, Charts: charts, OverallStatus: status}
}
