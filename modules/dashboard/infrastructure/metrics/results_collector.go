package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/report"
)

// ReportSource returns a stored report document. Missing reports are an
// error; the collector skips them.
type ReportSource interface {
	Document(ctx context.Context, kind report.Kind) (json.RawMessage, error)
}

const collectTimeout = 5 * time.Second

var (
	topsisScoreDesc = prometheus.NewDesc(
		"topsis_score",
		"TOPSIS optimization score (0-1).",
		[]string{"instance", "rank"}, nil,
	)
	probabilityBestDesc = prometheus.NewDesc(
		"topsis_probability_best",
		"Probability of being the best alternative across Monte Carlo runs.",
		[]string{"instance"}, nil,
	)
	ciLowerDesc = prometheus.NewDesc(
		"topsis_confidence_interval_lower",
		"Lower bound of the Monte Carlo score confidence interval.",
		[]string{"instance"}, nil,
	)
	ciUpperDesc = prometheus.NewDesc(
		"topsis_confidence_interval_upper",
		"Upper bound of the Monte Carlo score confidence interval.",
		[]string{"instance"}, nil,
	)
	costDesc = prometheus.NewDesc(
		"optimization_cost_dollars",
		"Estimated total cost of the test suite in USD.",
		nil, nil,
	)

	reportDecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "report_metrics",
		Name:      "decode_errors_total",
		Help:      "Report documents that could not be read or decoded into metrics, by report.",
	}, []string{"report"})

	resultsCollector = registerResultsCollector()
)

// ResultsCollector exposes the stored analysis reports as gauges. Values are
// read on every scrape, so they follow the files without a restart.
type ResultsCollector struct {
	mu     sync.RWMutex
	source ReportSource
}

func NewResultsCollector(source ReportSource) *ResultsCollector {
	return &ResultsCollector{source: source}
}

func registerResultsCollector() *ResultsCollector {
	c := NewResultsCollector(nil)
	prometheus.MustRegister(c)
	return c
}

// UseReportSource points the process-wide collector at source.
func UseReportSource(source ReportSource) {
	resultsCollector.SetSource(source)
}

func (c *ResultsCollector) SetSource(source ReportSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = source
}

func (c *ResultsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- topsisScoreDesc
	ch <- probabilityBestDesc
	ch <- ciLowerDesc
	ch <- ciUpperDesc
	ch <- costDesc
}

func (c *ResultsCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	source := c.source
	c.mu.RUnlock()
	if source == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	var optimization struct {
		Results []struct {
			Alternative string  `json:"alternative"`
			Score       float64 `json:"score"`
			Rank        int     `json:"rank"`
		} `json:"results"`
	}
	if load(ctx, source, report.KindOptimization, &optimization) {
		seen := make(map[string]bool, len(optimization.Results))
		for _, r := range optimization.Results {
			// A repeated series would fail the whole scrape.
			if seen[r.Alternative] {
				continue
			}
			seen[r.Alternative] = true
			ch <- prometheus.MustNewConstMetric(topsisScoreDesc, prometheus.GaugeValue, r.Score, r.Alternative, strconv.Itoa(r.Rank))
		}
	}

	var monteCarlo struct {
		Alternatives map[string]struct {
			ProbabilityBest    float64 `json:"probability_best"`
			ConfidenceInterval struct {
				Lower float64 `json:"lower"`
				Upper float64 `json:"upper"`
			} `json:"confidence_interval"`
		} `json:"alternatives"`
	}
	if load(ctx, source, report.KindMonteCarlo, &monteCarlo) {
		for name, alt := range monteCarlo.Alternatives {
			ch <- prometheus.MustNewConstMetric(probabilityBestDesc, prometheus.GaugeValue, alt.ProbabilityBest, name)
			ch <- prometheus.MustNewConstMetric(ciLowerDesc, prometheus.GaugeValue, alt.ConfidenceInterval.Lower, name)
			ch <- prometheus.MustNewConstMetric(ciUpperDesc, prometheus.GaugeValue, alt.ConfidenceInterval.Upper, name)
		}
	}

	// Older estimates carry total_cost at the top level; current ones
	// nest it under costs.total.
	var cost struct {
		TotalCost *float64 `json:"total_cost"`
		Costs     struct {
			Total *float64 `json:"total"`
		} `json:"costs"`
	}
	if load(ctx, source, report.KindCostPrediction, &cost) {
		switch {
		case cost.TotalCost != nil:
			ch <- prometheus.MustNewConstMetric(costDesc, prometheus.GaugeValue, *cost.TotalCost)
		case cost.Costs.Total != nil:
			ch <- prometheus.MustNewConstMetric(costDesc, prometheus.GaugeValue, *cost.Costs.Total)
		}
	}
}

// load reports whether the document exists and decoded into v. Decode
// failures are counted rather than failing the scrape.
func load(ctx context.Context, source ReportSource, kind report.Kind, v any) bool {
	doc, err := source.Document(ctx, kind)
	if err != nil {
		if !errors.Is(err, report.ErrReportNotFound) {
			reportDecodeErrors.WithLabelValues(string(kind)).Inc()
		}
		return false
	}
	if err := json.Unmarshal(doc, v); err != nil {
		reportDecodeErrors.WithLabelValues(string(kind)).Inc()
		return false
	}
	return true
}
