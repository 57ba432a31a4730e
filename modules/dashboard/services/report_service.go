package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/report"
)

// ReportService serves the documents and charts written by the offline
// analysis scripts.
type ReportService struct {
	reports report.DocumentStore
	charts  report.ChartStore
}

func NewReportService(reports report.DocumentStore, charts report.ChartStore) *ReportService {
	return &ReportService{reports: reports, charts: charts}
}

func (s *ReportService) Document(_ context.Context, kind report.Kind) (json.RawMessage, error) {
	def, ok := report.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown report %q", report.ErrReportNotFound, kind)
	}
	exists, err := s.reports.Exists(def.File)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", report.ErrUnreadable, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", report.ErrReportNotFound, def.File)
	}
	doc, err := s.reports.Read(def.File)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", report.ErrUnreadable, err)
	}
	return doc, nil
}

// ChartPath returns the file backing the named chart. Names that are not a
// plain image file name inside the charts directory are reported as missing.
func (s *ReportService) ChartPath(_ context.Context, name string) (string, error) {
	if !validChartName(name) {
		return "", fmt.Errorf("%w: %q", report.ErrChartNotFound, name)
	}
	exists, err := s.charts.Exists(name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", report.ErrUnreadable, err)
	}
	if !exists {
		return "", fmt.Errorf("%w: %q", report.ErrChartNotFound, name)
	}
	return s.charts.Path(name), nil
}

func validChartName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	if filepath.Base(name) != name {
		return false
	}
	return report.IsImageName(name)
}

func (s *ReportService) AvailableCharts(_ context.Context) ([]string, error) {
	names, err := s.charts.List(report.ImageExts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", report.ErrUnreadable, err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// SuggestCharts returns every available chart, those that fuzzily match
// the requested name first (closest first), the rest in name order.
func (s *ReportService) SuggestCharts(ctx context.Context, requested string) ([]string, error) {
	names, err := s.AvailableCharts(ctx)
	if err != nil || len(names) == 0 {
		return names, err
	}
	query := strings.TrimSuffix(filepath.Base(requested), filepath.Ext(requested))
	if query == "" || query == "." || query == string(filepath.Separator) {
		return names, nil
	}
	ranks := fuzzy.RankFindNormalizedFold(query, names)
	sort.Stable(ranks)

	out := make([]string, 0, len(names))
	matched := make(map[int]bool, len(ranks))
	for _, r := range ranks {
		if matched[r.OriginalIndex] {
			continue
		}
		matched[r.OriginalIndex] = true
		out = append(out, names[r.OriginalIndex])
	}
	for i, name := range names {
		if !matched[i] {
			out = append(out, name)
		}
	}
	return out, nil
}

func (s *ReportService) Availability(_ context.Context) (report.Availability, error) {
	reports := make(map[report.Kind]bool, len(report.Definitions))
	for _, def := range report.Definitions {
		ok, err := s.reports.Exists(def.File)
		if err != nil {
			return report.Availability{}, fmt.Errorf("%w: %w", report.ErrUnreadable, err)
		}
		reports[def.Kind] = ok
	}
	charts := make(map[string]bool, len(report.Charts))
	for _, chart := range report.Charts {
		ok, err := s.charts.Exists(chart + report.ChartExt)
		if err != nil {
			return report.Availability{}, fmt.Errorf("%w: %w", report.ErrUnreadable, err)
		}
		charts[chart] = ok
	}
	return report.NewAvailability(reports, charts), nil
}
