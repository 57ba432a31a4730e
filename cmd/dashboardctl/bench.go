package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type benchOptions struct {
	VUs        int
	Duration   time.Duration
	OutPath    string
	P99LimitMS int
}

type target struct {
	Endpoint string
	Path     string
	Weight   int
}

// benchTargets mirrors what the dashboard pages poll.
var benchTargets = []target{
	{Endpoint: "data", Path: "/api/data", Weight: 6},
	{Endpoint: "test-status", Path: "/api/test-status", Weight: 3},
	{Endpoint: "health", Path: "/api/health", Weight: 1},
}

func newBenchCmd(opts *globalOptions) *cobra.Command {
	var bench benchOptions

	cmd := &cobra.Command{
		Use:   "bench [--vus 4] [--duration 10s] [--out report.json]",
		Short: "Measure dashboard read latency and write a JSON report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if bench.VUs <= 0 {
				return fmt.Errorf("--vus must be positive")
			}
			if bench.Duration <= 0 {
				return fmt.Errorf("--duration must be positive")
			}

			client := newHTTPClient()
			baseURL := strings.TrimRight(opts.Addr, "/")
			if err := smokeCheck(cmd.Context(), client, baseURL); err != nil {
				return err
			}

			report := runBench(cmd.Context(), client, baseURL, bench)

			out := cmd.OutOrStdout()
			if bench.OutPath != "" {
				f, err := os.Create(bench.OutPath)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				out = f
			}
			if err := writeReport(out, report); err != nil {
				return err
			}

			for _, th := range report.Thresholds {
				if !th.OK {
					return fmt.Errorf("threshold %s exceeded: limit=%d", th.Name, th.Limit)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&bench.VUs, "vus", 4, "concurrent virtual users")
	cmd.Flags().DurationVar(&bench.Duration, "duration", 10*time.Second, "how long to generate load")
	cmd.Flags().StringVar(&bench.OutPath, "out", "", "write the report here instead of stdout")
	cmd.Flags().IntVar(&bench.P99LimitMS, "p99-limit-ms", 250, "p99 latency threshold in milliseconds")

	return cmd
}

func runBench(parent context.Context, client *http.Client, baseURL string, opts benchOptions) benchReport {
	startedAt := time.Now().UTC()
	stats := newStats()

	ctx, cancel := context.WithTimeout(parent, opts.Duration)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(opts.VUs)
	for i := 0; i < opts.VUs; i++ {
		go func(workerID int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
			for ctx.Err() == nil {
				res := doRequest(ctx, client, baseURL, pickTarget(r, benchTargets))
				// Requests cut off by the deadline say nothing about the server.
				if ctx.Err() != nil {
					return
				}
				stats.record(res)
			}
		}(i)
	}
	wg.Wait()

	report := benchReport{
		SchemaVersion: 1,
		RunID:         uuid.NewString(),
		StartedAt:     startedAt.Format(time.RFC3339),
		FinishedAt:    time.Now().UTC().Format(time.RFC3339),
		Results:       stats.results(),
	}
	report.Target.BaseURL = baseURL
	report.Profile.VUs = opts.VUs
	report.Profile.DurationSeconds = opts.Duration.Seconds()
	report.Thresholds = []benchThreshold{
		{
			Name:  "p99_ms",
			Limit: opts.P99LimitMS,
			OK:    stats.p99All() <= opts.P99LimitMS,
		},
	}
	return report
}

func writeReport(out io.Writer, report benchReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func smokeCheck(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("health check failed: status=%d", resp.StatusCode)
	}
	return nil
}

type requestResult struct {
	Endpoint   string
	DurationMS int
	StatusCode int
	Err        error
}

func doRequest(ctx context.Context, client *http.Client, baseURL string, t target) requestResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+t.Path, nil)
	if err != nil {
		return requestResult{Endpoint: t.Endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := int(time.Since(start).Milliseconds())
	if err != nil {
		return requestResult{Endpoint: t.Endpoint, DurationMS: elapsed, Err: err}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return requestResult{Endpoint: t.Endpoint, DurationMS: elapsed, StatusCode: resp.StatusCode}
}

func pickTarget(r *rand.Rand, targets []target) target {
	total := 0
	for _, t := range targets {
		total += t.Weight
	}
	x := r.Intn(total)
	for _, t := range targets {
		x -= t.Weight
		if x < 0 {
			return t
		}
	}
	return targets[len(targets)-1]
}

type endpointStats struct {
	count     int
	errors    int
	latencies []int
}

type stats struct {
	mu        sync.Mutex
	endpoints map[string]*endpointStats
}

func newStats() *stats {
	return &stats{
		endpoints: map[string]*endpointStats{},
	}
}

func (s *stats) record(res requestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	es := s.endpoints[res.Endpoint]
	if es == nil {
		es = &endpointStats{latencies: make([]int, 0, 1024)}
		s.endpoints[res.Endpoint] = es
	}
	es.count++
	if res.Err != nil || res.StatusCode >= 400 {
		es.errors++
	}
	es.latencies = append(es.latencies, res.DurationMS)
}

func (s *stats) results() []benchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]benchResult, 0, len(s.endpoints))
	for endpoint, es := range s.endpoints {
		p50, p95, p99 := percentiles(es.latencies)
		out = append(out, benchResult{
			Endpoint: endpoint,
			Count:    es.count,
			Errors:   es.errors,
			P50MS:    p50,
			P95MS:    p95,
			P99MS:    p99,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out
}

func (s *stats) p99All() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]int, 0, 4096)
	for _, es := range s.endpoints {
		all = append(all, es.latencies...)
	}
	_, _, p99 := percentiles(all)
	return p99
}

// percentiles uses nearest-rank on a sorted copy: the smallest sample with
// at least p of the samples at or below it.
func percentiles(ms []int) (int, int, int) {
	if len(ms) == 0 {
		return 0, 0, 0
	}
	cp := append([]int(nil), ms...)
	sort.Ints(cp)
	return nearestRank(cp, 0.50), nearestRank(cp, 0.95), nearestRank(cp, 0.99)
}

func nearestRank(sorted []int, p float64) int {
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

type benchReport struct {
	SchemaVersion int    `json:"schema_version"`
	RunID         string `json:"run_id"`
	StartedAt     string `json:"started_at"`
	FinishedAt    string `json:"finished_at"`
	Target        struct {
		BaseURL string `json:"base_url"`
	} `json:"target"`
	Profile struct {
		VUs             int     `json:"vus"`
		DurationSeconds float64 `json:"duration_seconds"`
	} `json:"profile"`
	Results    []benchResult    `json:"results"`
	Thresholds []benchThreshold `json:"thresholds"`
}

type benchResult struct {
	Endpoint string `json:"endpoint"`
	Count    int    `json:"count"`
	Errors   int    `json:"errors"`
	P50MS    int    `json:"p50_ms"`
	P95MS    int    `json:"p95_ms"`
	P99MS    int    `json:"p99_ms"`
}

type benchThreshold struct {
	Name  string `json:"name"`
	Limit int    `json:"limit"`
	OK    bool   `json:"ok"`
}
