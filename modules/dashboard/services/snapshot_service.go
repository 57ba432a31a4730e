package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/snapshot"
)

// SnapshotService assembles the dashboard snapshot from the result files.
// It holds no mutable state; every call reads the files afresh.
type SnapshotService struct {
	store   snapshot.DocumentStore
	labels  []string
	onBuild func(err error)
}

type SnapshotOption func(*SnapshotService)

// WithBuildObserver registers fn to be called after every snapshot build
// with its outcome.
func WithBuildObserver(fn func(err error)) SnapshotOption {
	return func(s *SnapshotService) {
		s.onBuild = fn
	}
}

// NewSnapshotService fails when two labels map to the same file names,
// e.g. "t3.micro" and "t3_micro".
func NewSnapshotService(store snapshot.DocumentStore, labels []string, opts ...SnapshotOption) (*SnapshotService, error) {
	owners := make(map[string]string, len(labels))
	for _, label := range labels {
		name := snapshot.TestFileName(label)
		if other, ok := owners[name]; ok {
			return nil, fmt.Errorf("instance labels %q and %q both resolve to %s", other, label, name)
		}
		owners[name] = label
	}
	s := &SnapshotService{
		store:   store,
		labels:  append([]string(nil), labels...),
		onBuild: func(error) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SnapshotService) Labels() []string {
	return append([]string(nil), s.labels...)
}

// GetSnapshot reads every known document. Absent documents are skipped; a
// document that exists but cannot be read or parsed fails the whole call.
func (s *SnapshotService) GetSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	snap, err := s.build(ctx)
	s.onBuild(err)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *SnapshotService) build(ctx context.Context) (*snapshot.Snapshot, error) {
	snap := snapshot.New()
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, label := range s.labels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, ok, err := s.readInstance(label)
			if err != nil || !ok {
				return err
			}
			mu.Lock()
			snap.Instances[label] = result
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		doc, _, err := s.readOptional(snapshot.OptimizationFile)
		mu.Lock()
		snap.Optimization = doc
		mu.Unlock()
		return err
	})
	g.Go(func() error {
		doc, _, err := s.readOptional(snapshot.SummaryFile)
		mu.Lock()
		snap.Summary = doc
		mu.Unlock()
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *SnapshotService) readInstance(label string) (snapshot.InstanceResult, bool, error) {
	testName := snapshot.TestFileName(label)
	metricsName := snapshot.MetricsFileName(label)

	ok, err := s.bothExist(testName, metricsName)
	if err != nil || !ok {
		return snapshot.InstanceResult{}, false, err
	}
	test, err := s.read(testName)
	if err != nil {
		return snapshot.InstanceResult{}, false, err
	}
	m, err := s.read(metricsName)
	if err != nil {
		return snapshot.InstanceResult{}, false, err
	}
	return snapshot.InstanceResult{Test: test, Metrics: m}, true, nil
}

// bothExist is the inclusion rule for a label: a test file without its
// metrics file (or the reverse) is treated as no data at all.
func (s *SnapshotService) bothExist(testName, metricsName string) (bool, error) {
	testOK, err := s.exists(testName)
	if err != nil || !testOK {
		return false, err
	}
	return s.exists(metricsName)
}

func (s *SnapshotService) readOptional(name string) (json.RawMessage, bool, error) {
	ok, err := s.exists(name)
	if err != nil || !ok {
		return nil, false, err
	}
	doc, err := s.read(name)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (s *SnapshotService) exists(name string) (bool, error) {
	ok, err := s.store.Exists(name)
	if err != nil {
		return false, fmt.Errorf("%w: %w", snapshot.ErrIOOrParse, err)
	}
	return ok, nil
}

func (s *SnapshotService) read(name string) (json.RawMessage, error) {
	doc, err := s.store.Read(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", snapshot.ErrIOOrParse, err)
	}
	return doc, nil
}
