package snapshot

import (
	"encoding/json"
	"strings"

	"github.com/syurii10/cloud-optimization-project/pkg/serrors"
)

const (
	OptimizationFile = "optimization_results.json"
	SummaryFile      = "results/summary.json"
)

var ErrIOOrParse = serrors.NewError("SNAPSHOT_IO_OR_PARSE", "failed to read result documents")

// DocumentStore reads opaque JSON documents by name. Exists must report
// false without error only when the document is absent.
type DocumentStore interface {
	Exists(name string) (bool, error)
	Read(name string) (json.RawMessage, error)
}

// InstanceResult pairs the load-test output and the host metrics recorded
// for a single instance label.
type InstanceResult struct {
	Test    json.RawMessage `json:"test"`
	Metrics json.RawMessage `json:"metrics"`
}

type Snapshot struct {
	Instances    map[string]InstanceResult
	Optimization json.RawMessage
	Summary      json.RawMessage
}

func New() *Snapshot {
	return &Snapshot{Instances: make(map[string]InstanceResult)}
}

func fileStem(label string) string {
	return strings.ReplaceAll(label, ".", "_")
}

// TestFileName maps "t3.micro" to "test_t3_micro.json".
func TestFileName(label string) string {
	return "test_" + fileStem(label) + ".json"
}

// MetricsFileName maps "t3.micro" to "metrics_t3_micro.json".
func MetricsFileName(label string) string {
	return "metrics_" + fileStem(label) + ".json"
}
