package optimization

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/syurii10/cloud-optimization-project/pkg/serrors"
)

// Criterion is one column of the decision matrix.
type Criterion string

const (
	Performance  Criterion = "performance"
	ResponseTime Criterion = "response_time"
	CPUUsage     Criterion = "cpu_usage"
	MemoryUsage  Criterion = "memory_usage"
	Cost         Criterion = "cost"
)

// Criteria is the fixed column order of the decision matrix.
var Criteria = []Criterion{Performance, ResponseTime, CPUUsage, MemoryUsage, Cost}

// Benefit reports whether larger values are better. Every criterion other
// than performance is a cost.
func (c Criterion) Benefit() bool {
	return c == Performance
}

const (
	Method          = "TOPSIS"
	MinAlternatives = 2
	WeightTolerance = 0.01
)

var (
	ErrInvalidInput = serrors.NewError("OPTIMIZATION_INVALID_INPUT", "invalid optimization input")
	ErrSaveFailed   = serrors.NewError("OPTIMIZATION_SAVE_FAILED", "failed to save optimization results")
)

func invalidInput(format string, args ...any) error {
	return serrors.NewError(ErrInvalidInput.Code, fmt.Sprintf(format, args...))
}

// Alternatives maps an alternative name (an instance type) to its measured
// value per criterion.
type Alternatives map[string]map[Criterion]float64

// Validate requires at least MinAlternatives entries, each carrying every
// criterion.
func (a Alternatives) Validate() error {
	if len(a) < MinAlternatives {
		return invalidInput("At least %d alternatives required", MinAlternatives)
	}
	for _, name := range a.names() {
		for _, c := range Criteria {
			if _, ok := a[name][c]; !ok {
				return invalidInput("Missing criterion '%s' for alternative '%s'", c, name)
			}
		}
	}
	return nil
}

func (a Alternatives) names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Weights map[Criterion]float64

func DefaultWeights() Weights {
	return Weights{
		Performance:  0.35,
		ResponseTime: 0.25,
		CPUUsage:     0.15,
		MemoryUsage:  0.15,
		Cost:         0.10,
	}
}

// Validate requires a non-negative weight for every criterion, no unknown
// keys, and a total within WeightTolerance of 1.
func (w Weights) Validate() error {
	known := make(map[Criterion]struct{}, len(Criteria))
	for _, c := range Criteria {
		known[c] = struct{}{}
	}
	keys := make([]string, 0, len(w))
	for c := range w {
		keys = append(keys, string(c))
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := known[Criterion(k)]; !ok {
			return invalidInput("Unknown criterion '%s' in weights", k)
		}
	}

	total := 0.0
	for _, c := range Criteria {
		v, ok := w[c]
		if !ok {
			return invalidInput("Missing weight for criterion '%s'", c)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidInput("Weight for criterion '%s' must be a non-negative number", c)
		}
		total += v
	}
	if math.Abs(total-1) > WeightTolerance {
		return invalidInput("Weights must sum to 1.0, got %g", total)
	}
	return nil
}

func (w Weights) clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

type Ranking struct {
	Alternative         string                `json:"alternative"`
	Score               float64               `json:"score"`
	Rank                int                   `json:"rank"`
	DistanceToIdeal     float64               `json:"distance_to_ideal"`
	DistanceToAntiIdeal float64               `json:"distance_to_anti_ideal"`
	Criteria            map[Criterion]float64 `json:"criteria"`
}

type Recommendation struct {
	BestAlternative string  `json:"best_alternative"`
	Score           float64 `json:"score"`
}

// Result is the document stored as optimization_results.json.
type Result struct {
	Method          string         `json:"method"`
	CriteriaWeights Weights        `json:"criteria_weights"`
	Results         []Ranking      `json:"results"`
	BestAlternative string         `json:"best_alternative"`
	Recommendation  Recommendation `json:"recommendation"`
	CustomWeights   Weights        `json:"custom_weights,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// Rank scores every alternative by its relative closeness to the ideal
// solution. Rankings are ordered best first; equal scores keep name order.
func Rank(alts Alternatives, weights Weights) (Result, error) {
	if len(alts) == 0 {
		return Result{}, invalidInput("No alternatives to rank")
	}
	names := alts.names()
	matrix := make([][]float64, len(names))
	for i, name := range names {
		row := make([]float64, len(Criteria))
		for j, c := range Criteria {
			v, ok := alts[name][c]
			if !ok {
				return Result{}, invalidInput("Missing criterion '%s' for alternative '%s'", c, name)
			}
			row[j] = v
		}
		matrix[i] = row
	}
	w := make([]float64, len(Criteria))
	benefit := make([]bool, len(Criteria))
	for j, c := range Criteria {
		w[j] = weights[c]
		benefit[j] = c.Benefit()
	}

	weighted := Weigh(Normalize(matrix), w)
	ideal, anti := IdealSolutions(weighted, benefit)

	rankings := make([]Ranking, len(names))
	for i, name := range names {
		dPlus := distance(weighted[i], ideal)
		dMinus := distance(weighted[i], anti)
		criteria := make(map[Criterion]float64, len(Criteria))
		for j, c := range Criteria {
			criteria[c] = matrix[i][j]
		}
		rankings[i] = Ranking{
			Alternative:         name,
			Score:               closeness(dPlus, dMinus),
			DistanceToIdeal:     dPlus,
			DistanceToAntiIdeal: dMinus,
			Criteria:            criteria,
		}
	}
	sort.SliceStable(rankings, func(a, b int) bool {
		return rankings[a].Score > rankings[b].Score
	})
	for i := range rankings {
		rankings[i].Rank = i + 1
	}

	best := rankings[0]
	return Result{
		Method:          Method,
		CriteriaWeights: weights.clone(),
		Results:         rankings,
		BestAlternative: best.Alternative,
		Recommendation: Recommendation{
			BestAlternative: best.Alternative,
			Score:           best.Score,
		},
	}, nil
}

// Normalize divides every column by its Euclidean norm. All-zero columns
// stay zero.
func Normalize(matrix [][]float64) [][]float64 {
	if len(matrix) == 0 {
		return nil
	}
	cols := len(matrix[0])
	norms := make([]float64, cols)
	for _, row := range matrix {
		for j, v := range row {
			norms[j] += v * v
		}
	}
	for j := range norms {
		norms[j] = math.Sqrt(norms[j])
	}
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		out[i] = make([]float64, cols)
		for j, v := range row {
			if norms[j] != 0 {
				out[i][j] = v / norms[j]
			}
		}
	}
	return out
}

func Weigh(matrix [][]float64, weights []float64) [][]float64 {
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = v * weights[j]
		}
	}
	return out
}

// IdealSolutions picks, per column, the best and worst value: max and min
// for benefit columns, the reverse for cost columns.
func IdealSolutions(matrix [][]float64, benefit []bool) (ideal, anti []float64) {
	if len(matrix) == 0 {
		return nil, nil
	}
	cols := len(matrix[0])
	ideal = make([]float64, cols)
	anti = make([]float64, cols)
	for j := 0; j < cols; j++ {
		lo, hi := matrix[0][j], matrix[0][j]
		for _, row := range matrix[1:] {
			lo = math.Min(lo, row[j])
			hi = math.Max(hi, row[j])
		}
		if benefit[j] {
			ideal[j], anti[j] = hi, lo
		} else {
			ideal[j], anti[j] = lo, hi
		}
	}
	return ideal, anti
}

func distance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// closeness is 0.5 when the alternative is as far from the ideal as from
// the anti-ideal, including the degenerate case where both coincide.
func closeness(dPlus, dMinus float64) float64 {
	if dPlus+dMinus == 0 {
		return 0.5
	}
	return dMinus / (dPlus + dMinus)
}

// ResultWriter persists a finished optimization.
type ResultWriter interface {
	WriteJSON(name string, doc any) error
}

const ResultsFile = "optimization_results.json"

// CompletedEvent is published after a result has been stored.
type CompletedEvent struct {
	Result Result
	Custom bool
}
