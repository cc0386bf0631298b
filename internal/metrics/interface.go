// Tensor statistics used to sanity-check preprocessing output
package metrics

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"industrial-image-preprocessing/internal/core"
)

// Metric defines the interface for tensor statistics
type Metric interface {
	// Calculate computes the metric value
	Calculate(t core.Tensor) (float64, error)

	// GetName returns the metric name
	GetName() string

	// GetDescription returns the metric description
	GetDescription() string
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric
}

// NewEvaluator creates a new metrics evaluator
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}

	e.RegisterDefaultMetrics()

	return e
}

// RegisterDefaultMetrics registers all default metrics
func (e *Evaluator) RegisterDefaultMetrics() {
	e.Register("min", NewMinimum())
	e.Register("max", NewMaximum())
	e.Register("mean", NewMean())
	e.Register("contrast", NewContrast())
	e.Register("sharpness", NewSharpness())
}

// Register registers a metric
func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

// Names returns registered metric names in sorted order
func (e *Evaluator) Names() []string {
	names := make([]string, 0, len(e.metrics))
	for name := range e.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Calculate calculates a specific metric
func (e *Evaluator) Calculate(name string, t core.Tensor) (float64, error) {
	metric, exists := e.metrics[name]
	if !exists {
		return 0, errors.Errorf("metric not found: %s", name)
	}

	return metric.Calculate(t)
}

// CalculateAll calculates all registered metrics, skipping any that fail
func (e *Evaluator) CalculateAll(t core.Tensor) map[string]float64 {
	results := make(map[string]float64)

	for name, metric := range e.metrics {
		if value, err := metric.Calculate(t); err == nil {
			results[name] = value
		}
	}

	return results
}

// Report summarizes a tensor and flags values a model should never receive
type Report struct {
	Shape     [3]int             `json:"shape"`
	Metrics   map[string]float64 `json:"metrics"`
	Issues    []string           `json:"issues"`
	Timestamp string             `json:"timestamp"`
}

// Flat output below this contrast usually means a blank or saturated capture.
const flatContrast = 1e-3

// GenerateReport calculates all metrics and checks the output range
func (e *Evaluator) GenerateReport(t core.Tensor) Report {
	m := e.CalculateAll(t)

	report := Report{
		Shape:     t.Shape(),
		Metrics:   m,
		Issues:    make([]string, 0),
		Timestamp: time.Now().Format(core.TimestampFormat),
	}

	if v, ok := m["min"]; ok && v < 0 {
		report.Issues = append(report.Issues, "values below 0")
	}
	if v, ok := m["max"]; ok && v > 1 {
		report.Issues = append(report.Issues, "values above 1")
	}
	if v, ok := m["contrast"]; ok && v < flatContrast {
		report.Issues = append(report.Issues, "image is flat")
	}

	return report
}
