// Package metrics records planner activity.
package metrics

// Outcome labels for RecordRun.
const (
	OutcomeSuccess = "success"
	OutcomeStuck   = "stuck"
	OutcomeInvalid = "invalid"
)

// Collector defines methods for recording planner metrics.
//
// Implementations must be safe for concurrent use; the HTTP server shares one
// collector across requests.
type Collector interface {
	// RecordRun records one planning run.
	//
	// Parameters:
	//   - outcome: OutcomeSuccess, OutcomeStuck or OutcomeInvalid
	//   - iterations: greedy loop iterations executed
	//   - seconds: wall time spent
	RecordRun(outcome string, iterations int, seconds float64)

	// RecordValidationError counts one validation finding by error type.
	RecordValidationError(kind string)
}

// NopMetrics discards all metrics.
type NopMetrics struct{}

var _ Collector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordRun discards the run metric.
func (n *NopMetrics) RecordRun(_ /* outcome */ string, _ /* iterations */ int, _ /* seconds */ float64) {
}

// RecordValidationError discards the validation metric.
func (n *NopMetrics) RecordValidationError(_ /* kind */ string) {}
