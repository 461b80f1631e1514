// Package checker implements the four LTS decision algorithms spec.md
// section 4.5 describes: deadlock, divergence, determinism, and
// refinement at models T, F, and FD. Each checker consumes a module and
// a target (single process, or spec/impl pair), drives exploration
// through internal/explorer, and produces a CheckOutcome.
package checker

import (
	"cspx/internal/ir"
	"cspx/internal/limits"
	"cspx/internal/reason"
)

// Status is one of the six outcomes spec.md section 4.5 enumerates.
type Status string

const (
	StatusPass        Status = "pass"
	StatusFail        Status = "fail"
	StatusUnsupported Status = "unsupported"
	StatusError       Status = "error"
	StatusTimeout     Status = "timeout"
	StatusOutOfMemory Status = "out_of_memory"
)

// Precedence ranks Status under the aggregation order spec.md section 6
// defines: error > out_of_memory > timeout > fail > unsupported > pass.
// Higher is more severe.
func (s Status) Precedence() int {
	switch s {
	case StatusError:
		return 5
	case StatusOutOfMemory:
		return 4
	case StatusTimeout:
		return 3
	case StatusFail:
		return 2
	case StatusUnsupported:
		return 1
	default:
		return 0
	}
}

// Counterexample is the tagged variant record from spec.md section 3.
type Counterexample struct {
	Kind        string     `json:"kind"` // always "trace"
	Events      []ir.Label `json:"events"`
	Tags        []string   `json:"tags"`
	SourceSpans []ir.Span  `json:"source_spans"`
	IsMinimized bool       `json:"is_minimized"`
}

// Stats is the {states,transitions} counter pair from spec.md section 3.
type Stats struct {
	States      int `json:"states"`
	Transitions int `json:"transitions"`
}

// CheckOutcome is one checker's run() result, per spec.md section 4.5.
type CheckOutcome struct {
	Status         Status
	Reason         *reason.Reason
	Counterexample *Counterexample
	Stats          Stats
}

// Pass builds a passing outcome carrying exploration statistics.
func Pass(stats Stats) CheckOutcome {
	return CheckOutcome{Status: StatusPass, Stats: stats}
}

// Fail builds a failing outcome carrying a counterexample.
func Fail(stats Stats, ce *Counterexample) CheckOutcome {
	return CheckOutcome{Status: StatusFail, Stats: stats, Counterexample: ce}
}

// FromReason maps a *reason.Reason returned by the explorer into the
// matching terminal Status, per spec.md section 7's category table.
func FromReason(stats Stats, r *reason.Reason) CheckOutcome {
	switch r.Kind {
	case reason.Timeout:
		return CheckOutcome{Status: StatusTimeout, Reason: r, Stats: stats}
	case reason.OutOfMemory:
		return CheckOutcome{Status: StatusOutOfMemory, Reason: r, Stats: stats}
	case reason.UnsupportedSyntax, reason.NotImplemented:
		return CheckOutcome{Status: StatusUnsupported, Reason: r, Stats: stats}
	default:
		return CheckOutcome{Status: StatusError, Reason: r, Stats: stats}
	}
}

// Target names the single process a deadlock, divergence, or
// determinism assertion checks.
type Target struct {
	Process *ir.Process
}

// RefinementTarget names the spec/impl pair and model a refinement
// assertion checks.
type RefinementTarget struct {
	Spec, Impl *ir.Process
	Model      ir.RefinementModel
}

// newBudget is a small convenience shared by every checker's explored
// call; kept here rather than duplicated per file.
func newBudget(l limits.Limits) *limits.Budget {
	return limits.NewBudget(l)
}
