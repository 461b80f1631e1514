// Package result assembles the engine's output record: the stable,
// schema-versioned document described in spec.md section 6, and the
// small summary record an external CI orchestrator aggregates.
package result

import (
	"time"

	"github.com/google/uuid"

	"cspx/internal/checker"
	"cspx/internal/limits"
	"cspx/internal/reason"
)

const SchemaVersion = "0.1"

// Tool identifies the binary that produced a result document.
type Tool struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	GitSHA  string `json:"git_sha"`
}

// Invocation records how the engine was run, for reproducibility.
type Invocation struct {
	RunID     string   `json:"run_id"`
	Command   string   `json:"command"`
	Args      []string `json:"args"`
	Format    string   `json:"format"`
	TimeoutMS int64    `json:"timeout_ms"`
	MemoryMB  int64    `json:"memory_mb"`
	Seed      int64    `json:"seed"`
}

// NewInvocation builds an Invocation stamped with a fresh run_id. Callers
// fill in the remaining fields from the parsed command line.
func NewInvocation(command string, args []string, format string, lim limits.Limits, seed int64) Invocation {
	return Invocation{
		RunID:     uuid.NewString(),
		Command:   command,
		Args:      args,
		Format:    format,
		TimeoutMS: lim.TimeoutMS,
		MemoryMB:  lim.MemoryMB,
		Seed:      seed,
	}
}

// Input identifies one source file contributing to the checked module.
type Input struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// CheckName is one of the three check kinds spec.md section 6 names.
type CheckName string

const (
	CheckTypecheck CheckName = "typecheck"
	CheckCheck     CheckName = "check"
	CheckRefine    CheckName = "refine"
)

// Check is one entry of the result document's checks array.
type Check struct {
	Name           CheckName               `json:"name"`
	Model          *string                 `json:"model"`
	Target         string                  `json:"target"`
	Status         checker.Status          `json:"status"`
	Reason         *reason.Reason          `json:"reason,omitempty"`
	Counterexample *checker.Counterexample `json:"counterexample"`
	Stats          checker.Stats           `json:"stats"`
}

// Document is the top-level result record, schema version 0.1.
type Document struct {
	SchemaVersion string     `json:"schema_version"`
	Tool          Tool       `json:"tool"`
	Invocation    Invocation `json:"invocation"`
	Inputs        []Input    `json:"inputs"`
	Status        string     `json:"status"`
	ExitCode      int        `json:"exit_code"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at"`
	DurationMS    int64      `json:"duration_ms"`
	Checks        []Check    `json:"checks"`
}

// exitCodes maps the aggregated status to the exit code spec.md section
// 6 assigns it.
var exitCodes = map[string]int{
	"pass":          0,
	"fail":          1,
	"error":         2,
	"unsupported":   3,
	"timeout":       4,
	"out_of_memory": 5,
}

// Build assembles a Document from a tool identity, invocation record,
// input manifest, and the per-check outcomes, aggregating a top-level
// status and exit code under the precedence spec.md section 6 defines.
func Build(tool Tool, inv Invocation, inputs []Input, checks []Check, started, finished time.Time) Document {
	status := "pass"
	best := checker.StatusPass.Precedence()
	for _, c := range checks {
		if c.Status.Precedence() > best {
			best = c.Status.Precedence()
			status = string(c.Status)
		}
	}

	return Document{
		SchemaVersion: SchemaVersion,
		Tool:          tool,
		Invocation:    inv,
		Inputs:        inputs,
		Status:        status,
		ExitCode:      exitCodes[status],
		StartedAt:     started.UTC(),
		FinishedAt:    finished.UTC(),
		DurationMS:    finished.Sub(started).Milliseconds(),
		Checks:        checks,
	}
}

// SummaryStatus enumerates the summary record's status field.
type SummaryStatus string

const (
	SummaryRan         SummaryStatus = "ran"
	SummaryFailed      SummaryStatus = "failed"
	SummaryUnsupported SummaryStatus = "unsupported"
	SummaryTimeout     SummaryStatus = "timeout"
	SummaryOutOfMemory SummaryStatus = "out_of_memory"
	SummaryError       SummaryStatus = "error"
)

// Summary is the small, stable record spec.md section 6 defines for
// aggregation by an external CI orchestrator.
type Summary struct {
	Tool         string        `json:"tool"`
	Ran          bool          `json:"ran"`
	Backend      string        `json:"backend"`
	Status       SummaryStatus `json:"status"`
	ResultStatus string        `json:"resultStatus"`
	ExitCode     int           `json:"exitCode"`
}

// BuildSummary derives a Summary from a built Document and the
// exploration backend string (e.g. "cspx:serial", "cspx:parallel-4").
func BuildSummary(doc Document, backend string) Summary {
	status := SummaryRan
	switch doc.Status {
	case "fail":
		status = SummaryFailed
	case "unsupported":
		status = SummaryUnsupported
	case "timeout":
		status = SummaryTimeout
	case "out_of_memory":
		status = SummaryOutOfMemory
	case "error":
		status = SummaryError
	}

	return Summary{
		Tool:         "csp",
		Ran:          true,
		Backend:      backend,
		Status:       status,
		ResultStatus: doc.Status,
		ExitCode:     doc.ExitCode,
	}
}
