package result

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cspx/internal/checker"
	"cspx/internal/ir"
	"cspx/internal/limits"
)

var cmpTimeOpt = cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })

func TestBuildAggregatesByPrecedence(t *testing.T) {
	checks := []Check{
		{Name: CheckCheck, Status: checker.StatusPass},
		{Name: CheckCheck, Status: checker.StatusUnsupported},
		{Name: CheckCheck, Status: checker.StatusFail},
	}
	doc := Build(Tool{Name: "cspx"}, Invocation{}, nil, checks, time.Unix(0, 0), time.Unix(1, 0))
	assert.Equal(t, "fail", doc.Status)
	assert.Equal(t, 1, doc.ExitCode)
}

func TestBuildErrorOutranksEverything(t *testing.T) {
	checks := []Check{
		{Status: checker.StatusOutOfMemory},
		{Status: checker.StatusError},
		{Status: checker.StatusFail},
	}
	doc := Build(Tool{}, Invocation{}, nil, checks, time.Now(), time.Now())
	assert.Equal(t, "error", doc.Status)
	assert.Equal(t, 2, doc.ExitCode)
}

func TestBuildAllPassing(t *testing.T) {
	checks := []Check{{Status: checker.StatusPass}, {Status: checker.StatusPass}}
	doc := Build(Tool{}, Invocation{}, nil, checks, time.Now(), time.Now())
	assert.Equal(t, "pass", doc.Status)
	assert.Equal(t, 0, doc.ExitCode)
}

func TestBuildSummaryReflectsDocument(t *testing.T) {
	doc := Build(Tool{}, Invocation{}, nil, []Check{{Status: checker.StatusTimeout}}, time.Now(), time.Now())
	summary := BuildSummary(doc, "cspx:serial")
	assert.Equal(t, SummaryTimeout, summary.Status)
	assert.Equal(t, "timeout", summary.ResultStatus)
	assert.Equal(t, 4, summary.ExitCode)
}

// A Document must survive a JSON round-trip byte-for-byte in meaning,
// since spec.md section 6 treats it as the stable on-disk record external
// tooling parses. cmp.Diff pinpoints the offending field on failure in a
// way a plain reflect.DeepEqual assertion would not for a struct this
// deeply nested.
func TestDocumentJSONRoundTrip(t *testing.T) {
	model := "FD"
	started := time.Unix(1700000000, 0).UTC()
	finished := started.Add(250 * time.Millisecond)
	inv := NewInvocation("check", []string{"spec.csp"}, "json", limits.Limits{TimeoutMS: 5000, MemoryMB: 512}, 7)
	checks := []Check{
		{
			Name:   CheckRefine,
			Model:  &model,
			Target: "Impl",
			Status: checker.StatusFail,
			Counterexample: &checker.Counterexample{
				Kind:   "trace",
				Events: []ir.Label{ir.Event("a", ir.PayloadNone, 0)},
				Tags:   []string{"refinement", "model:FD"},
			},
		},
	}
	doc := Build(Tool{Name: "cspx", Version: "0.1.0"}, inv, []Input{{Path: "spec.csp", SHA256: "deadbeef"}}, checks, started, finished)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var roundTripped Document
	require.NoError(t, json.Unmarshal(raw, &roundTripped))

	if diff := cmp.Diff(doc, roundTripped, cmpTimeOpt); diff != "" {
		t.Fatalf("round trip changed the document (-want +got):\n%s", diff)
	}
}
