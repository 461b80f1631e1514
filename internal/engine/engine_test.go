package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cspx/internal/config"
	"cspx/internal/ir"
	"cspx/internal/limits"
	"cspx/internal/result"
)

func eventA() ir.Label { return ir.Event("a", ir.PayloadNone, 0) }
func eventB() ir.Label { return ir.Event("b", ir.PayloadNone, 0) }

func testConfig() config.Config {
	return config.Config{
		Store:   config.StoreMemory,
		Workers: 1,
		Limits:  limits.Limits{TimeoutMS: 5000},
	}
}

// RunAll must run every assertion in declaration order and aggregate to
// the worst status present (spec.md section 6's precedence).
func TestRunAllAggregatesAcrossAssertions(t *testing.T) {
	m := ir.NewModule()
	m.Processes["Ok"] = &ir.Process{Name: "Ok", Body: ir.Prefix(eventA(), ir.Ref("Ok", ir.Span{}), ir.Span{})}
	m.Processes["Stuck"] = &ir.Process{Name: "Stuck", Body: ir.Prefix(eventA(), ir.Stop(ir.Span{}), ir.Span{})}
	m.Assertions = []ir.Assertion{
		{Target: "Ok", Property: ir.PropertyDeadlockFree},
		{Target: "Stuck", Property: ir.PropertyDeadlockFree},
	}

	log := zap.NewNop()
	doc, err := RunAll(m, testConfig(), result.NewInvocation("check", nil, "json", limits.Limits{}, 1), nil, result.Tool{Name: "cspx"}, log, nil)
	require.NoError(t, err)

	require.Len(t, doc.Checks, 2)
	assert.Equal(t, "pass", string(doc.Checks[0].Status))
	assert.Equal(t, "fail", string(doc.Checks[1].Status))
	assert.Equal(t, "fail", doc.Status)
	assert.Equal(t, 1, doc.ExitCode)
}

// A refinement assertion dispatches to the matching model's checker and
// tags the produced Check with its model string.
func TestRunAllDispatchesRefinement(t *testing.T) {
	m := ir.NewModule()
	m.Processes["Spec"] = &ir.Process{Name: "Spec", Body: ir.Prefix(eventA(), ir.Stop(ir.Span{}), ir.Span{})}
	m.Processes["Impl"] = &ir.Process{Name: "Impl", Body: ir.Prefix(eventA(), ir.Prefix(eventB(), ir.Stop(ir.Span{}), ir.Span{}), ir.Span{})}
	m.Assertions = []ir.Assertion{
		{IsRefinement: true, SpecProcess: "Spec", ImplProcess: "Impl", Model: ir.ModelT},
	}

	doc, err := RunAll(m, testConfig(), result.NewInvocation("check", nil, "json", limits.Limits{}, 1), nil, result.Tool{Name: "cspx"}, zap.NewNop(), nil)
	require.NoError(t, err)

	require.Len(t, doc.Checks, 1)
	assert.Equal(t, result.CheckRefine, doc.Checks[0].Name)
	require.NotNil(t, doc.Checks[0].Model)
	assert.Equal(t, "T", *doc.Checks[0].Model)
	assert.Equal(t, "fail", string(doc.Checks[0].Status))
}

// An assertion naming an undeclared process must not abort the batch:
// it surfaces as a single error-status check (spec.md section 7,
// invalid_input), and the document still builds.
func TestRunAllErrorsOnUnknownTarget(t *testing.T) {
	m := ir.NewModule()
	m.Assertions = []ir.Assertion{{Target: "Missing", Property: ir.PropertyDeadlockFree}}

	doc, err := RunAll(m, testConfig(), result.NewInvocation("check", nil, "json", limits.Limits{}, 1), nil, result.Tool{Name: "cspx"}, zap.NewNop(), nil)
	require.NoError(t, err)

	require.Len(t, doc.Checks, 1)
	assert.Equal(t, "error", string(doc.Checks[0].Status))
	require.NotNil(t, doc.Checks[0].Reason)
	assert.Equal(t, "invalid_input", string(doc.Checks[0].Reason.Kind))
	assert.Equal(t, "error", doc.Status)
	assert.Equal(t, 2, doc.ExitCode)
}

// A batch mixing a resolvable failure and an unresolvable assertion
// aggregates to the worse of the two (error outranks fail, spec.md
// section 6's precedence), with both checks present in the document.
func TestRunAllContinuesPastUnknownTarget(t *testing.T) {
	m := ir.NewModule()
	m.Processes["Stuck"] = &ir.Process{Name: "Stuck", Body: ir.Prefix(eventA(), ir.Stop(ir.Span{}), ir.Span{})}
	m.Assertions = []ir.Assertion{
		{Target: "Stuck", Property: ir.PropertyDeadlockFree},
		{Target: "Missing", Property: ir.PropertyDeadlockFree},
	}

	doc, err := RunAll(m, testConfig(), result.NewInvocation("check", nil, "json", limits.Limits{}, 1), nil, result.Tool{Name: "cspx"}, zap.NewNop(), nil)
	require.NoError(t, err)

	require.Len(t, doc.Checks, 2)
	assert.Equal(t, "fail", string(doc.Checks[0].Status))
	assert.Equal(t, "error", string(doc.Checks[1].Status))
	assert.Equal(t, "error", doc.Status)
	assert.Equal(t, 2, doc.ExitCode)
}
