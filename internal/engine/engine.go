// Package engine is the library entry point spec.md section 6 assumes
// but never names: it walks a module's assertion list in declaration
// order, dispatches each to the matching checker from internal/checker,
// and folds the results into a result.Document. cmd/cspx-demo and
// internal/transport.EngineServer are both thin callers of RunAll.
package engine

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"cspx/internal/checker"
	"cspx/internal/config"
	"cspx/internal/ir"
	"cspx/internal/metrics"
	"cspx/internal/reason"
	"cspx/internal/result"
	"cspx/internal/store"
)

// RunAll implements the "single global assertion order" batch execution
// spec.md section 6 references: one checker run per assertion, in
// declaration order, folded into one result.Document via the section's
// aggregation precedence (checker.Status.Precedence). reg receives the
// per-store metrics B.6 describes; pass nil to opt out (as every test
// and internal/transport.EngineServer does).
//
// runOne never fails a batch: an assertion naming an undeclared process,
// an unknown property, or a malformed refinement model produces one
// error-status Check (reason.kind=invalid_input) rather than aborting
// the remaining assertions, per spec.md section 7 ("recovery is local to
// a check; the engine never raises out of one check into another") and
// section 6's aggregation precedence, which already treats error as
// just another per-check status.
func RunAll(m *ir.Module, cfg config.Config, inv result.Invocation, inputs []result.Input, tool result.Tool, log *zap.Logger, reg prometheus.Registerer) (result.Document, error) {
	started := time.Now()

	checks := make([]result.Check, 0, len(m.Assertions))
	for _, a := range m.Assertions {
		checkStarted := time.Now()
		c := runOne(m, a, cfg, log, reg)
		log.Debug("check finished",
			zap.String("target", a.String()),
			zap.String("status", string(c.Status)),
			zap.Duration("elapsed", time.Since(checkStarted)),
		)
		checks = append(checks, c)
	}

	finished := time.Now()
	return result.Build(tool, inv, inputs, checks, started, finished), nil
}

// runOne resolves a's target process(es) and runs the matching checker,
// per spec.md section 4.5's dispatch table.
func runOne(m *ir.Module, a ir.Assertion, cfg config.Config, log *zap.Logger, reg prometheus.Registerer) result.Check {
	if a.IsRefinement {
		return runRefinement(m, a, cfg)
	}
	return runProperty(m, a, cfg, log, reg)
}

// invalidInputCheck builds the error-status Check spec.md section 7's
// invalid_input category describes for an assertion the engine cannot
// resolve against m (an undeclared process, or a malformed property/
// model selector the IR should never carry but an external front-end
// might still emit).
func invalidInputCheck(name result.CheckName, model *string, target string, format string, args ...any) result.Check {
	return result.Check{
		Name:   name,
		Model:  model,
		Target: target,
		Status: checker.StatusError,
		Reason: reason.New(reason.InvalidInput, fmt.Sprintf(format, args...)),
	}
}

func runProperty(m *ir.Module, a ir.Assertion, cfg config.Config, log *zap.Logger, reg prometheus.Registerer) result.Check {
	target, ok := m.Lookup(a.Target)
	if !ok {
		return invalidInputCheck(result.CheckCheck, nil, a.Target, "engine: assertion %s: unknown process %q", a, a.Target)
	}

	switch a.Property {
	case ir.PropertyDeadlockFree:
		st, closeFn, err := openStore(cfg, log, reg)
		if err != nil {
			return invalidInputCheck(result.CheckCheck, nil, a.Target, "%s", err)
		}
		defer closeFn()
		out := checker.Deadlock{Module: m, Workers: cfg.Workers}.Run(target, st, cfg.Limits)
		return toCheck(result.CheckCheck, nil, a.Target, out)

	case ir.PropertyDivergenceFree:
		st, closeFn, err := openStore(cfg, log, reg)
		if err != nil {
			return invalidInputCheck(result.CheckCheck, nil, a.Target, "%s", err)
		}
		defer closeFn()
		out := checker.Divergence{Module: m, Workers: cfg.Workers}.Run(target, st, cfg.Limits)
		return toCheck(result.CheckCheck, nil, a.Target, out)

	case ir.PropertyDeterministic:
		out := checker.Determinism{Module: m}.Run(target, cfg.Limits)
		return toCheck(result.CheckCheck, nil, a.Target, out)

	default:
		return invalidInputCheck(result.CheckCheck, nil, a.Target, "engine: assertion %s: unknown property %v", a, a.Property)
	}
}

func runRefinement(m *ir.Module, a ir.Assertion, cfg config.Config) result.Check {
	spec, ok := m.Lookup(a.SpecProcess)
	if !ok {
		return invalidInputCheck(result.CheckRefine, nil, a.ImplProcess, "engine: assertion %s: unknown spec process %q", a, a.SpecProcess)
	}
	impl, ok := m.Lookup(a.ImplProcess)
	if !ok {
		return invalidInputCheck(result.CheckRefine, nil, a.ImplProcess, "engine: assertion %s: unknown impl process %q", a, a.ImplProcess)
	}

	model := a.Model.String()
	var out checker.CheckOutcome
	switch a.Model {
	case ir.ModelT:
		out = checker.RefineT{Module: m}.Run(spec, impl, cfg.Limits)
	case ir.ModelF:
		out = checker.RefineF{Module: m}.Run(spec, impl, cfg.Limits)
	case ir.ModelFD:
		out = checker.RefineFD{Module: m}.Run(spec, impl, cfg.Limits)
	default:
		return invalidInputCheck(result.CheckRefine, &model, a.ImplProcess, "engine: assertion %s: unknown refinement model %v", a, a.Model)
	}
	return toCheck(result.CheckRefine, &model, a.ImplProcess, out)
}

func toCheck(name result.CheckName, model *string, target string, out checker.CheckOutcome) result.Check {
	var ce *checker.Counterexample
	if out.Counterexample != nil {
		ce = out.Counterexample
	}
	return result.Check{
		Name:           name,
		Model:          model,
		Target:         target,
		Status:         out.Status,
		Reason:         out.Reason,
		Counterexample: ce,
		Stats:          out.Stats,
	}
}

// openStore builds the store.Store cfg.Store selects, opened against
// cfg.StorePath/cfg.MemoryCapacity, and returns a closer the caller must
// defer. Deadlock and divergence checking are the only two checkers that
// need a store; refinement and determinism walk closures held entirely
// in memory (spec.md section 4.5.3's rationale applies equally to their
// joint-BFS pair-state visited sets).
func openStore(cfg config.Config, log *zap.Logger, reg prometheus.Registerer) (store.Store, func() error, error) {
	var st store.Store
	switch cfg.Store {
	case config.StoreMemory:
		st = store.NewMemory()
	case config.StoreDisk:
		st = store.NewDisk(metrics.NewStoreMetrics(reg))
	case config.StoreHybrid:
		st = store.NewHybrid(store.NewDisk(metrics.NewStoreMetrics(reg)))
	default:
		return nil, nil, fmt.Errorf("engine: unknown store kind %q", cfg.Store)
	}

	if err := st.Open(store.Config{Path: cfg.StorePath, MemoryCapacity: cfg.MemoryCapacity}); err != nil {
		return nil, nil, fmt.Errorf("engine: opening %s store: %w", cfg.Store, err)
	}
	log.Debug("store opened", zap.String("kind", string(cfg.Store)), zap.String("path", cfg.StorePath))
	return st, st.Close, nil
}
