package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"cspx/internal/config"
	"cspx/internal/engine"
	"cspx/internal/ir"
	"cspx/internal/limits"
	"cspx/internal/result"
)

// EngineServer implements CheckServiceServer by unmarshalling req.Source
// as a JSON-encoded ir.Module (the shape the front-end's IR takes once
// serialized, per spec.md section 3's "IR consumed from the front-end")
// and handing it to engine.RunAll, filtering to req.Assertions when
// non-empty.
type EngineServer struct {
	Tool result.Tool
	Log  *zap.Logger
}

func (s EngineServer) Check(ctx context.Context, req *CheckRequest) (*CheckResult, error) {
	var m ir.Module
	if err := json.Unmarshal(req.Source, &m); err != nil {
		return nil, fmt.Errorf("transport: decoding source as IR: %w", err)
	}
	if len(req.Assertions) > 0 {
		m.Assertions = filterAssertions(m.Assertions, req.Assertions)
	}

	cfg := config.Config{
		Limits:  limits.Limits{TimeoutMS: req.TimeoutMS, MemoryMB: req.MemoryMB},
		Store:   config.StoreMemory,
		Workers: int(req.Workers),
		Seed:    req.Seed,
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	format := req.Format
	if format == "" {
		format = "json"
	}
	inv := result.NewInvocation("check", req.Assertions, format, cfg.Limits, req.Seed)
	inputs := []result.Input{{Path: req.SourcePath}}

	doc, err := engine.RunAll(&m, cfg, inv, inputs, s.Tool, s.Log, nil)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("transport: encoding result document: %w", err)
	}
	return &CheckResult{Document: raw}, nil
}

// filterAssertions keeps only the assertions whose String() form is
// named in want, preserving all's declaration order.
func filterAssertions(all []ir.Assertion, want []string) []ir.Assertion {
	wantSet := make(map[string]bool, len(want))
	for _, w := range want {
		wantSet[w] = true
	}
	var out []ir.Assertion
	for _, a := range all {
		if wantSet[a.String()] {
			out = append(out, a)
		}
	}
	return out
}
