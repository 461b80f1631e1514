// Package transport serves internal/result documents over gRPC, so a CI
// orchestrator can run cspx as a long-lived process instead of shelling
// out per assertion (cspx.proto documents the wire contract this package
// implements by hand).
package transport

// CheckRequest mirrors cspx.proto's CheckRequest message.
type CheckRequest struct {
	SourcePath string   `json:"source_path"`
	Source     []byte   `json:"source"`
	Assertions []string `json:"assertions"`
	Format     string   `json:"format"`
	TimeoutMS  int64    `json:"timeout_ms"`
	MemoryMB   int64    `json:"memory_mb"`
	Workers    int32    `json:"workers"`
	Seed       int64    `json:"seed"`
}

// CheckResult mirrors cspx.proto's CheckResult message: the JSON-encoded
// internal/result.Document the same invocation would have printed to
// stdout, carried verbatim rather than re-shaped into protobuf fields.
type CheckResult struct {
	Document []byte `json:"document"`
}
