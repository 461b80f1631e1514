// Package telemetry constructs the zap logger cspx's engine and CLI
// surface share, following the construction style of gnoverse-tlin's
// cmd package (a package-level *zap.Logger built once at startup and
// passed down explicitly rather than through a global).
package telemetry

import "go.uber.org/zap"

// NewLogger builds a production logger, or a development logger with
// human-readable console output when verbose is set.
func NewLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
