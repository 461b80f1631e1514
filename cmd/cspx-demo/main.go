// Command cspx-demo is a thin runnable entry point for manual
// smoke-testing the engine (spec.md section 1 treats the command-line
// surface as an external collaborator; this is not that surface). It
// reads an already-built IR module as JSON, runs every assertion it
// declares, and prints the result document to stdout.
package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"cspx/internal/config"
	"cspx/internal/engine"
	"cspx/internal/ir"
	"cspx/internal/result"
	"cspx/internal/telemetry"
	"cspx/internal/transport"
)

var (
	cfgFile    string
	irPath     string
	metricsAddr string
	grpcAddr   string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cspx-demo",
	Short: "cspx-demo runs a CSP module's assertions and prints the result document",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run every assertion in --ir's module and print the result document",
	RunE:  runRun,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve CheckService over gRPC (and /metrics over HTTP) until interrupted",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML/JSON config file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable development-mode (human-readable) logging")

	runCmd.Flags().StringVar(&irPath, "ir", "", "path to a JSON-encoded ir.Module (required)")
	_ = runCmd.MarkFlagRequired("ir")

	serveCmd.Flags().StringVar(&grpcAddr, "grpc-addr", ":7357", "address CheckService listens on")
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address /metrics is served on; empty disables it")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadLogger() error {
	l, err := telemetry.NewLogger(verbose)
	if err != nil {
		return fmt.Errorf("cspx-demo: building logger: %w", err)
	}
	logger = l
	return nil
}

func loadModule(path string) (*ir.Module, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cspx-demo: reading %s: %w", path, err)
	}
	var m ir.Module
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("cspx-demo: decoding %s as IR: %w", path, err)
	}
	return &m, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := loadLogger(); err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("cspx-demo: %w", err)
	}

	m, err := loadModule(irPath)
	if err != nil {
		return err
	}

	inv := result.NewInvocation("run", args, "json", cfg.Limits, cfg.Seed)
	tool := result.Tool{Name: "cspx-demo", Version: "0.1.0"}
	doc, err := engine.RunAll(m, cfg, inv, []result.Input{{Path: irPath}}, tool, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("cspx-demo: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("cspx-demo: writing result document: %w", err)
	}

	summary := result.BuildSummary(doc, fmt.Sprintf("cspx:%s", backendOf(cfg)))
	logger.Info("run complete",
		zap.String("status", summary.ResultStatus),
		zap.Int("exit_code", summary.ExitCode),
	)
	os.Exit(summary.ExitCode)
	return nil
}

func backendOf(cfg config.Config) string {
	if cfg.Workers > 1 {
		return fmt.Sprintf("parallel-%d", cfg.Workers)
	}
	return "serial"
}

// runServe hosts CheckService over grpc.NewServer() and, unless
// metricsAddr is empty, exposes /metrics over promhttp — the "additive,
// not a replacement" server mode B.2 describes, for a CI orchestrator
// that wants a long-lived process rather than shelling out per
// assertion.
func runServe(cmd *cobra.Command, args []string) error {
	if err := loadLogger(); err != nil {
		return err
	}
	defer logger.Sync()

	lis, err := newListener(grpcAddr)
	if err != nil {
		return err
	}

	srv := grpc.NewServer()
	transport.RegisterCheckServiceServer(srv, transport.EngineServer{
		Tool: result.Tool{Name: "cspx-demo", Version: "0.1.0"},
		Log:  logger,
	})

	if metricsAddr != "" {
		go serveMetrics(metricsAddr)
	}

	logger.Info("serving CheckService", zap.String("addr", grpcAddr))
	return srv.Serve(lis)
}

func newListener(addr string) (net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("cspx-demo: listening on %s: %w", addr, err)
	}
	return lis, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}
