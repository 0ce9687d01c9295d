// The advisor command answers one vGPU sizing query: it loads the
// configuration, wires the collaborator providers, runs the reflection
// controller, and prints the resulting recommendation as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"k8s.io/utils/ptr"

	apiv1 "github.com/vgpu-advisor/vgpu-sizing-advisor/api/v1"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/config"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/logging"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/metrics"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/providers/nim"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/reflection"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/validator"
)

func main() {
	if err := run(); err != nil {
		if reflection.IsCollaboratorError(err) {
			fmt.Fprintln(os.Stderr, "The sizing advisor is temporarily unavailable. Please try again shortly.")
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		query       string
		dryRun      bool
		metricsAddr string
		logLevel    string
	)
	pflag.StringVar(&configPath, "config", "", "path to the advisor configuration file")
	pflag.StringVar(&query, "query", "", "sizing question to answer")
	pflag.BoolVar(&dryRun, "dry-run", false, "use scripted in-process providers instead of live services")
	pflag.StringVar(&metricsAddr, "metrics-addr", "", "listen address for Prometheus metrics, empty disables the endpoint")
	pflag.StringVar(&logLevel, "log-level", "INFO", "log verbosity: INFO, DEBUG or TRACE")
	pflag.Parse()

	if query == "" {
		return errors.New("--query is required")
	}

	// Optional, development convenience only.
	_ = godotenv.Load()

	logger := logging.NewLogger(logLevel)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	v, err := validator.New(cfg.Capacity, cfg.TargetGPU, cfg.ValidatorWorkload())
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if metricsAddr != "" {
		registry := prometheus.NewRegistry()
		m = metrics.New(registry)
		server := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("serving metrics", "addr", metricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(err, "metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	providers, err := buildProviders(ctx, cfg, dryRun)
	if err != nil {
		return err
	}

	controller, err := reflection.New(cfg.Reflection, providers, v, m, logger)
	if err != nil {
		return err
	}

	logger.Info("answering sizing query",
		"targetGPU", cfg.TargetGPU,
		"reflectionEnabled", cfg.Reflection.Enabled,
		"dryRun", dryRun)
	result, err := controller.Run(ctx, query)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// buildProviders wires the live collaborators, or the scripted fakes
// when dry-run is requested.
func buildProviders(ctx context.Context, cfg *config.AdvisorConfig, dryRun bool) (reflection.Providers, error) {
	if dryRun {
		fakes := reflection.NewFakeProviders(dryRunCandidate(), dryRunExplanation)
		return fakes.Providers(), nil
	}

	retriever, err := nim.NewRetriever(cfg.Providers.RetrievalEndpoint)
	if err != nil {
		return reflection.Providers{}, err
	}
	client, err := nim.NewLLMClient(ctx, cfg.Providers.Model)
	if err != nil {
		return reflection.Providers{}, err
	}
	return reflection.Providers{
		Retriever:    retriever,
		Relevance:    &nim.RelevanceJudge{Client: client},
		Reflector:    &nim.QueryReflector{Client: client},
		Generator:    &nim.ConfigGenerator{Client: client},
		Groundedness: &nim.GroundednessJudge{Client: client},
		Regenerator:  &nim.ResponseRegenerator{Client: client},
	}, nil
}

const dryRunExplanation = "Dry-run recommendation: an L40S-24Q profile leaves headroom above the estimated footprint of an 8B FP16 model."

func dryRunCandidate() apiv1.CandidateConfiguration {
	return apiv1.CandidateConfiguration{
		VGPUProfile:     ptr.To("L40S-24Q"),
		VCPUCount:       ptr.To(16),
		GPUMemorySizeGB: ptr.To(24),
		SystemRAMGB:     ptr.To(96),
	}
}
