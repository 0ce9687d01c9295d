package reflection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"

	apiv1 "github.com/vgpu-advisor/vgpu-sizing-advisor/api/v1"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/config"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/logging"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/metrics"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/validator"
)

// Query is one version of the user's question. Version 0 is the
// original text; each rewrite produces version+1.
type Query struct {
	Text    string
	Version int
}

// ContextSet ties retrieved chunks to the query version that produced
// them. Sets are immutable snapshots; iterations produce new sets
// rather than mutating earlier ones.
type ContextSet struct {
	Chunks       []apiv1.ContextChunk
	QueryVersion int
}

// Controller runs the two-phase self-correction loop for one query at
// a time. It holds only immutable configuration and is safe for
// concurrent use.
type Controller struct {
	cfg       config.ReflectionConfig
	providers Providers
	validator *validator.Validator
	metrics   *metrics.Metrics
	log       logr.Logger
}

// New creates a Controller. The metrics sink may be nil.
func New(cfg config.ReflectionConfig, providers Providers, v *validator.Validator, m *metrics.Metrics, log logr.Logger) (*Controller, error) {
	if err := providers.Validate(); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.New("validator is required")
	}
	if cfg.CallTimeout <= 0 {
		return nil, fmt.Errorf("call timeout must be positive, got %s", cfg.CallTimeout)
	}
	return &Controller{
		cfg:       cfg,
		providers: providers,
		validator: v,
		metrics:   m,
		log:       log,
	}, nil
}

// Run executes both phases for one query and returns the terminal
// result. On collaborator failure or cancellation it returns an error
// and no partial result.
func (c *Controller) Run(ctx context.Context, queryText string) (*apiv1.ReflectionResult, error) {
	start := time.Now()

	accepted, acceptedQuery, relevanceIters, phaseAReason, err := c.relevancePhase(ctx, queryText)
	if err != nil {
		return nil, err
	}

	result, err := c.generationPhase(ctx, acceptedQuery, accepted, phaseAReason)
	if err != nil {
		return nil, err
	}
	result.Context = accepted.Chunks
	result.RelevanceIterations = relevanceIters

	c.metrics.ObserveRun(string(result.TerminalReason), relevanceIters, result.GenerationIterations, time.Since(start))
	c.log.V(logging.DEBUG).Info("reflection run finished",
		"terminalReason", result.TerminalReason,
		"relevanceIterations", relevanceIters,
		"generationIterations", result.GenerationIterations,
		"elapsed", time.Since(start))
	return result, nil
}

// relevancePhase retrieves context for the query, rewriting it until
// the relevance threshold is met or the budget runs out. It returns
// the accepted context set, the query text that produced it, the
// number of rewrites performed, and the terminal reason this phase
// contributes, if any.
func (c *Controller) relevancePhase(ctx context.Context, queryText string) (ContextSet, string, int, apiv1.TerminalReason, error) {
	query := Query{Text: queryText, Version: 0}

	chunks, err := call(ctx, c, OpRetrieve, func(ctx context.Context) ([]apiv1.ContextChunk, error) {
		return c.providers.Retriever.Retrieve(ctx, query.Text)
	})
	if err != nil {
		return ContextSet{}, "", 0, "", err
	}
	current := ContextSet{Chunks: chunks, QueryVersion: query.Version}

	if !c.cfg.Enabled {
		return current, query.Text, 0, apiv1.ReasonDisabled, nil
	}

	score, err := c.scoreRelevance(ctx, query, current)
	if err != nil {
		return ContextSet{}, "", 0, "", err
	}

	best, bestQuery, bestScore := current, query.Text, score
	iterations := 0
	for score < c.cfg.RelevanceThreshold && iterations < c.cfg.MaxLoop {
		rewritten, err := call(ctx, c, OpRewriteQuery, func(ctx context.Context) (string, error) {
			return c.providers.Reflector.RewriteQuery(ctx, query.Text)
		})
		if err != nil {
			return ContextSet{}, "", 0, "", err
		}
		query = Query{Text: rewritten, Version: query.Version + 1}
		iterations++
		c.log.V(logging.DEBUG).Info("query rewritten", "version", query.Version)

		chunks, err = call(ctx, c, OpRetrieve, func(ctx context.Context) ([]apiv1.ContextChunk, error) {
			return c.providers.Retriever.Retrieve(ctx, query.Text)
		})
		if err != nil {
			return ContextSet{}, "", 0, "", err
		}
		current = ContextSet{Chunks: chunks, QueryVersion: query.Version}

		score, err = c.scoreRelevance(ctx, query, current)
		if err != nil {
			return ContextSet{}, "", 0, "", err
		}
		// On a tie the more recent set wins.
		if score >= bestScore {
			best, bestQuery, bestScore = current, query.Text, score
		}
	}

	if score >= c.cfg.RelevanceThreshold {
		return current, query.Text, iterations, "", nil
	}
	c.log.V(logging.DEBUG).Info("relevance budget exhausted",
		"iterations", iterations, "bestScore", bestScore, "bestVersion", best.QueryVersion)
	return best, bestQuery, iterations, apiv1.ReasonExhaustedRelevance, nil
}

func (c *Controller) scoreRelevance(ctx context.Context, query Query, set ContextSet) (int, error) {
	score, err := call(ctx, c, OpScoreRelevance, func(ctx context.Context) (int, error) {
		return c.providers.Relevance.ScoreRelevance(ctx, query.Text, set.Chunks)
	})
	if err != nil {
		return 0, err
	}
	c.log.V(logging.DEBUG).Info("context scored", "queryVersion", query.Version, "relevance", score)
	return score, nil
}

// generationPhase generates a candidate from the accepted context,
// validates it, and regenerates until the groundedness threshold is
// met or the budget runs out. An infeasible or malformed candidate
// ends the run immediately with a refusal.
func (c *Controller) generationPhase(ctx context.Context, queryText string, set ContextSet, phaseAReason apiv1.TerminalReason) (*apiv1.ReflectionResult, error) {
	type generated struct {
		config      apiv1.CandidateConfiguration
		explanation string
	}

	candidate, err := call(ctx, c, OpGenerate, func(ctx context.Context) (generated, error) {
		cfg, explanation, err := c.providers.Generator.Generate(ctx, queryText, set.Chunks)
		return generated{config: cfg, explanation: explanation}, err
	})
	if err != nil {
		return nil, err
	}

	iterations := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		verdict := c.validator.Validate(candidate.config)
		if verdict.Feasibility != validator.Feasible {
			c.log.Info("candidate rejected by hardware validation",
				"verdict", verdict.Feasibility, "reason", verdict.Reason)
			return &apiv1.ReflectionResult{
				Configuration:        apiv1.Refusal(),
				Explanation:          annotateInfeasible(candidate.explanation, c.validator.TargetGPU(), verdict),
				GenerationIterations: iterations,
				TerminalReason:       apiv1.ReasonInfeasibleHardware,
			}, nil
		}

		if !c.cfg.Enabled {
			return &apiv1.ReflectionResult{
				Configuration:        candidate.config,
				Explanation:          candidate.explanation,
				GenerationIterations: iterations,
				TerminalReason:       apiv1.ReasonDisabled,
			}, nil
		}

		score, err := call(ctx, c, OpScoreGroundedness, func(ctx context.Context) (int, error) {
			return c.providers.Groundedness.ScoreGroundedness(ctx, set.Chunks, candidate.explanation)
		})
		if err != nil {
			return nil, err
		}
		c.log.V(logging.DEBUG).Info("answer scored", "iteration", iterations, "groundedness", score)

		if score >= c.cfg.GroundednessThreshold {
			reason := apiv1.ReasonAccepted
			if phaseAReason == apiv1.ReasonExhaustedRelevance {
				reason = phaseAReason
			}
			return &apiv1.ReflectionResult{
				Configuration:        candidate.config,
				Explanation:          candidate.explanation,
				GenerationIterations: iterations,
				TerminalReason:       reason,
			}, nil
		}

		if iterations >= c.cfg.MaxLoop {
			return &apiv1.ReflectionResult{
				Configuration:        candidate.config,
				Explanation:          annotateUngrounded(candidate.explanation, iterations),
				GenerationIterations: iterations,
				TerminalReason:       apiv1.ReasonExhaustedGroundedness,
			}, nil
		}

		candidate, err = call(ctx, c, OpRegenerate, func(ctx context.Context) (generated, error) {
			cfg, explanation, err := c.providers.Regenerator.Regenerate(ctx, set.Chunks, candidate.explanation, candidate.config)
			return generated{config: cfg, explanation: explanation}, err
		})
		if err != nil {
			return nil, err
		}
		iterations++
	}
}

// annotateInfeasible appends the numeric justification for a refusal
// to the generator's explanation.
func annotateInfeasible(explanation, targetGPU string, verdict validator.Verdict) string {
	var b strings.Builder
	if explanation != "" {
		b.WriteString(explanation)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "No valid configuration can be recommended: %s. ", verdict.Reason)
	fmt.Fprintf(&b, "The workload requires an estimated %.1f GB of GPU memory; a single %s provides at most %d GB.",
		verdict.RequiredMemoryGB, targetGPU, verdict.GPUCapacityGB)
	if verdict.GPUsNeeded > 1 {
		fmt.Fprintf(&b, " Approximately %d GPUs of this class would be needed to host the model.", verdict.GPUsNeeded)
	}
	return b.String()
}

// annotateUngrounded marks an answer that never cleared the
// groundedness threshold. It is returned anyway, only flagged.
func annotateUngrounded(explanation string, iterations int) string {
	return fmt.Sprintf("%s\n\nNote: this recommendation did not reach the groundedness threshold after %d revision attempts; verify it against the cited documentation.",
		explanation, iterations)
}
