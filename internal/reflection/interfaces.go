package reflection

import (
	"context"
	"errors"

	apiv1 "github.com/vgpu-advisor/vgpu-sizing-advisor/api/v1"
)

// Retriever fetches context chunks for a query from the document index.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]apiv1.ContextChunk, error)
}

// RelevanceJudge scores how well a context set answers a query, on the
// scale 0 (not relevant) to 2 (fully relevant).
type RelevanceJudge interface {
	ScoreRelevance(ctx context.Context, query string, chunks []apiv1.ContextChunk) (int, error)
}

// QueryReflector rewrites a query that produced low-relevance context.
type QueryReflector interface {
	RewriteQuery(ctx context.Context, query string) (string, error)
}

// ConfigGenerator produces a candidate configuration and its free-text
// explanation from a query and its supporting context.
type ConfigGenerator interface {
	Generate(ctx context.Context, query string, chunks []apiv1.ContextChunk) (apiv1.CandidateConfiguration, string, error)
}

// GroundednessJudge scores how well an explanation is supported by the
// context it cites, on the scale 0 (unsupported) to 2 (fully grounded).
type GroundednessJudge interface {
	ScoreGroundedness(ctx context.Context, chunks []apiv1.ContextChunk, explanation string) (int, error)
}

// ResponseRegenerator revises a low-groundedness answer, seeded with
// the prior explanation and configuration.
type ResponseRegenerator interface {
	Regenerate(ctx context.Context, chunks []apiv1.ContextChunk, priorExplanation string, prior apiv1.CandidateConfiguration) (apiv1.CandidateConfiguration, string, error)
}

// Providers bundles the collaborators a controller needs.
type Providers struct {
	Retriever    Retriever
	Relevance    RelevanceJudge
	Reflector    QueryReflector
	Generator    ConfigGenerator
	Groundedness GroundednessJudge
	Regenerator  ResponseRegenerator
}

// Validate checks that every collaborator slot is filled.
func (p Providers) Validate() error {
	switch {
	case p.Retriever == nil:
		return errors.New("retriever provider is required")
	case p.Relevance == nil:
		return errors.New("relevance judge provider is required")
	case p.Reflector == nil:
		return errors.New("query reflector provider is required")
	case p.Generator == nil:
		return errors.New("config generator provider is required")
	case p.Groundedness == nil:
		return errors.New("groundedness judge provider is required")
	case p.Regenerator == nil:
		return errors.New("response regenerator provider is required")
	}
	return nil
}
