package nim

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	apiv1 "github.com/vgpu-advisor/vgpu-sizing-advisor/api/v1"
)

// renderChunks formats retrieved context for inclusion in a prompt.
func renderChunks(chunks []apiv1.ContextChunk) string {
	var b strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "[%d] (%s)\n%s\n\n", i+1, chunk.Source, chunk.Text)
	}
	return b.String()
}

// parseScore extracts a strict 0, 1 or 2 from a judge response. Any
// other output is a judge failure, not a score of zero.
func parseScore(raw string) (int, error) {
	score, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("judge returned a non-integer score %q: %w", strings.TrimSpace(raw), err)
	}
	if score < 0 || score > 2 {
		return 0, fmt.Errorf("judge returned score %d outside the 0..2 scale", score)
	}
	return score, nil
}

// RelevanceJudge scores retrieved context against a query on the 0..2
// scale using the LLM backend.
type RelevanceJudge struct {
	Client *LLMClient
}

func (j *RelevanceJudge) ScoreRelevance(ctx context.Context, query string, chunks []apiv1.ContextChunk) (int, error) {
	prompt := fmt.Sprintf(
		"Rate how well the following context answers the question. Respond with a single digit: 2 if the context fully covers the question, 1 if it partially covers it, 0 if it is unrelated.\n\nQuestion:\n%s\n\nContext:\n%s",
		query, renderChunks(chunks))
	raw, err := j.Client.generate(ctx, prompt, "")
	if err != nil {
		return 0, err
	}
	return parseScore(raw)
}

// GroundednessJudge scores how well an explanation is supported by its
// context on the 0..2 scale using the LLM backend.
type GroundednessJudge struct {
	Client *LLMClient
}

func (j *GroundednessJudge) ScoreGroundedness(ctx context.Context, chunks []apiv1.ContextChunk, explanation string) (int, error) {
	prompt := fmt.Sprintf(
		"Rate how well the following answer is supported by the context. Respond with a single digit: 2 if every claim is supported, 1 if some claims are supported, 0 if the answer is unsupported.\n\nContext:\n%s\nAnswer:\n%s",
		renderChunks(chunks), explanation)
	raw, err := j.Client.generate(ctx, prompt, "")
	if err != nil {
		return 0, err
	}
	return parseScore(raw)
}

// QueryReflector rewrites a query that retrieved low-relevance context.
type QueryReflector struct {
	Client *LLMClient
}

func (r *QueryReflector) RewriteQuery(ctx context.Context, query string) (string, error) {
	prompt := fmt.Sprintf(
		"The following question retrieved poorly matching documentation. Rewrite it to use NVIDIA vGPU sizing terminology so a document search finds better matches. Respond with the rewritten question only.\n\nQuestion:\n%s",
		query)
	rewritten, err := r.Client.generate(ctx, prompt, "")
	if err != nil {
		return "", err
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return "", ErrEmptyResponse
	}
	return rewritten, nil
}
