package nim

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apiv1 "github.com/vgpu-advisor/vgpu-sizing-advisor/api/v1"
)

// generatedResponse is the JSON envelope the generation prompts ask
// the model to emit: a candidate configuration plus its explanation.
type generatedResponse struct {
	Configuration apiv1.CandidateConfiguration `json:"configuration"`
	Explanation   string                       `json:"explanation"`
}

// parseGenerated decodes a model response into a candidate and its
// explanation. Markdown code fences around the JSON are tolerated.
func parseGenerated(raw string) (apiv1.CandidateConfiguration, string, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var resp generatedResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return apiv1.CandidateConfiguration{}, "", fmt.Errorf("model returned invalid configuration JSON: %w", err)
	}
	return resp.Configuration, resp.Explanation, nil
}

const configurationSchema = `Respond with JSON of the form
{"configuration": {"vgpu_profile": string|null, "vcpu_count": int|null, "gpu_memory_size": int|null, "system_ram": int|null, "storage_capacity": int|null, "storage_type": string|null, "driver_version": string|null, "ai_framework": string|null, "performance_tier": string|null, "concurrent_users": int|null}, "explanation": string}.
Either fill every one of vgpu_profile, vcpu_count, gpu_memory_size and system_ram, or set all four to null and explain the refusal.`

// ConfigGenerator produces a candidate configuration and explanation
// from a query and its supporting context.
type ConfigGenerator struct {
	Client *LLMClient
}

func (g *ConfigGenerator) Generate(ctx context.Context, query string, chunks []apiv1.ContextChunk) (apiv1.CandidateConfiguration, string, error) {
	prompt := fmt.Sprintf(
		"You are an NVIDIA vGPU sizing advisor. Using only the context below, recommend a vGPU configuration for the question.\n%s\n\nQuestion:\n%s\n\nContext:\n%s",
		configurationSchema, query, renderChunks(chunks))
	raw, err := g.Client.generate(ctx, prompt, "application/json")
	if err != nil {
		return apiv1.CandidateConfiguration{}, "", err
	}
	return parseGenerated(raw)
}

// ResponseRegenerator revises a low-groundedness answer, seeded with
// the prior attempt.
type ResponseRegenerator struct {
	Client *LLMClient
}

func (r *ResponseRegenerator) Regenerate(ctx context.Context, chunks []apiv1.ContextChunk, priorExplanation string, prior apiv1.CandidateConfiguration) (apiv1.CandidateConfiguration, string, error) {
	priorJSON, err := json.Marshal(generatedResponse{Configuration: prior, Explanation: priorExplanation})
	if err != nil {
		return apiv1.CandidateConfiguration{}, "", fmt.Errorf("failed to encode prior response: %w", err)
	}
	prompt := fmt.Sprintf(
		"Your previous vGPU recommendation was not well supported by the cited context. Revise it so every claim is backed by the context below, removing anything the context does not support.\n%s\n\nPrevious response:\n%s\n\nContext:\n%s",
		configurationSchema, priorJSON, renderChunks(chunks))
	raw, err := r.Client.generate(ctx, prompt, "application/json")
	if err != nil {
		return apiv1.CandidateConfiguration{}, "", err
	}
	return parseGenerated(raw)
}
