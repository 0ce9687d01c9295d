package reflection

import (
	"context"
	"fmt"
	"sync"

	apiv1 "github.com/vgpu-advisor/vgpu-sizing-advisor/api/v1"
)

// FakeProviders is a scripted implementation of every collaborator
// interface, used by tests and by the advisor's dry-run mode. Scores,
// chunks and candidates are consumed from queues; when a queue runs
// out the last element repeats. Errors can be injected per operation
// and are consumed one per call.
type FakeProviders struct {
	mu sync.Mutex

	// Scripted outputs.
	Chunks          [][]apiv1.ContextChunk
	RelevanceScores []int
	Rewrites        []string
	Candidates      []apiv1.CandidateConfiguration
	Explanations    []string
	Groundedness    []int

	// Errs holds injectable failures, consumed one per call in order.
	Errs map[Operation][]error

	// Call counters by operation.
	Calls map[Operation]int
}

// NewFakeProviders returns fakes that succeed with the given defaults:
// one context chunk, full scores, and a fixed candidate.
func NewFakeProviders(candidate apiv1.CandidateConfiguration, explanation string) *FakeProviders {
	return &FakeProviders{
		Chunks: [][]apiv1.ContextChunk{{
			{Source: "vgpu-sizing-guide.pdf", Text: "vGPU profile sizing guidance."},
		}},
		RelevanceScores: []int{2},
		Rewrites:        []string{"rewritten query"},
		Candidates:      []apiv1.CandidateConfiguration{candidate},
		Explanations:    []string{explanation},
		Groundedness:    []int{2},
	}
}

// Providers bundles the fake into the controller's provider set.
func (f *FakeProviders) Providers() Providers {
	return Providers{
		Retriever:    f,
		Relevance:    f,
		Reflector:    f,
		Generator:    f,
		Groundedness: f,
		Regenerator:  f,
	}
}

// CallCount returns how many times the given operation was invoked.
func (f *FakeProviders) CallCount(op Operation) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

// record bumps the call counter and pops an injected error, if any.
func (f *FakeProviders) record(op Operation) error {
	if f.Calls == nil {
		f.Calls = map[Operation]int{}
	}
	f.Calls[op]++
	if errs := f.Errs[op]; len(errs) > 0 {
		err := errs[0]
		f.Errs[op] = errs[1:]
		return err
	}
	return nil
}

// take returns queue[n] clamped to the last element.
func take[T any](queue []T, n int) (T, error) {
	var zero T
	if len(queue) == 0 {
		return zero, fmt.Errorf("fake queue is empty")
	}
	if n >= len(queue) {
		n = len(queue) - 1
	}
	return queue[n], nil
}

func (f *FakeProviders) Retrieve(ctx context.Context, query string) ([]apiv1.ContextChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpRetrieve); err != nil {
		return nil, err
	}
	return take(f.Chunks, f.Calls[OpRetrieve]-1)
}

func (f *FakeProviders) ScoreRelevance(ctx context.Context, query string, chunks []apiv1.ContextChunk) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpScoreRelevance); err != nil {
		return 0, err
	}
	return take(f.RelevanceScores, f.Calls[OpScoreRelevance]-1)
}

func (f *FakeProviders) RewriteQuery(ctx context.Context, query string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpRewriteQuery); err != nil {
		return "", err
	}
	return take(f.Rewrites, f.Calls[OpRewriteQuery]-1)
}

func (f *FakeProviders) Generate(ctx context.Context, query string, chunks []apiv1.ContextChunk) (apiv1.CandidateConfiguration, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpGenerate); err != nil {
		return apiv1.CandidateConfiguration{}, "", err
	}
	candidate, err := take(f.Candidates, f.Calls[OpGenerate]-1)
	if err != nil {
		return apiv1.CandidateConfiguration{}, "", err
	}
	explanation, err := take(f.Explanations, f.Calls[OpGenerate]-1)
	if err != nil {
		return apiv1.CandidateConfiguration{}, "", err
	}
	return candidate, explanation, nil
}

func (f *FakeProviders) ScoreGroundedness(ctx context.Context, chunks []apiv1.ContextChunk, explanation string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpScoreGroundedness); err != nil {
		return 0, err
	}
	return take(f.Groundedness, f.Calls[OpScoreGroundedness]-1)
}

func (f *FakeProviders) Regenerate(ctx context.Context, chunks []apiv1.ContextChunk, priorExplanation string, prior apiv1.CandidateConfiguration) (apiv1.CandidateConfiguration, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpRegenerate); err != nil {
		return apiv1.CandidateConfiguration{}, "", err
	}
	// Regenerations draw from the candidate queue after the initial
	// generation's entries.
	index := f.Calls[OpGenerate] + f.Calls[OpRegenerate] - 1
	candidate, err := take(f.Candidates, index)
	if err != nil {
		return apiv1.CandidateConfiguration{}, "", err
	}
	explanation, err := take(f.Explanations, index)
	if err != nil {
		return apiv1.CandidateConfiguration{}, "", err
	}
	return candidate, explanation, nil
}
