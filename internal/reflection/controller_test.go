package reflection

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/utils/ptr"

	apiv1 "github.com/vgpu-advisor/vgpu-sizing-advisor/api/v1"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/config"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/logging"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/validator"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/pkg/feasibility"
)

func feasibleCandidate() apiv1.CandidateConfiguration {
	return apiv1.CandidateConfiguration{
		VGPUProfile:     ptr.To("L40S-24Q"),
		VCPUCount:       ptr.To(16),
		GPUMemorySizeGB: ptr.To(24),
		SystemRAMGB:     ptr.To(96),
	}
}

func newTestValidator(paramsBillions float64) *validator.Validator {
	v, err := validator.New(feasibility.DefaultCapacityTable(), "L40S", validator.Workload{
		ModelParamsBillions: paramsBillions,
		Precision:           feasibility.PrecisionFP16,
		ConcurrentRequests:  10,
	})
	Expect(err).NotTo(HaveOccurred())
	return v
}

var _ = Describe("Controller", func() {
	var (
		cfg   config.ReflectionConfig
		fakes *FakeProviders
	)

	BeforeEach(func() {
		cfg = config.ReflectionConfig{
			Enabled:               true,
			MaxLoop:               3,
			RelevanceThreshold:    1,
			GroundednessThreshold: 1,
			CallTimeout:           time.Second,
		}
		fakes = NewFakeProviders(feasibleCandidate(), "An L40S-24Q profile fits an 8B FP16 model.")
	})

	newController := func(v *validator.Validator) *Controller {
		ctrl, err := New(cfg, fakes.Providers(), v, nil, logging.NewTestLogger())
		Expect(err).NotTo(HaveOccurred())
		return ctrl
	}

	run := func(v *validator.Validator) *apiv1.ReflectionResult {
		result, err := newController(v).Run(context.Background(), "size a vGPU for an 8B model")
		Expect(err).NotTo(HaveOccurred())
		Expect(result).NotTo(BeNil())
		return result
	}

	Describe("construction", func() {
		It("rejects a missing provider", func() {
			providers := fakes.Providers()
			providers.Generator = nil
			_, err := New(cfg, providers, newTestValidator(8), nil, logging.NewTestLogger())
			Expect(err).To(MatchError(ContainSubstring("generator")))
		})

		It("rejects a nil validator", func() {
			_, err := New(cfg, fakes.Providers(), nil, nil, logging.NewTestLogger())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("the happy path", func() {
		It("accepts a grounded feasible answer on the first pass", func() {
			result := run(newTestValidator(8))

			Expect(result.TerminalReason).To(Equal(apiv1.ReasonAccepted))
			Expect(result.RelevanceIterations).To(BeZero())
			Expect(result.GenerationIterations).To(BeZero())
			Expect(result.Configuration.IsComplete()).To(BeTrue())
			Expect(result.Context).To(HaveLen(1))
		})
	})

	Describe("the relevance loop", func() {
		It("accepts the best context after the rewrite budget runs out and still generates", func() {
			fakes.RelevanceScores = []int{0, 0, 0, 0}

			result := run(newTestValidator(8))

			Expect(result.TerminalReason).To(Equal(apiv1.ReasonExhaustedRelevance))
			Expect(result.RelevanceIterations).To(Equal(3))
			Expect(result.Configuration.IsComplete()).To(BeTrue())
			Expect(fakes.CallCount(OpRewriteQuery)).To(Equal(3))
			Expect(fakes.CallCount(OpRetrieve)).To(Equal(4))
			Expect(fakes.CallCount(OpGenerate)).To(Equal(1))
		})

		It("keeps the highest-scored context, preferring the most recent on ties", func() {
			fakes.Chunks = [][]apiv1.ContextChunk{
				{{Source: "v0.pdf", Text: "first"}},
				{{Source: "v1.pdf", Text: "second"}},
				{{Source: "v2.pdf", Text: "third"}},
				{{Source: "v3.pdf", Text: "fourth"}},
			}
			fakes.RelevanceScores = []int{0, 1, 0, 1}
			cfg.RelevanceThreshold = 2

			result := run(newTestValidator(8))

			Expect(result.TerminalReason).To(Equal(apiv1.ReasonExhaustedRelevance))
			Expect(result.Context[0].Source).To(Equal("v3.pdf"))
		})

		It("stops rewriting as soon as the threshold is met", func() {
			fakes.RelevanceScores = []int{0, 2}

			result := run(newTestValidator(8))

			Expect(result.TerminalReason).To(Equal(apiv1.ReasonAccepted))
			Expect(result.RelevanceIterations).To(Equal(1))
			Expect(fakes.CallCount(OpRewriteQuery)).To(Equal(1))
		})
	})

	Describe("the generation loop", func() {
		It("regenerates until the groundedness threshold is met", func() {
			fakes.Candidates = []apiv1.CandidateConfiguration{feasibleCandidate(), feasibleCandidate()}
			fakes.Explanations = []string{"first draft", "revised draft"}
			fakes.Groundedness = []int{0, 2}

			result := run(newTestValidator(8))

			Expect(result.TerminalReason).To(Equal(apiv1.ReasonAccepted))
			Expect(result.GenerationIterations).To(Equal(1))
			Expect(result.Explanation).To(Equal("revised draft"))
		})

		It("returns the last candidate annotated when the budget runs out", func() {
			fakes.Groundedness = []int{0, 0, 0, 0}

			result := run(newTestValidator(8))

			Expect(result.TerminalReason).To(Equal(apiv1.ReasonExhaustedGroundedness))
			Expect(result.GenerationIterations).To(Equal(3))
			Expect(result.Configuration.IsComplete()).To(BeTrue())
			Expect(result.Explanation).To(ContainSubstring("groundedness threshold"))
			Expect(fakes.CallCount(OpRegenerate)).To(Equal(3))
		})

		It("never exceeds the budget in either loop when judges always return zero", func() {
			fakes.RelevanceScores = []int{0}
			fakes.Groundedness = []int{0}

			result := run(newTestValidator(8))

			Expect(result.RelevanceIterations).To(Equal(3))
			Expect(result.GenerationIterations).To(Equal(3))
			Expect(fakes.CallCount(OpRewriteQuery)).To(Equal(3))
			Expect(fakes.CallCount(OpRegenerate)).To(Equal(3))
		})
	})

	Describe("hardware validation", func() {
		It("refuses immediately when the workload cannot fit a single GPU", func() {
			result := run(newTestValidator(70))

			Expect(result.TerminalReason).To(Equal(apiv1.ReasonInfeasibleHardware))
			Expect(result.Configuration.IsRefusal()).To(BeTrue())
			Expect(result.Explanation).To(ContainSubstring("168.0 GB"))
			Expect(result.Explanation).To(ContainSubstring("48 GB"))
			Expect(result.Explanation).To(ContainSubstring("4 GPUs"))
			Expect(fakes.CallCount(OpScoreGroundedness)).To(BeZero())
			Expect(fakes.CallCount(OpRegenerate)).To(BeZero())
		})

		It("refuses a malformed candidate without retrying", func() {
			malformed := feasibleCandidate()
			malformed.SystemRAMGB = nil
			fakes.Candidates = []apiv1.CandidateConfiguration{malformed}

			result := run(newTestValidator(8))

			Expect(result.TerminalReason).To(Equal(apiv1.ReasonInfeasibleHardware))
			Expect(result.Configuration.IsRefusal()).To(BeTrue())
			Expect(fakes.CallCount(OpRegenerate)).To(BeZero())
		})

		It("catches an infeasible profile reintroduced by regeneration", func() {
			wrongModel := feasibleCandidate()
			wrongModel.VGPUProfile = ptr.To("L40-24Q")
			fakes.Candidates = []apiv1.CandidateConfiguration{feasibleCandidate(), wrongModel}
			fakes.Explanations = []string{"first draft", "revised draft"}
			fakes.Groundedness = []int{0}

			result := run(newTestValidator(8))

			Expect(result.TerminalReason).To(Equal(apiv1.ReasonInfeasibleHardware))
			Expect(result.Configuration.IsRefusal()).To(BeTrue())
			Expect(result.GenerationIterations).To(Equal(1))
		})
	})

	Describe("failure policy", func() {
		It("recovers from a single collaborator failure with one retry", func() {
			fakes.Errs = map[Operation][]error{
				OpRetrieve: {errors.New("connection refused")},
			}

			result := run(newTestValidator(8))

			Expect(result.TerminalReason).To(Equal(apiv1.ReasonAccepted))
			Expect(fakes.CallCount(OpRetrieve)).To(Equal(2))
		})

		It("aborts the whole run after two consecutive failures", func() {
			fakes.Errs = map[Operation][]error{
				OpScoreRelevance: {errors.New("backend overloaded"), errors.New("backend overloaded")},
			}

			result, err := newController(newTestValidator(8)).Run(context.Background(), "size a vGPU")

			Expect(result).To(BeNil())
			Expect(IsCollaboratorError(err)).To(BeTrue())
			var ce *CollaboratorError
			Expect(errors.As(err, &ce)).To(BeTrue())
			Expect(ce.Op).To(Equal(OpScoreRelevance))
			var je *JudgeError
			Expect(errors.As(err, &je)).To(BeTrue())
		})

		It("short-circuits on cancellation without a result", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			result, err := newController(newTestValidator(8)).Run(ctx, "size a vGPU")

			Expect(result).To(BeNil())
			Expect(err).To(MatchError(context.Canceled))
			Expect(IsCollaboratorError(err)).To(BeFalse())
		})
	})

	Describe("disabled reflection", func() {
		BeforeEach(func() {
			cfg.Enabled = false
		})

		It("performs one retrieval and one generation with no scoring", func() {
			result := run(newTestValidator(8))

			Expect(result.TerminalReason).To(Equal(apiv1.ReasonDisabled))
			Expect(fakes.CallCount(OpRetrieve)).To(Equal(1))
			Expect(fakes.CallCount(OpGenerate)).To(Equal(1))
			Expect(fakes.CallCount(OpScoreRelevance)).To(BeZero())
			Expect(fakes.CallCount(OpScoreGroundedness)).To(BeZero())
			Expect(fakes.CallCount(OpRewriteQuery)).To(BeZero())
			Expect(fakes.CallCount(OpRegenerate)).To(BeZero())
		})

		It("still refuses infeasible hardware", func() {
			result := run(newTestValidator(70))

			Expect(result.TerminalReason).To(Equal(apiv1.ReasonInfeasibleHardware))
			Expect(result.Configuration.IsRefusal()).To(BeTrue())
		})
	})
})
