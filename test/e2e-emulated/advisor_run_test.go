package e2eemulated

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/utils/ptr"

	apiv1 "github.com/vgpu-advisor/vgpu-sizing-advisor/api/v1"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/config"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/logging"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/reflection"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/internal/validator"
)

// writeConfig materializes a YAML config file for one scenario.
func writeConfig(content string) string {
	path := filepath.Join(GinkgoT().TempDir(), "advisor.yaml")
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	return path
}

func recommendation() apiv1.CandidateConfiguration {
	return apiv1.CandidateConfiguration{
		VGPUProfile:     ptr.To("L40S-24Q"),
		VCPUCount:       ptr.To(16),
		GPUMemorySizeGB: ptr.To(24),
		SystemRAMGB:     ptr.To(96),
		StorageType:     ptr.To("NVMe"),
	}
}

// runAdvisor assembles the full stack from a config file and scripted
// providers and answers one query.
func runAdvisor(configPath string, fakes *reflection.FakeProviders, query string) (*apiv1.ReflectionResult, error) {
	cfg, err := config.Load(configPath)
	Expect(err).NotTo(HaveOccurred())

	v, err := validator.New(cfg.Capacity, cfg.TargetGPU, cfg.ValidatorWorkload())
	Expect(err).NotTo(HaveOccurred())

	controller, err := reflection.New(cfg.Reflection, fakes.Providers(), v, nil, logging.Log)
	Expect(err).NotTo(HaveOccurred())

	return controller.Run(context.Background(), query)
}

var _ = Describe("Advisor end to end", func() {
	var fakes *reflection.FakeProviders

	BeforeEach(func() {
		fakes = reflection.NewFakeProviders(recommendation(),
			"An L40S-24Q profile fits an 8B FP16 model with headroom for ten concurrent requests.")
	})

	It("produces a complete accepted recommendation for a feasible workload", func() {
		path := writeConfig(`
reflection:
  enabled: true
workload:
  modelParamsBillions: 8
  concurrentRequests: 10
targetGPU: L40S
`)
		result, err := runAdvisor(path, fakes, "Recommend a vGPU setup for an 8B parameter model.")
		Expect(err).NotTo(HaveOccurred())

		Expect(result.TerminalReason).To(Equal(apiv1.ReasonAccepted))
		Expect(result.Configuration.IsComplete()).To(BeTrue())
		Expect(*result.Configuration.VGPUProfile).To(Equal("L40S-24Q"))

		// The serialized result carries the full required core.
		payload, err := json.Marshal(result)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(payload)).To(ContainSubstring(`"vgpu_profile":"L40S-24Q"`))
		Expect(string(payload)).To(ContainSubstring(`"terminalReason":"ACCEPTED"`))
	})

	It("refuses a 70B workload on a 48 GB GPU with a numeric justification", func() {
		path := writeConfig(`
reflection:
  enabled: true
workload:
  modelParamsBillions: 70
  concurrentRequests: 10
targetGPU: L40S
`)
		result, err := runAdvisor(path, fakes, "Recommend a vGPU setup for a 70B parameter model.")
		Expect(err).NotTo(HaveOccurred())

		Expect(result.TerminalReason).To(Equal(apiv1.ReasonInfeasibleHardware))
		Expect(result.Configuration.IsRefusal()).To(BeTrue())
		Expect(result.Explanation).To(ContainSubstring("168.0 GB"))
		Expect(result.Explanation).To(ContainSubstring("4 GPUs"))

		payload, err := json.Marshal(result)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(payload)).To(ContainSubstring(`"vgpu_profile":null`))
	})

	It("returns a best-effort answer when both loops exhaust their budgets", func() {
		path := writeConfig(`
reflection:
  enabled: true
  maxLoop: 2
workload:
  modelParamsBillions: 8
targetGPU: L40S
`)
		fakes.RelevanceScores = []int{0}
		fakes.Groundedness = []int{0}

		result, err := runAdvisor(path, fakes, "Recommend a vGPU setup.")
		Expect(err).NotTo(HaveOccurred())

		Expect(result.TerminalReason).To(Equal(apiv1.ReasonExhaustedGroundedness))
		Expect(result.RelevanceIterations).To(Equal(2))
		Expect(result.GenerationIterations).To(Equal(2))
		Expect(result.Configuration.IsComplete()).To(BeTrue())
	})

	It("answers with a single pass when reflection is disabled", func() {
		path := writeConfig(`
workload:
  modelParamsBillions: 8
targetGPU: L40S
`)
		result, err := runAdvisor(path, fakes, "Recommend a vGPU setup.")
		Expect(err).NotTo(HaveOccurred())

		Expect(result.TerminalReason).To(Equal(apiv1.ReasonDisabled))
		Expect(fakes.CallCount(reflection.OpRetrieve)).To(Equal(1))
		Expect(fakes.CallCount(reflection.OpGenerate)).To(Equal(1))
		Expect(fakes.CallCount(reflection.OpScoreRelevance)).To(BeZero())
		Expect(fakes.CallCount(reflection.OpScoreGroundedness)).To(BeZero())
	})
})
