// Package v1 defines the externally serialized types of the vGPU sizing
// advisor: the candidate configuration emitted by the generator, the
// retrieved context chunks, and the final reflection result handed to
// the caller.
package v1

// TerminalReason enumerates the causes for which the reflection
// controller stopped iterating and returned a result.
type TerminalReason string

const (
	// ReasonAccepted indicates both the retrieved context and the
	// generated answer met their score thresholds.
	ReasonAccepted TerminalReason = "ACCEPTED"

	// ReasonExhaustedRelevance indicates the relevance loop ran out of
	// rewrite budget and the best-scored context was accepted instead.
	ReasonExhaustedRelevance TerminalReason = "EXHAUSTED_RELEVANCE"

	// ReasonInfeasibleHardware indicates the hardware-feasibility check
	// rejected the generated configuration. This outcome is never
	// retried: regeneration does not change physical memory limits.
	ReasonInfeasibleHardware TerminalReason = "INFEASIBLE_HARDWARE"

	// ReasonExhaustedGroundedness indicates the generation loop ran out
	// of regeneration budget and the last candidate was returned as-is.
	ReasonExhaustedGroundedness TerminalReason = "EXHAUSTED_GROUNDEDNESS"

	// ReasonDisabled indicates reflection was disabled and a single
	// retrieve-generate pass was performed without scoring.
	ReasonDisabled TerminalReason = "DISABLED"
)

// ContextChunk is a single retrieved document fragment.
type ContextChunk struct {
	// Source identifies the document the chunk was retrieved from.
	Source string `json:"source"`

	// Text is the chunk body.
	Text string `json:"text"`
}

// CandidateConfiguration is a structured vGPU sizing recommendation.
//
// All fields are nullable. The required core is {VGPUProfile, VCPUCount,
// GPUMemorySizeGB, SystemRAMGB}: either all four are set (a concrete
// recommendation) or all four are nil (an explicit refusal). A partial
// core is malformed and is rejected by the validator. The remaining
// fields are optional details and may be nil in either form.
type CandidateConfiguration struct {
	// VGPUProfile is the vGPU profile name, e.g. "L40S-24Q".
	VGPUProfile *string `json:"vgpu_profile"`

	// VCPUCount is the number of virtual CPUs allocated to the guest.
	VCPUCount *int `json:"vcpu_count"`

	// GPUMemorySizeGB is the frame buffer assigned to the vGPU profile.
	GPUMemorySizeGB *int `json:"gpu_memory_size"`

	// SystemRAMGB is the system RAM allocated to the VM.
	SystemRAMGB *int `json:"system_ram"`

	// TotalCPUs is the number of physical CPU cores on the VM host.
	TotalCPUs *int `json:"total_cpus,omitempty"`

	// VideoCardTotalMemoryGB is the total memory of the physical GPU.
	VideoCardTotalMemoryGB *int `json:"video_card_total_memory,omitempty"`

	// StorageCapacityGB is the disk capacity for OS, model files and data.
	StorageCapacityGB *int `json:"storage_capacity,omitempty"`

	// StorageType is the recommended storage class, e.g. "NVMe".
	StorageType *string `json:"storage_type,omitempty"`

	// DriverVersion is the compatible NVIDIA driver version.
	DriverVersion *string `json:"driver_version,omitempty"`

	// AIFramework is the recommended framework or toolkit.
	AIFramework *string `json:"ai_framework,omitempty"`

	// PerformanceTier is the workload performance classification.
	PerformanceTier *string `json:"performance_tier,omitempty"`

	// ConcurrentUsers is the number of users the configuration supports.
	ConcurrentUsers *int `json:"concurrent_users,omitempty"`
}

// Refusal returns the explicit all-null refusal form.
func Refusal() CandidateConfiguration {
	return CandidateConfiguration{}
}

// IsRefusal reports whether the candidate is the explicit all-null
// refusal form (no required-core field set).
func (c CandidateConfiguration) IsRefusal() bool {
	return c.VGPUProfile == nil && c.VCPUCount == nil &&
		c.GPUMemorySizeGB == nil && c.SystemRAMGB == nil
}

// IsComplete reports whether every required-core field is set.
func (c CandidateConfiguration) IsComplete() bool {
	return c.VGPUProfile != nil && c.VCPUCount != nil &&
		c.GPUMemorySizeGB != nil && c.SystemRAMGB != nil
}

// ReflectionResult is the terminal output of one controller run.
// It is constructed exactly once, at loop termination; the controller
// retains no state across runs.
type ReflectionResult struct {
	// Configuration is the final candidate, or the all-null refusal.
	Configuration CandidateConfiguration `json:"configuration"`

	// Explanation is the free-text justification for the configuration,
	// annotated with numeric diagnostics when the hardware check failed.
	Explanation string `json:"explanation"`

	// Context is the accepted context the answer was generated from.
	Context []ContextChunk `json:"context"`

	// RelevanceIterations is the number of query rewrites performed.
	RelevanceIterations int `json:"relevanceIterations"`

	// GenerationIterations is the number of regenerations performed.
	GenerationIterations int `json:"generationIterations"`

	// TerminalReason is the cause for which the controller stopped.
	TerminalReason TerminalReason `json:"terminalReason"`
}
