// Package validator classifies candidate vGPU configurations against
// the deterministic hardware-feasibility model.
package validator

import (
	"errors"
	"fmt"
	"math"

	apiv1 "github.com/vgpu-advisor/vgpu-sizing-advisor/api/v1"
	"github.com/vgpu-advisor/vgpu-sizing-advisor/pkg/feasibility"
)

// Feasibility is the classification of a candidate configuration.
type Feasibility string

const (
	// Feasible means the profile fits the target GPU and the workload's
	// memory requirement. The explicit all-null refusal is trivially
	// feasible: a refusal is self-consistent and skips numeric checks.
	Feasible Feasibility = "FEASIBLE"

	// Infeasible means the profile names the wrong GPU model or cannot
	// hold the required memory within the target GPU's capacity.
	Infeasible Feasibility = "INFEASIBLE"

	// Malformed means the candidate violates the configuration grammar:
	// a partially filled required core, or an unparseable profile.
	// Malformed takes precedence over Infeasible.
	Malformed Feasibility = "MALFORMED"
)

// Verdict is the outcome of one validation, with the numeric
// diagnostics the controller uses to annotate refusals.
type Verdict struct {
	Feasibility Feasibility

	// RequiredMemoryGB is the workload's estimated GPU memory need.
	RequiredMemoryGB float64

	// GPUCapacityGB is the target GPU's maximum addressable memory.
	GPUCapacityGB int

	// GPUsNeeded estimates how many target GPUs the workload would
	// require. Populated on Infeasible verdicts.
	GPUsNeeded int

	// Reason is a human-readable explanation of a non-feasible verdict.
	Reason string
}

// Workload describes the memory-relevant parameters of the user's
// inference workload.
type Workload struct {
	// ModelParamsBillions is the served model's parameter count.
	ModelParamsBillions float64

	// Precision is the serving precision.
	Precision feasibility.Precision

	// ConcurrentRequests is the expected request concurrency.
	ConcurrentRequests int
}

// Validator validates candidates against a single target GPU model, as
// the surrounding system restricts inventory to one GPU type.
// Validators are immutable and safe for concurrent use.
type Validator struct {
	table    feasibility.CapacityTable
	target   string
	workload Workload
}

// New creates a Validator. The target GPU model must exist in the
// capacity table and the workload parameters must be positive.
func New(table feasibility.CapacityTable, targetGPU string, workload Workload) (*Validator, error) {
	if len(table) == 0 {
		return nil, errors.New("capacity table cannot be empty")
	}
	if _, ok := table.Capacity(targetGPU); !ok {
		return nil, fmt.Errorf("target GPU model %q not present in capacity table", targetGPU)
	}
	if workload.ModelParamsBillions <= 0 {
		return nil, fmt.Errorf("model parameter count must be positive, got %v", workload.ModelParamsBillions)
	}
	if workload.ConcurrentRequests < 0 {
		return nil, fmt.Errorf("concurrent requests must be >= 0, got %d", workload.ConcurrentRequests)
	}
	return &Validator{table: table, target: targetGPU, workload: workload}, nil
}

// TargetGPU returns the target GPU model the validator checks against.
func (v *Validator) TargetGPU() string { return v.target }

// RequiredMemoryGB returns the workload's estimated GPU memory need.
func (v *Validator) RequiredMemoryGB() float64 {
	return feasibility.RequiredMemoryGB(v.workload.ModelParamsBillions, v.workload.Precision)
}

// Validate classifies a candidate configuration. It is side-effect-free
// and never mutates the candidate; running it twice on the same input
// yields the same verdict.
func (v *Validator) Validate(c apiv1.CandidateConfiguration) Verdict {
	capacityGB, _ := v.table.Capacity(v.target)
	requiredGB := v.RequiredMemoryGB()
	verdict := Verdict{
		Feasibility:      Feasible,
		RequiredMemoryGB: requiredGB,
		GPUCapacityGB:    capacityGB,
	}

	if c.IsRefusal() {
		return verdict
	}

	if !c.IsComplete() {
		verdict.Feasibility = Malformed
		verdict.Reason = "configuration fills only part of the required fields (profile, vCPU count, GPU memory, system RAM)"
		return verdict
	}

	profile, err := feasibility.ParseProfile(*c.VGPUProfile, v.table)
	if err != nil {
		verdict.Feasibility = Malformed
		verdict.Reason = err.Error()
		return verdict
	}

	neededGB := int(math.Ceil(requiredGB))
	switch {
	case profile.GPUModel != v.target:
		verdict.Feasibility = Infeasible
		verdict.Reason = fmt.Sprintf("profile %s targets GPU model %q, inventory is %q", profile, profile.GPUModel, v.target)
	case profile.SizeGB < neededGB:
		verdict.Feasibility = Infeasible
		verdict.Reason = fmt.Sprintf("profile %s provides %d GB, workload requires %.1f GB", profile, profile.SizeGB, requiredGB)
	case profile.SizeGB > capacityGB:
		verdict.Feasibility = Infeasible
		verdict.Reason = fmt.Sprintf("profile %s exceeds the %d GB capacity of a %s", profile, capacityGB, v.target)
	}
	if verdict.Feasibility == Infeasible {
		verdict.GPUsNeeded = feasibility.GPUsNeeded(requiredGB, capacityGB)
	}
	return verdict
}
