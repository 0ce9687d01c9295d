package feasibility

import (
	"fmt"
	"math"
	"strings"
)

// Precision is the numeric precision a model is served at.
type Precision string

const (
	PrecisionFP32 Precision = "fp32"
	PrecisionFP16 Precision = "fp16"
	PrecisionINT8 Precision = "int8"

	// DefaultPrecision is assumed when a workload does not specify one.
	DefaultPrecision = PrecisionFP16
)

// memoryOverheadFactor accounts for KV cache, activations and runtime
// overhead on top of the raw parameter weights.
const memoryOverheadFactor = 1.2

// systemRAMTiersGB are the standard VM sizing tiers, ascending.
var systemRAMTiersGB = []float64{64, 96, 128, 192, 256, 384, 512}

// baseSystemRAMGB is the fixed OS and runtime overhead.
const baseSystemRAMGB = 16

// ParsePrecision parses a precision name. The empty string yields
// DefaultPrecision.
func ParsePrecision(s string) (Precision, error) {
	switch Precision(strings.ToLower(s)) {
	case "":
		return DefaultPrecision, nil
	case PrecisionFP32:
		return PrecisionFP32, nil
	case PrecisionFP16:
		return PrecisionFP16, nil
	case PrecisionINT8:
		return PrecisionINT8, nil
	}
	return "", fmt.Errorf("unknown precision %q, expected one of fp32, fp16, int8", s)
}

// BytesPerParam returns the storage cost of one parameter at this
// precision. Unknown precisions fall back to the FP16 default.
func (p Precision) BytesPerParam() int {
	switch p {
	case PrecisionFP32:
		return 4
	case PrecisionINT8:
		return 1
	default:
		return 2
	}
}

// RequiredMemoryGB estimates the GPU memory in GB needed to serve a
// model with the given parameter count (in billions) at the given
// precision. Monotonically increasing in both arguments.
func RequiredMemoryGB(paramsBillions float64, p Precision) float64 {
	return paramsBillions * float64(p.BytesPerParam()) * memoryOverheadFactor
}

// RequiredSystemRAMGB estimates the host system RAM in GB for serving a
// model of modelGB with the given number of concurrent requests, rounded
// up to the nearest standard sizing tier. When the estimate exceeds the
// largest tier, the unrounded value is returned and standard is false.
func RequiredSystemRAMGB(modelGB float64, concurrentRequests int) (gb float64, standard bool) {
	raw := modelGB*2.5 + float64(concurrentRequests)*2 + baseSystemRAMGB
	for _, tier := range systemRAMTiersGB {
		if raw <= tier {
			return tier, true
		}
	}
	return raw, false
}

// GPUsNeeded estimates how many GPUs of capacityGB would be required to
// hold requiredGB. Used for diagnostics on infeasible verdicts.
func GPUsNeeded(requiredGB float64, capacityGB int) int {
	if capacityGB <= 0 {
		return 0
	}
	return int(math.Ceil(requiredGB / float64(capacityGB)))
}
