package feasibility

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedProfile is wrapped by all profile grammar errors.
var ErrMalformedProfile = errors.New("malformed vGPU profile")

// Profile is a parsed vGPU profile of the form "<gpu_model>-<size>Q".
// The trailing "Q" suffix (full workstation profile) is the only suffix
// the grammar admits.
type Profile struct {
	// GPUModel is the physical GPU model name, e.g. "L40S".
	GPUModel string

	// SizeGB is the frame buffer size of the profile in GB, always > 0.
	SizeGB int
}

// ParseProfile parses a profile string against the given capacity
// table. It fails when the trailing literal is not "Q", the size digits
// are absent or zero, or the remaining prefix is not a known GPU model.
func ParseProfile(s string, table CapacityTable) (Profile, error) {
	if !strings.HasSuffix(s, "Q") {
		return Profile{}, fmt.Errorf("%w: %q does not end in the \"Q\" suffix", ErrMalformedProfile, s)
	}
	body := strings.TrimSuffix(s, "Q")

	// Split off the trailing digit run. The model name itself may
	// contain digits and hyphens, so scan from the right.
	i := len(body)
	for i > 0 && body[i-1] >= '0' && body[i-1] <= '9' {
		i--
	}
	digits := body[i:]
	if digits == "" {
		return Profile{}, fmt.Errorf("%w: %q has no size digits", ErrMalformedProfile, s)
	}
	sizeGB, err := strconv.Atoi(digits)
	if err != nil || sizeGB == 0 {
		return Profile{}, fmt.Errorf("%w: %q has invalid size %q", ErrMalformedProfile, s, digits)
	}

	if i == 0 || body[i-1] != '-' {
		return Profile{}, fmt.Errorf("%w: %q is missing the model-size separator", ErrMalformedProfile, s)
	}
	model := body[:i-1]
	if _, known := table.Capacity(model); !known {
		return Profile{}, fmt.Errorf("%w: unknown GPU model %q in %q", ErrMalformedProfile, model, s)
	}

	return Profile{GPUModel: model, SizeGB: sizeGB}, nil
}

// String serializes the profile back to its canonical form. Parsing a
// well-formed profile string and re-serializing it yields the identical
// string.
func (p Profile) String() string {
	return fmt.Sprintf("%s-%dQ", p.GPUModel, p.SizeGB)
}
