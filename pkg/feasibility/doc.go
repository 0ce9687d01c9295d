// Package feasibility implements the deterministic hardware model used
// to validate generated vGPU configurations.
//
// The package is a pure function library: no external calls, no mutable
// state. The capacity table and sizing rules are immutable process-wide
// configuration loaded once at startup, so values can be shared freely
// across concurrent controller instances.
//
// Components:
//
//   - Memory sizing: RequiredMemoryGB estimates the GPU memory a model
//     needs from its parameter count and precision, including a fixed
//     overhead factor for KV cache and activations.
//
//   - System RAM sizing: RequiredSystemRAMGB estimates host RAM and
//     rounds it up to the nearest standard VM sizing tier.
//
//   - Profile grammar: ParseProfile parses vGPU profile strings of the
//     form "<gpu_model>-<size>Q" and Profile.String round-trips them.
//
//   - Capacity table: CapacityTable maps GPU model names to the maximum
//     addressable memory in GB. Lookups are exact and case-sensitive;
//     model names that share a prefix (L40 vs L40S) are distinct keys.
//
// Example:
//
//	table := feasibility.DefaultCapacityTable()
//	required := feasibility.RequiredMemoryGB(8, feasibility.PrecisionFP16) // 19.2
//	profile, err := feasibility.ParseProfile("L40S-24Q", table)
//	if err != nil {
//	    // malformed profile
//	}
//	fits := profile.SizeGB >= int(math.Ceil(required))
package feasibility
