package feasibility

// CapacityTable maps GPU model names to the maximum addressable memory
// in GB. Lookup is exact-string and case-sensitive: model names that
// merely share a prefix (L40 and L40S are both 48 GB class parts but
// distinct hardware) must never be conflated, so prefix matching is
// deliberately not supported.
type CapacityTable map[string]int

// DefaultCapacityTable returns the built-in GPU inventory.
func DefaultCapacityTable() CapacityTable {
	return CapacityTable{
		"A30":  24,
		"L40":  48,
		"L40S": 48,
		"H100": 96,
	}
}

// Capacity returns the maximum addressable memory in GB for the exact
// model name, and whether the model is known.
func (t CapacityTable) Capacity(model string) (int, bool) {
	gb, ok := t[model]
	return gb, ok
}

// Models returns the known model names in unspecified order.
func (t CapacityTable) Models() []string {
	models := make([]string, 0, len(t))
	for m := range t {
		models = append(models, m)
	}
	return models
}
