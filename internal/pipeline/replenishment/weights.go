package replenishment

import "github.com/OthmaneWahbi/gab-flow-insights/internal/domain"

// WeightIndex maps a normalized machine key to its weight.
type WeightIndex map[domain.MachineKey]float64

// BuildWeightIndex indexes weight records by key. When a key appears more
// than once the last record wins.
func BuildWeightIndex(records []domain.WeightRecord) WeightIndex {
	index := make(WeightIndex, len(records))
	for _, r := range records {
		index[r.Key] = r.Weight
	}
	return index
}

// Lookup returns the weight of key and whether the machine is weighted at all.
func (w WeightIndex) Lookup(key domain.MachineKey) (float64, bool) {
	v, ok := w[key]
	return v, ok
}

// Keys returns the indexed keys in the order they first appear in records.
func (w WeightIndex) Keys(records []domain.WeightRecord) []domain.MachineKey {
	seen := make(map[domain.MachineKey]bool, len(w))
	keys := make([]domain.MachineKey, 0, len(w))
	for _, r := range records {
		if _, ok := w[r.Key]; !ok || seen[r.Key] {
			continue
		}
		seen[r.Key] = true
		keys = append(keys, r.Key)
	}
	return keys
}
