package domain

import "strings"

// Provenance tells whether results were computed from real reference data
// or substituted from the built-in fallback dataset.
type Provenance string

const (
	ProvenanceComputed Provenance = "computed"
	ProvenanceFallback Provenance = "fallback"
)

var provenanceLabels = map[Provenance]string{
	ProvenanceComputed: "Calculé",
	ProvenanceFallback: "Données par défaut",
}

// ProvenanceLabel returns a human-readable label for a provenance value.
func ProvenanceLabel(p Provenance) string {
	if label, ok := provenanceLabels[p]; ok {
		return label
	}

	return "Inconnu"
}

// ParseProvenance returns the provenance for a given label (case-insensitive).
func ParseProvenance(value string) (Provenance, bool) {
	p := Provenance(strings.ToLower(strings.TrimSpace(value)))
	_, ok := provenanceLabels[p]

	return p, ok
}
