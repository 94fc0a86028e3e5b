package domain

import (
	"testing"
)

type gabCode struct{ code string }

func (g gabCode) String() string { return g.code }

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want MachineKey
	}{
		{"nil", nil, ""},
		{"text", "1001", "1001"},
		{"padded text", " 1001 \t", "1001"},
		{"float", 1001.0, "1001"},
		{"float fraction", 1001.5, "1001.5"},
		{"int", 1001, "1001"},
		{"int64", int64(1001), "1001"},
		{"float32", float32(1001), "1001"},
		{"key", MachineKey(" 1001"), "1001"},
		{"stringer", gabCode{" GAB-7 "}, "GAB-7"},
		{"leading zeros kept", "00123", "00123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeKey(tt.in); got != tt.want {
				t.Errorf("NormalizeKey(%#v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeKey_NumericAndTextAgree(t *testing.T) {
	if NormalizeKey(1001.0) != NormalizeKey("1001 ") {
		t.Fatal("numeric and padded text identifiers must produce the same key")
	}
}

func TestParseProvenance(t *testing.T) {
	if p, ok := ParseProvenance(" Fallback "); !ok || p != ProvenanceFallback {
		t.Errorf("ParseProvenance = %q, %v", p, ok)
	}
	if _, ok := ParseProvenance("guess"); ok {
		t.Error("unknown provenance accepted")
	}
	if ProvenanceLabel(ProvenanceComputed) != "Calculé" {
		t.Errorf("label = %q", ProvenanceLabel(ProvenanceComputed))
	}
}
