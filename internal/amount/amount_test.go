package amount

import (
	"math/big"
	"testing"
)

func TestParse_ValidAmounts(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
	}{
		{"one", "1.00", 1_000_000},
		{"fifty cents", "0.50", 500_000},
		{"hundred", "100", 100_000_000},
		{"smallest unit", "0.000001", 1},
		{"whole and frac", "1.500000", 1_500_000},
		{"no frac", "1", 1_000_000},
		{"short frac", "1.5", 1_500_000},
		{"six decimals", "1.123456", 1_123_456},
		{"large amount", "999999.999999", 999_999_999_999},
		{"leading zeros", "007.50", 7_500_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			if !ok {
				t.Fatalf("Parse(%q) returned ok=false", tt.input)
			}
			if got.Int64() != tt.expected {
				t.Errorf("Parse(%q) = %d, want %d", tt.input, got.Int64(), tt.expected)
			}
		})
	}
}

func TestParse_InvalidAmounts(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"negative", "-1.00"},
		{"two dots", "1.2.3"},
		{"letters", "abc"},
		{"mixed", "1.2x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Parse(tt.input); ok {
				t.Errorf("Parse(%q) returned ok=true, want false", tt.input)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		input int64
		want  string
	}{
		{"zero", 0, "0.000000"},
		{"one", 1_000_000, "1.000000"},
		{"fraction", 1_500_000, "1.500000"},
		{"smallest", 1, "0.000001"},
		{"large", 200_000_000, "200.000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(big.NewInt(tt.input)); got != tt.want {
				t.Errorf("Format(%d) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	if got := Format(nil); got != "0.000000" {
		t.Errorf("Format(nil) = %q, want 0.000000", got)
	}
}

func TestAddAndCmp(t *testing.T) {
	if got := Add("40", "160"); got != "200.000000" {
		t.Errorf("Add(40, 160) = %q, want 200.000000", got)
	}
	if Cmp("200.000000", "200") != 0 {
		t.Error("Cmp(200.000000, 200) != 0")
	}
	if Cmp("200.000001", "200") != 1 {
		t.Error("Cmp(200.000001, 200) != 1")
	}
	if Cmp("40", "200") != -1 {
		t.Error("Cmp(40, 200) != -1")
	}
}
