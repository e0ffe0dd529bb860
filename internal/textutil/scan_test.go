package textutil

import "testing"

func TestNormalizeScan(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t", ""},
		{"plain sku", "  BED-160x200 ", "BED-160x200"},
		{"russian layout period", "SKUю01", "SKU.01"},
		{"russian layout comma", "AБB", "A,B"},
		{"full width", "ＳＫＵ１２３", "SKU123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeScan(tt.input); got != tt.want {
				t.Errorf("NormalizeScan(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeWorkCenter(t *testing.T) {
	if got := NormalizeWorkCenter(" упаковка "); got != "УПАКОВКА" {
		t.Fatalf("NormalizeWorkCenter = %q", got)
	}
	if got := NormalizeWorkCenter("packing"); got != "PACKING" {
		t.Fatalf("NormalizeWorkCenter = %q", got)
	}
}

func TestNormalizeWorkCentersDropsBlanksAndDuplicates(t *testing.T) {
	got := NormalizeWorkCenters([]string{"packing", "", " PACKING ", "kitting"})
	if len(got) != 2 || got[0] != "PACKING" || got[1] != "KITTING" {
		t.Fatalf("unexpected result: %v", got)
	}
}
