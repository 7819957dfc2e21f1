package export

import (
	"strings"
	"testing"
)

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "Q1", "Q1", false},
		{"forbidden characters", "Sales: East/West [2024]?", "Sales EastWest 2024", false},
		{"apostrophes trimmed", "'Budget'", "Budget", false},
		{"truncated", strings.Repeat("a", 40), strings.Repeat("a", 31), false},
		{"multibyte truncated by rune", strings.Repeat("é", 35), strings.Repeat("é", 31), false},
		{"empty", "", "", true},
		{"only forbidden", "*?/", "", true},
		{"reserved", "history", "", true},
		{"control characters dropped", "a\x00b\tc\x7f", "abc", false},
		{"only control characters", "\x01\x02", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeSheetName(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SanitizeSheetName(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizeSheetName(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("SanitizeSheetName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeExtension(t *testing.T) {
	tests := []struct {
		ext, def, want string
	}{
		{"", "", ".xlsx"},
		{"", ".xls", ".xls"},
		{"xlsx", "", ".xlsx"},
		{" .xlsm ", "", ".xlsm"},
	}
	for _, tt := range tests {
		if got := NormalizeExtension(tt.ext, tt.def); got != tt.want {
			t.Errorf("NormalizeExtension(%q, %q) = %q, want %q", tt.ext, tt.def, got, tt.want)
		}
	}
}
