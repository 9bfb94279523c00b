package sanitizer

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trim spaces", "  Ivan  ", "Ivan"},
		{"multiple spaces between words", "Oil    change", "Oil change"},
		{"tabs and newlines", "Brake\t\npads", "Brake pads"},
		{"empty string", "", ""},
		{"only whitespace", "   \t\n  ", ""},
		{"preserve special characters", " Müller & Sons™ ", "Müller & Sons™"},
		{"cyrillic", " Замена масла ", "Замена масла"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.input); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Owner@Example.COM "); got != "owner@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}

func TestNormalizeClock(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"09:30", "09:30"},
		{"9:30", "09:30"},
		{" 17:05 ", "17:05"},
		{"25:00", "25:00"},
		{"noon", "noon"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeClock(tt.input); got != tt.want {
			t.Errorf("NormalizeClock(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPipeline_Apply(t *testing.T) {
	p := Pipeline{TrimAndNormalize, NormalizeEmail}
	if got := p.Apply("  A  B "); got != "a b" {
		t.Errorf("Apply() = %q", got)
	}
	if got := (Pipeline{}).Apply("x"); got != "x" {
		t.Errorf("empty pipeline Apply() = %q", got)
	}
}
