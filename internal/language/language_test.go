package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"eng", "en"},
		{"fre", "fr"},
		{"ger", "de"},
		{"english", "en"},
		{" Spanish ", "es"},
		{"en-US", "en"},
		{"pt_BR", "pt"},
		{"auto", "auto"},
		{"AUTO", "auto"},
		{"xx", "xx"},
		{"klingon", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFromVoice(t *testing.T) {
	tests := map[string]string{
		"en-US-AriaNeural":   "en",
		"de-DE-KatjaNeural":  "de",
		"fr-CA-SylvieNeural": "fr",
		"alloy":              "",
		"":                   "",
	}
	for voice, want := range tests {
		if got := FromVoice(voice); got != want {
			t.Errorf("FromVoice(%q) = %q, want %q", voice, got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"en":   "English",
		"jpn":  "Japanese",
		"auto": "Auto-detect",
		"xx":   "XX",
		"":     "Unknown",
	}
	for code, want := range tests {
		if got := DisplayName(code); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", code, got, want)
		}
	}
}
