package truncate

import (
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLen    int
		wantShort string
		wantFull  string
	}{
		{
			name:      "Fits exactly",
			input:     "hello",
			maxLen:    5,
			wantShort: "hello",
			wantFull:  "",
		},
		{
			name:      "Shorter than limit",
			input:     "hi",
			maxLen:    10,
			wantShort: "hi",
			wantFull:  "",
		},
		{
			name:      "Needs truncation",
			input:     "hello world",
			maxLen:    8,
			wantShort: "hello...",
			wantFull:  "hello world",
		},
		{
			name:      "Limit smaller than ellipsis",
			input:     "hello",
			maxLen:    2,
			wantShort: "he",
			wantFull:  "hello",
		},
		{
			name:      "Empty string",
			input:     "",
			maxLen:    10,
			wantShort: "",
			wantFull:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			short, full := Split(tt.input, tt.maxLen)
			if short != tt.wantShort {
				t.Errorf("Split() short = %q, want %q", short, tt.wantShort)
			}
			if full != tt.wantFull {
				t.Errorf("Split() full = %q, want %q", full, tt.wantFull)
			}
		})
	}
}

func TestSplit_MultibyteBoundary(t *testing.T) {
	// 4 two-byte runes; a cut at byte 7 must back up to a rune start.
	input := strings.Repeat("é", 4)
	short, full := Split(input, 7)
	if full != input {
		t.Errorf("expected full message to be preserved, got %q", full)
	}
	for i, r := range short {
		if r == '�' {
			t.Errorf("short message contains invalid UTF-8 at byte %d: %q", i, short)
		}
	}
	if len(short) > 7 {
		t.Errorf("short message exceeds limit: %d bytes", len(short))
	}
}
