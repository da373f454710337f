package memory

import (
	"slices"
	"strings"
	"testing"
)

func TestKeywords(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"Mom's name is Sarah", []string{"mom", "sarah"}},
		{"mom’s birthday and MOM's cake", []string{"mom", "birthday", "cake"}},
		{"what is it?", []string{}},
		{"Dinner at 7, table for 2", []string{"dinner", "7", "table", "2"}},
	}
	for _, tt := range tests {
		if got := Keywords(tt.text); !slices.Equal(got, tt.want) {
			t.Errorf("Keywords(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestPreview(t *testing.T) {
	short := "hello"
	if preview(short) != short {
		t.Errorf("preview(%q) changed a short string", short)
	}
	long := strings.Repeat("ü", 100)
	got := preview(long)
	if !strings.HasSuffix(got, "...") || len([]rune(got)) != 63 {
		t.Errorf("preview() = %q", got)
	}
}
