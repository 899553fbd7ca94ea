package prompt

import (
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

func TestLookupShippedPrompts(t *testing.T) {
	t.Parallel()

	names := []string{
		RouterLabel, RouterHandoff, ProfileExtract, ComplaintExtract,
		"educator", "guide", "complaint", "fact_checker", "city_guide", "general",
	}
	for _, name := range names {
		text, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q) error = %v", name, err)
		}
		if strings.TrimSpace(text) != text || text == "" {
			t.Fatalf("Lookup(%q) returned untrimmed or empty text", name)
		}
	}
}

func TestLookupMissing(t *testing.T) {
	t.Parallel()

	if _, err := Lookup("nope"); !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("Lookup() error = %v, want ErrPromptMissing", err)
	}
}
