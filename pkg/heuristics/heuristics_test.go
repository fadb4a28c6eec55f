package heuristics

import (
	"regexp"
	"testing"
)

func TestIndustry(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Patient Safety in daily care", "healthcare"},
		{"Grunderna i omvårdnad", "healthcare"},
		{"Introduction to cloud software", "technology"},
		{"GDPR för chefer", "legal"},
		{"Knitting for fun", "general"},
		{"", "general"},
	}
	for _, tt := range tests {
		if got := Industry.Classify(tt.text); got != tt.want {
			t.Errorf("Industry(%q): expected %s, got %s", tt.text, tt.want, got)
		}
	}
}

func TestFirstRuleWins(t *testing.T) {
	c := Classifier{
		Default: "none",
		Rules: []Rule{
			{"first", regexp.MustCompile(`alpha`)},
			{"second", regexp.MustCompile(`alpha|beta`)},
		},
	}
	if got := c.Classify("alpha beta"); got != "first" {
		t.Errorf("expected first, got %s", got)
	}
	if got := c.Classify("beta"); got != "second" {
		t.Errorf("expected second, got %s", got)
	}
	if got := c.Classify("gamma"); got != "none" {
		t.Errorf("expected default, got %s", got)
	}
}

func TestResolvePrefersExplicit(t *testing.T) {
	if got := Tone.Resolve("Casual", "an inspiring vision"); got != "casual" {
		t.Errorf("expected explicit casual, got %s", got)
	}
	if got := Tone.Resolve("", "an inspiring vision"); got != "inspirational" {
		t.Errorf("expected inferred inspirational, got %s", got)
	}
	if got := Tone.Resolve("  ", "nothing here"); got != "professional" {
		t.Errorf("expected default professional, got %s", got)
	}
}

func TestAudienceAndMood(t *testing.T) {
	if got := Audience.Classify("Ledarskap för chefer"); got != "executives" {
		t.Errorf("expected executives, got %s", got)
	}
	if got := Audience.Classify("Kurs för undersköterskor"); got != "healthcare-staff" {
		t.Errorf("expected healthcare-staff, got %s", got)
	}
	if got := ImageMood.Classify("Incident reporting and risk"); got != "serious" {
		t.Errorf("expected serious, got %s", got)
	}
	if got := ImageMood.Classify("a blank wall"); got != "neutral" {
		t.Errorf("expected neutral, got %s", got)
	}
}

func TestClassifyMultipleTexts(t *testing.T) {
	if got := Industry.Classify("Module 1", "", "bank accounts"); got != "finance" {
		t.Errorf("expected finance, got %s", got)
	}
}
