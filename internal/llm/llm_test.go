package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/zorasurvey/surveyd/internal/apperr"
	"github.com/zorasurvey/surveyd/internal/model"
)

func TestNewWithoutKeyIsDisabled(t *testing.T) {
	c := New("http://localhost:11434/v1", "", "gpt-4o-mini")
	if c != nil {
		t.Fatal("expected nil client without an API key")
	}
	if c.Enabled() {
		t.Error("nil client must report disabled")
	}
}

func TestNewWithKey(t *testing.T) {
	c := New("", "sk-test", "gpt-4o-mini")
	if !c.Enabled() {
		t.Fatal("expected client to be enabled")
	}
	if c.model != "gpt-4o-mini" {
		t.Errorf("expected model preserved, got %q", c.model)
	}
}

func TestSummarizeDisabled(t *testing.T) {
	var c *Client
	_, err := c.Summarize(context.Background(), "Survey", 3, nil)
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Errorf("expected upstream error from disabled client, got %v", err)
	}
}

func TestPingDisabled(t *testing.T) {
	var c *Client
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("disabled client ping should be a no-op, got %v", err)
	}
}

func TestBuildSummaryPrompt(t *testing.T) {
	top := []model.ProblemRank{
		{ID: 2, Title: "Unclear priorities", Section: "Process", AvgFrequency: 8.0, AvgSeverity: 9.0, Score: 72.0},
		{ID: 1, Title: "Slow reviews", Section: "Process", AvgFrequency: 3.5, AvgSeverity: 4.0, Score: 14.0},
	}
	prompt := buildSummaryPrompt("Team Survey", 12, top)

	for _, want := range []string{
		"Survey: Team Survey",
		"Responses: 12",
		"1. Unclear priorities [Process]",
		"2. Slow reviews [Process]",
		"frequency 8.0",
		"severity 9.0",
		"score 72.0",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	// Ranking order must survive into the numbered list.
	if strings.Index(prompt, "Unclear priorities") > strings.Index(prompt, "Slow reviews") {
		t.Error("top problems listed out of rank order")
	}
}

func TestBuildSummaryPromptEmptyTop(t *testing.T) {
	prompt := buildSummaryPrompt("Team Survey", 0, nil)
	if !strings.Contains(prompt, "Responses: 0") {
		t.Errorf("prompt missing response count:\n%s", prompt)
	}
}
