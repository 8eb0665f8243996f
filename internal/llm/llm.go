package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/zorasurvey/surveyd/internal/apperr"
	"github.com/zorasurvey/surveyd/internal/model"
)

// callTimeout caps one summarization call. A slow upstream should fail this
// one request, not hold it open indefinitely.
const callTimeout = 30 * time.Second

// Client wraps an OpenAI-compatible API for survey summarization. A nil
// Client means the feature is unconfigured.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a summarization client. Returns nil when apiKey is empty, so
// callers can treat the feature as disabled.
func New(baseURL, apiKey, modelName string) *Client {
	if apiKey == "" {
		return nil
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Enabled reports whether summarization is configured.
func (c *Client) Enabled() bool {
	return c != nil
}

// Summarize sends aggregated response statistics upstream and returns the
// generated summary text.
func (c *Client) Summarize(ctx context.Context, title string, responseCount int, top []model.ProblemRank) (string, error) {
	if !c.Enabled() {
		return "", apperr.Upstream("AI summary is not configured", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	prompt := buildSummaryPrompt(title, responseCount, top)
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", apperr.Upstream("AI service unavailable", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.Upstream("AI service returned no choices", nil)
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("summary generated", "model", c.model, "length", len(summary))
	return summary, nil
}

// Ping verifies the upstream endpoint responds at all.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	_, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("ping LLM endpoint: %w", err)
	}
	return nil
}

const summarySystemPrompt = "You are an analyst summarizing survey results for a product team. " +
	"Write a brief, concrete summary (3-5 sentences) of the key pain points and priorities. " +
	"Do not invent data beyond what is provided."

func buildSummaryPrompt(title string, responseCount int, top []model.ProblemRank) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Survey: %s\n", title)
	fmt.Fprintf(&sb, "Responses: %d\n\n", responseCount)
	sb.WriteString("Top pain points (score = avg frequency x avg severity, scale 1-10):\n")
	for i, p := range top {
		fmt.Fprintf(&sb, "%d. %s [%s] - frequency %.1f, severity %.1f, score %.1f\n",
			i+1, p.Title, p.Section, p.AvgFrequency, p.AvgSeverity, p.Score)
	}
	sb.WriteString("\nSummarize the main themes and which areas to address first.")
	return sb.String()
}
