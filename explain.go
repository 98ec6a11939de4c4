package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultExplainModel = "claude-sonnet-4-5-20250929"

const explainSystemPrompt = `You are a clinical dashboard assistant. Given a ` +
	`deterioration-risk prediction for a care-home resident, write a short ` +
	`plain-language explanation (3-4 sentences) for nursing staff: what the ` +
	`score means, which inputs most plausibly drove it, and what the ` +
	`recommended action entails. Do not invent vitals that are not in the ` +
	`input. No preamble.`

// ExplainResult asks the configured LLM for a plain-language explanation of
// one prediction. It is an optional extra on the single view; any failure is
// surfaced inline there like a remote error.
func ExplainResult(ctx context.Context, cfg Config, payload map[string]float64, result PredictionResult) (string, error) {
	if !cfg.ExplainConfigured() {
		return "", fmt.Errorf("explanations are not configured (anthropic_api_key is unset)")
	}
	model := cfg.ExplainModel
	if model == "" {
		model = defaultExplainModel
	}

	var input []string
	for _, spec := range AssessmentSchema {
		input = append(input, fmt.Sprintf("%s: %g", spec.Label, payload[spec.Name]))
	}
	userPrompt := fmt.Sprintf(
		"Inputs:\n%s\n\nPrediction: risk score %.2f, alert level %s.\nRecommended action: %s",
		strings.Join(input, "\n"), result.RiskScore, result.Level(), result.RecommendedAction,
	)

	log.Printf("explain request model=%s level=%s score=%.2f", model, result.Level(), result.RiskScore)

	client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 512,
		System: []anthropic.TextBlockParam{
			{Text: explainSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("explain anthropic error: %v", err)
		return "", fmt.Errorf("explanation service error: %v", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", fmt.Errorf("no text content in explanation response")
}
