package agents

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Result is one model response plus the token usage reported for it.
type Result struct {
	Text         string
	TokensInput  int64
	TokensOutput int64
}

// Runner generates text for a prompt. It exists so the pipeline can be
// tested without calling a real model.
type Runner interface {
	Generate(ctx context.Context, prompt string) (*Result, error)
}

// GeminiRunner is the Runner backed by the Gemini API. Credentials come
// from the environment (GEMINI_API_KEY or application default credentials).
type GeminiRunner struct {
	model string
}

// NewGeminiRunner creates a runner for the given model name.
func NewGeminiRunner(model string) *GeminiRunner {
	return &GeminiRunner{model: model}
}

// Generate sends the prompt as a single user turn and returns the text plus
// token usage.
func (r *GeminiRunner) Generate(ctx context.Context, prompt string) (*Result, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("Generate: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, r.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Generate: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("Generate: empty response from model %s", r.model)
	}

	result := &Result{Text: text}
	if resp.UsageMetadata != nil {
		result.TokensInput = int64(resp.UsageMetadata.PromptTokenCount)
		result.TokensOutput = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

var _ Runner = (*GeminiRunner)(nil)
