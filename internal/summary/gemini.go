package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gl "google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"
)

const (
	DefaultModel       = "gemini-3-flash-preview"
	defaultTemperature = 0.8
	defaultTopP        = 0.9
)

var ErrNoCandidates = errors.New("no candidates in response")

// Gemini calls the Generative Language API.
type Gemini struct {
	svc         *gl.Service
	model       string
	temperature float64
	topP        float64
}

var _ Generator = (*Gemini)(nil)

// NewGemini creates a client authenticated with an API key. Extra client
// options (endpoint, HTTP client) are appended after the key.
func NewGemini(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing API key")
	}
	if model == "" {
		model = DefaultModel
	}
	svc, err := gl.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("generative language service: %w", err)
	}
	return &Gemini{
		svc:         svc,
		model:       model,
		temperature: defaultTemperature,
		topP:        defaultTopP,
	}, nil
}

// Generate sends a single-turn prompt and returns the concatenated text
// of the first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	req := &gl.GenerateContentRequest{
		Contents: []*gl.Content{{
			Role:  "user",
			Parts: []*gl.Part{{Text: prompt}},
		}},
		GenerationConfig: &gl.GenerationConfig{
			Temperature: g.temperature,
			TopP:        g.topP,
		},
	}
	resp, err := g.svc.Models.GenerateContent(modelName(g.model), req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("generate content (model=%s): %w", g.model, err)
	}
	return responseText(resp)
}

func modelName(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

func responseText(resp *gl.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrNoCandidates
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return "", nil
	}
	var b strings.Builder
	for _, p := range c.Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return b.String(), nil
}
