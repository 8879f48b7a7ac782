package plugins

import (
	"context"
	"encoding/json"
	"fmt"
)

const doubaoPath = "/api/agent/doubao"

// Doubao speaks the OpenAI chat completions format.
type Doubao struct{}

func NewDoubao() *Doubao {
	return &Doubao{}
}

func (p *Doubao) Name() string {
	return "doubao"
}

func (p *Doubao) CanHandle(provider string) bool {
	return provider == "doubao" || provider == ""
}

func (p *Doubao) Priority() int {
	return 50
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *Doubao) Ask(ctx context.Context, prompt string, opts Options, poster Poster) (*Answer, error) {
	req := chatRequest{
		Model:       opts.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	raw, err := poster.PostAgent(ctx, doubaoPath, req)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("malformed completion: no choices")
	}

	model := resp.Model
	if model == "" {
		model = opts.Model
	}
	return &Answer{
		Provider: p.Name(),
		Model:    model,
		Content:  resp.Choices[0].Message.Content,
	}, nil
}
