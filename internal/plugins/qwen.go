package plugins

import (
	"context"
	"encoding/json"
	"fmt"
)

const qwenPath = "/api/agent/qwen"

// Qwen takes a bare prompt. The reply shape is not documented so a plain
// string, a completion, or an object with a common text field are accepted.
type Qwen struct{}

func NewQwen() *Qwen {
	return &Qwen{}
}

func (p *Qwen) Name() string {
	return "qwen"
}

func (p *Qwen) CanHandle(provider string) bool {
	return provider == "qwen"
}

func (p *Qwen) Priority() int {
	return 50
}

func (p *Qwen) Ask(ctx context.Context, prompt string, _ Options, poster Poster) (*Answer, error) {
	raw, err := poster.PostAgent(ctx, qwenPath, map[string]string{"prompt": prompt})
	if err != nil {
		return nil, err
	}

	content, err := extractText(raw)
	if err != nil {
		return nil, err
	}
	return &Answer{Provider: p.Name(), Content: content}, nil
}

func extractText(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var obj struct {
		Output  string `json:"output"`
		Text    string `json:"text"`
		Answer  string `json:"answer"`
		Content string `json:"content"`
		Result  string `json:"result"`
		chatResponse
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("decoding reply: %w", err)
	}
	for _, v := range []string{obj.Output, obj.Text, obj.Answer, obj.Content, obj.Result} {
		if v != "" {
			return v, nil
		}
	}
	if len(obj.Choices) > 0 {
		return obj.Choices[0].Message.Content, nil
	}
	return "", nil
}
