package llm_test

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	response string
	err      error
	chunks   []string

	messages []llms.MessageContent
	options  llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	f.options = llms.CallOptions{}
	for _, opt := range options {
		opt(&f.options)
	}

	if f.err != nil {
		return nil, f.err
	}

	if f.options.StreamingFunc != nil {
		for _, chunk := range f.chunks {
			if err := f.options.StreamingFunc(ctx, []byte(chunk)); err != nil {
				return nil, err
			}
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.response, f.err
}

// text returns the text of the i-th message sent to the model.
func (f *fakeModel) text(i int) string {
	var b strings.Builder
	for _, part := range f.messages[i].Parts {
		if tc, ok := part.(llms.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

type fakeEmbeddingClient struct {
	calls   int
	err     error
	short   bool
	empties bool
}

// CreateEmbedding returns a vector derived from each text so ordering can be checked.
func (f *fakeEmbeddingClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if f.empties && strings.Contains(text, "empty") {
			out = append(out, []float32{})
			continue
		}
		out = append(out, []float32{float32(len(text)), float32(text[0])})
	}
	if f.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}
