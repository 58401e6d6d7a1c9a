package biz_test

import (
	"context"
	"errors"

	"github.com/kart-io/papergen/pkg/llm"
)

// chatFunc adapts a function into a llm.ChatProvider for tests.
type chatFunc func(messages []llm.Message) (string, error)

func (f chatFunc) Chat(_ context.Context, messages []llm.Message) (string, error) {
	return f(messages)
}

func (f chatFunc) Generate(_ context.Context, prompt, systemPrompt string) (string, error) {
	return f([]llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
}

func (f chatFunc) Name() string { return "scripted-chat" }

// embedFunc adapts a function into a llm.EmbeddingProvider for tests.
type embedFunc func(texts []string) ([][]float32, error)

func (f embedFunc) Embed(_ context.Context, texts []string) ([][]float32, error) {
	return f(texts)
}

func (f embedFunc) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	out, err := f([]string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (f embedFunc) Name() string { return "scripted-embedder" }

// failingEmbedder always returns an error, simulating an embedding
// service outage.
var failingEmbedder = embedFunc(func([]string) ([][]float32, error) {
	return nil, errors.New("embedding service unavailable")
})

func fixedEmbedder(vec []float32) embedFunc {
	return func(texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = vec
		}
		return out, nil
	}
}
