// Package mock implements a deterministic in-process LLM provider.
// It exists for offline development and for tests that need a provider
// wired through the registry without any network dependency.
package mock

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/kart-io/papergen/pkg/llm"
)

// ProviderName identifies the mock provider in the registry.
const ProviderName = "mock"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Provider is a deterministic provider: embeddings are derived from a hash
// of the input text, and chat calls return a fixed response.
type Provider struct {
	dimension int
	response  string
}

// NewProvider creates a mock provider from a config map.
// Supported keys: "dimension" (int, default 1024) and "response" (string,
// returned verbatim by every chat call, default "{}").
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	p := &Provider{
		dimension: 1024,
		response:  "{}",
	}
	if v, ok := configMap["dimension"].(int); ok && v > 0 {
		p.dimension = v
	}
	if v, ok := configMap["response"].(string); ok && v != "" {
		p.response = v
	}
	return p, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return ProviderName
}

// Embed generates deterministic embeddings for multiple texts.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = p.embed(text)
	}
	return embeddings, nil
}

// EmbedSingle generates a deterministic embedding for a single text.
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return p.embed(text), nil
}

// embed maps text to a unit-norm vector seeded by an FNV hash, so equal
// texts always embed identically.
func (p *Provider) embed(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	state := h.Sum64()

	vec := make([]float32, p.dimension)
	var norm float64
	for i := range vec {
		// xorshift64
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		v := float64(int64(state%2000)-1000) / 1000.0
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

// Chat returns the configured canned response.
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return p.response, nil
}

// Generate returns the configured canned response.
func (p *Provider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	return p.response, nil
}

var _ llm.Provider = (*Provider)(nil)
