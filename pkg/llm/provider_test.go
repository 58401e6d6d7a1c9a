package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/papergen/pkg/llm"
	"github.com/kart-io/papergen/pkg/llm/mock"
)

func TestNewProviderFromRegistry(t *testing.T) {
	p, err := llm.NewProvider(mock.ProviderName, map[string]any{"dimension": 8})
	require.NoError(t, err)
	assert.Equal(t, mock.ProviderName, p.Name())

	vec, err := p.EmbedSingle(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
}

func TestNewProviderUnknownName(t *testing.T) {
	_, err := llm.NewProvider("does-not-exist", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNewEmbeddingProviderFallsBackToFullProvider(t *testing.T) {
	p, err := llm.NewEmbeddingProvider(mock.ProviderName, nil)
	require.NoError(t, err)

	vecs, err := p.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.NotEqual(t, vecs[0], vecs[1])
}

func TestNewChatProviderDedicatedFactoryWins(t *testing.T) {
	llm.RegisterChatProvider("chat-only", func(config map[string]any) (llm.ChatProvider, error) {
		return mock.NewProvider(map[string]any{"response": "dedicated"})
	})
	llm.RegisterProvider("chat-only", func(config map[string]any) (llm.Provider, error) {
		return mock.NewProvider(map[string]any{"response": "full"})
	})

	p, err := llm.NewChatProvider("chat-only", nil)
	require.NoError(t, err)

	out, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "dedicated", out)
}

func TestMockEmbeddingsAreDeterministic(t *testing.T) {
	p, err := mock.NewProvider(map[string]any{"dimension": 16})
	require.NoError(t, err)

	a1, err := p.EmbedSingle(context.Background(), "same text")
	require.NoError(t, err)
	a2, err := p.EmbedSingle(context.Background(), "same text")
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
}

func TestListProvidersIncludesRegistered(t *testing.T) {
	assert.Contains(t, llm.ListProviders(), mock.ProviderName)
}
