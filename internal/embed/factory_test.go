package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/titlesearch/internal/logging"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    ProviderType
		wantErr bool
	}{
		{"", ProviderStatic, false},
		{"static", ProviderStatic, false},
		{"OLLAMA", ProviderOllama, false},
		{" openai ", ProviderOpenAI, false},
		{"bedrock", ProviderBedrock, false},
		{"none", ProviderNone, false},
		{"mlx", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewFromConfig_None(t *testing.T) {
	e, err := NewFromConfig(context.Background(), Config{Provider: "none"}, logging.Discard())

	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestNewFromConfig_StaticIsLazyAndCached(t *testing.T) {
	e, err := NewFromConfig(context.Background(), Config{Provider: "static", Model: "ignored"}, logging.Discard())
	require.NoError(t, err)

	cached, ok := e.(*CachedEmbedder)
	require.True(t, ok)
	lazy, ok := cached.Inner().(*Lazy)
	require.True(t, ok)

	assert.Equal(t, StaticModelName, e.ModelName())
	assert.Equal(t, StaticDimensions, e.Dimensions())
	assert.False(t, lazy.Initialized())

	_, err = e.Embed(context.Background(), "nurse")
	require.NoError(t, err)
	assert.True(t, lazy.Initialized())
}

func TestNewFromConfig_DefaultModels(t *testing.T) {
	e, err := NewFromConfig(context.Background(), Config{Provider: "ollama"}, logging.Discard())

	require.NoError(t, err)
	assert.Equal(t, DefaultOllamaModel, e.ModelName())
	assert.Equal(t, 0, e.Dimensions())
}
