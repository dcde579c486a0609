package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/target/verifyd/internal/errors"
)

func envFrom(vars map[string]string) EnvLookup {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestResolveAPIKeys(t *testing.T) {
	env := envFrom(map[string]string{
		"OPENAI_API_KEY":    "env-openai",
		"ANTHROPIC_API_KEY": "  ",
		"EXA_API_KEY":       "env-exa",
		"UNRELATED":         "x",
	})

	keys := ResolveAPIKeys(map[string]string{
		"OpenAI": "req-openai",
		"google": "req-google",
		"exa":    " ",
		"":       "dropped",
	}, env)

	assert.Equal(t, map[string]string{
		"openai": "req-openai",
		"google": "req-google",
		"exa":    "env-exa",
	}, keys)
}

func TestResolveAPIKeys_NoOverrides(t *testing.T) {
	keys := ResolveAPIKeys(nil, envFrom(map[string]string{"GOOGLE_API_KEY": "g"}))
	assert.Equal(t, map[string]string{"google": "g"}, keys)
}

func TestValidateAPIKeys(t *testing.T) {
	require.NoError(t, ValidateAPIKeys(map[string]string{"openai": "k"}, "openai"))
	require.NoError(t, ValidateAPIKeys(map[string]string{"openai": "k"}, ""))

	err := ValidateAPIKeys(map[string]string{"anthropic": "k"}, "openai")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "apiKeys", apperrors.GetField(err))
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	err = ValidateAPIKeys(map[string]string{"openai": "k"}, "Anthropic")
	assert.True(t, apperrors.IsValidation(err))
}

func TestProviderNames(t *testing.T) {
	assert.Equal(t, []string{"exa", "openai"}, ProviderNames(map[string]string{"openai": "secret", "exa": "secret"}))
	assert.Empty(t, ProviderNames(nil))
}
