package service

import (
	"os"
	"sort"
	"strings"

	apperrors "github.com/target/verifyd/internal/errors"
)

// Provider names accepted in apiKeys maps.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderExa       = "exa"
)

// KnownProviders lists every provider whose key is read from the environment.
var KnownProviders = []string{ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderExa}

// EnvLookup matches os.LookupEnv.
type EnvLookup func(key string) (string, bool)

// APIKeyEnvVar returns the environment variable holding a provider key, e.g. OPENAI_API_KEY.
func APIKeyEnvVar(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}

// ResolveAPIKeys merges provider keys from the environment with per-request overrides.
// Overrides win; blank values on either side are ignored. Provider names are lower-cased.
func ResolveAPIKeys(overrides map[string]string, lookup EnvLookup) map[string]string {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	keys := make(map[string]string, len(KnownProviders)+len(overrides))
	for _, p := range KnownProviders {
		if v, ok := lookup(APIKeyEnvVar(p)); ok {
			if v = strings.TrimSpace(v); v != "" {
				keys[p] = v
			}
		}
	}

	for p, v := range overrides {
		p = strings.ToLower(strings.TrimSpace(p))
		v = strings.TrimSpace(v)
		if p == "" || v == "" {
			continue
		}
		keys[p] = v
	}

	return keys
}

// ValidateAPIKeys rejects key sets without the primary provider.
func ValidateAPIKeys(keys map[string]string, primary string) error {
	primary = strings.ToLower(strings.TrimSpace(primary))
	if primary == "" {
		primary = ProviderOpenAI
	}
	if strings.TrimSpace(keys[primary]) == "" {
		return apperrors.ValidationField("apiKeys",
			"missing API key for primary provider "+primary+": set "+APIKeyEnvVar(primary)+" or pass apiKeys."+primary)
	}
	return nil
}

// ProviderNames returns the providers present in keys, sorted. Used for logging without leaking secrets.
func ProviderNames(keys map[string]string) []string {
	names := make([]string, 0, len(keys))
	for p := range keys {
		names = append(names, p)
	}
	sort.Strings(names)
	return names
}
