// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aperturehq/aperture/pkg/errors"
	"github.com/aperturehq/aperture/pkg/logger"
)

// canonicalEnvVars maps a provider key to the environment variable its SDK
// reads the API key from.
var canonicalEnvVars = map[string]string{
	ProviderAnthropic:  "ANTHROPIC_API_KEY",
	ProviderOpenAI:     "OPENAI_API_KEY",
	ProviderGoogle:     "GEMINI_API_KEY",
	ProviderGroq:       "GROQ_API_KEY",
	ProviderOpenRouter: "OPENROUTER_API_KEY",
}

// CanonicalEnvVar returns the environment variable carrying the API key for
// a provider, or the empty string for unknown providers.
func CanonicalEnvVar(provider string) string {
	return canonicalEnvVars[provider]
}

// isProviderSecret reports whether an environment variable name can carry
// provider credentials. Pi sessions additionally treat Google Cloud
// application credentials as secrets because its SDK picks them up
// implicitly.
func isProviderSecret(name string, kind Kind) bool {
	if strings.HasSuffix(name, "_API_KEY") {
		return true
	}
	if kind == KindPi {
		switch {
		case name == "GOOGLE_APPLICATION_CREDENTIALS",
			name == "GOOGLE_CLOUD_PROJECT",
			strings.HasPrefix(name, "CLOUDSDK_"):
			return true
		}
	}
	return false
}

// ValidateEnvOverrides rejects user-supplied env overrides that would smuggle
// provider credentials into a session. A secret-shaped variable is allowed
// only when the session authenticates with an api_key and the variable is
// the canonical one for its provider.
func ValidateEnvOverrides(kind Kind, auth SessionAuth, overrides map[string]string) error {
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "" || strings.ContainsRune(name, '=') {
			return errors.NewValidationError(fmt.Sprintf("invalid environment variable name %q", name), nil)
		}
		if !isProviderSecret(name, kind) {
			continue
		}
		if auth.Mode == AuthModeAPIKey && name == CanonicalEnvVar(auth.ProviderKey) {
			continue
		}
		return errors.NewValidationError(
			fmt.Sprintf("environment override %q is not permitted: provider secrets are supplied through session auth", name), nil)
	}
	return nil
}

// BuildSessionEnv assembles the environment for a backend process. The
// parent environment is never forwarded wholesale: every provider-secret
// variable is stripped, validated overrides are layered on top, and the
// resolved key (if any) is injected as the single canonical variable for
// the session's provider. In oauth mode no provider key survives at all.
func BuildSessionEnv(parent []string, kind Kind, auth SessionAuth, key *ResolvedCredential, overrides map[string]string) []string {
	out := make([]string, 0, len(parent)+len(overrides)+1)
	index := make(map[string]int, len(parent))
	set := func(name, value string) {
		if i, ok := index[name]; ok {
			out[i] = name + "=" + value
			return
		}
		index[name] = len(out)
		out = append(out, name+"="+value)
	}

	for _, kv := range parent {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		if isProviderSecret(name, kind) {
			continue
		}
		set(name, value)
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if isProviderSecret(name, kind) {
			if auth.Mode != AuthModeAPIKey || name != CanonicalEnvVar(auth.ProviderKey) {
				continue
			}
		}
		set(name, overrides[name])
	}

	if key != nil && auth.Mode == AuthModeAPIKey {
		if canonical := CanonicalEnvVar(key.Provider); canonical != "" {
			set(canonical, key.APIKey)
		}
	}
	return out
}

// AmbientProviderKeys returns the provider-secret variable names present in
// the given environment, sorted. The supervisor warns about these at boot;
// they are never forwarded to sessions.
func AmbientProviderKeys(environ []string) []string {
	var found []string
	seen := make(map[string]struct{})
	for _, kv := range environ {
		name, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if !strings.HasSuffix(name, "_API_KEY") {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		found = append(found, name)
	}
	sort.Strings(found)
	return found
}

func warnHostedOAuth(provider string) {
	logger.Warnf("admitting oauth session for provider %q in hosted mode: interactive login must have been completed out-of-band", provider)
}
