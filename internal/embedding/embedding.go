// Package embedding maps text to fixed-dimension vectors through named
// model profiles. Profiles are indirection, not hard-coded models: a cheap
// primary profile and a higher-fidelity secondary profile can point at
// different backends, and each profile's backend is selected by
// configuration rather than by sniffing the profile name.
package embedding

import (
	"context"
	"fmt"
)

// Well-known profile names.
const (
	ProfilePrimary    = "primary_retrieval"
	ProfileRedundancy = "redundancy_layer"
)

// ConfigurationError reports a profile with no available backend and no
// safe fallback.
type ConfigurationError struct {
	Profile string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("embedding profile %q: %s", e.Profile, e.Reason)
}

// Embedder produces one vector per input string, order-preserving and
// deterministic for a fixed backend and input.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Dimension() int
}

// Registry resolves profile names to backends.
type Registry struct {
	profiles map[string]Embedder
}

func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]Embedder)}
}

// Register binds a profile name to a backend.
func (r *Registry) Register(profile string, e Embedder) {
	r.profiles[profile] = e
}

// ForProfile returns the backend bound to a profile.
func (r *Registry) ForProfile(profile string) (Embedder, error) {
	e, ok := r.profiles[profile]
	if !ok {
		return nil, &ConfigurationError{Profile: profile, Reason: "no backend registered"}
	}
	return e, nil
}

// Embed resolves the profile and embeds the batch.
func (r *Registry) Embed(ctx context.Context, texts []string, profile string) ([][]float64, error) {
	e, err := r.ForProfile(profile)
	if err != nil {
		return nil, err
	}
	return e.EmbedBatch(ctx, texts)
}
