// Package providers provides a factory for creating image generator instances.
package providers

import (
	"fmt"
	"net/http"
	"sort"

	"adaptstudio/config"
	"adaptstudio/internal/core"
)

// Builder creates a generator from configuration. httpClient may be ignored by
// generators that manage their own transport.
type Builder func(cfg config.GeneratorConfig, httpClient *http.Client) (core.ImageGenerator, error)

// registry holds all registered generator builders
var registry = make(map[string]Builder)

// Register allows generator packages to register themselves.
// This should be called from init() functions in generator packages.
func Register(generatorType string, builder Builder) {
	registry[generatorType] = builder
}

// Create instantiates the generator selected by cfg.Type
func Create(cfg config.GeneratorConfig, httpClient *http.Client) (core.ImageGenerator, error) {
	builder, ok := registry[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown generator type: %s", cfg.Type)
	}
	return builder(cfg, httpClient)
}

// ListRegistered returns the registered generator types, sorted
func ListRegistered() []string {
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
