// Package realmconfig parses the YAML configuration a caller feeds in to
// pick a backend and its parameters for one realm, in the registry's own
// Storage/Parameters style (configuration.Storage is a
// map[string]Parameters keyed by driver name; a realm has exactly one
// backend, so here the driver name lives alongside its parameters
// instead of being the map key). This package is intentionally thin: no
// file-watching, environment-variable overlay, or validation-schema
// engine -- that richer machinery is the out-of-scope "configuration
// loading" collaborator (spec.md Non-goals).
package realmconfig

import (
	"io"

	"gopkg.in/yaml.v2"
)

// Parameters are opaque backend-specific configuration values, passed
// through verbatim to the chosen backend's factory constructor.
type Parameters map[string]any

// RealmConfig names one realm's backend and, optionally, where its
// indexed content store lives on disk.
type RealmConfig struct {
	// Backend is the driver name registered with backend/factory, e.g.
	// "filesystem" or "inmemory".
	Backend string `yaml:"backend"`

	// Parameters are passed to the backend's factory.Create call.
	Parameters Parameters `yaml:"parameters,omitempty"`

	// ContentStoreDir, if set, is the directory of an indexed content
	// store (spec.md §4.B) associated with this realm.
	ContentStoreDir string `yaml:"content_store_dir,omitempty"`
}

// Load parses a RealmConfig from r.
func Load(r io.Reader) (*RealmConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var cfg RealmConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
