// Package flags is the feature-flag seam used to pick the graph store
// backend at process start. The flag is read once during wiring and the
// chosen repository is injected explicitly, so a flag flip takes effect on
// restart and tests can exercise both backends without shared state.
package flags

import (
	"os"
	"strings"
)

// WideColumnGraph switches the graph store (edges and feed entries) from the
// relational backend to the wide-column one, enabling live migration between
// them without a code deploy.
const WideColumnGraph = "wide_column_graph"

// FlagStore answers feature-flag queries.
type FlagStore interface {
	IsEnabled(flag string) bool
}

// EnvFlagStore reads flags from FEATURE_* environment variables.
type EnvFlagStore struct{}

// NewEnvFlagStore creates a new EnvFlagStore
func NewEnvFlagStore() *EnvFlagStore {
	return &EnvFlagStore{}
}

func (s *EnvFlagStore) IsEnabled(flag string) bool {
	v := strings.ToLower(os.Getenv("FEATURE_" + strings.ToUpper(flag)))
	return v == "1" || v == "true" || v == "on"
}

// StaticFlagStore serves a fixed flag set; used by tests.
type StaticFlagStore map[string]bool

func (s StaticFlagStore) IsEnabled(flag string) bool {
	return s[flag]
}
