package config

import (
	"context"
	"sort"
	"strings"

	"github.com/raaihank/textrules/internal/action"
)

// Store serves the configured action lists to the resolver. Names are
// matched case-insensitively.
type Store struct {
	config  *Config
	actions map[string]any
}

// NewStore creates a store over config's action lists
func NewStore(config *Config) *Store {
	actions := make(map[string]any, len(config.Actions))
	for name, v := range config.Actions {
		actions[strings.ToLower(name)] = v
	}
	return &Store{config: config, actions: actions}
}

// Lookup implements action.Source. Only arrays are action lists; any other
// configured value is reported as a scalar.
func (s *Store) Lookup(ctx context.Context, name string) (action.Lookup, error) {
	v, ok := s.actions[s.FoldName(name)]
	if !ok || v == nil {
		return action.Lookup{Kind: action.KindMissing}, nil
	}
	if !action.IsList(v) {
		return action.Lookup{Kind: action.KindScalar}, nil
	}

	list, err := action.ParseList(v)
	if err != nil {
		return action.Lookup{}, err
	}
	return action.Lookup{Kind: action.KindList, List: list}, nil
}

// FoldName implements action.NameFolder
func (s *Store) FoldName(name string) string {
	return strings.ToLower(name)
}

// Names implements action.Catalog
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.actions))
	for name := range s.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config returns the configuration the store was built from
func (s *Store) Config() *Config {
	return s.config
}
