package action

import (
	"context"
	"fmt"
	"sort"
)

// Options lists every action list in catalog, sorted by name. A list's
// first description-only entry becomes its description.
func Options(ctx context.Context, catalog Catalog) ([]Option, error) {
	names := catalog.Names()
	sort.Strings(names)

	options := make([]Option, 0, len(names))
	for _, name := range names {
		lookup, err := catalog.Lookup(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to look up action list %q: %w", name, err)
		}
		if lookup.Kind != KindList {
			continue
		}
		options = append(options, Option{Name: name, Description: listDescription(lookup.List)})
	}
	return options, nil
}

// SelectList asks the user to choose one configured action list and returns
// a list referencing it.
func SelectList(ctx context.Context, catalog Catalog, selector Selector) (List, error) {
	options, err := Options(ctx, catalog)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, ErrNoActions
	}

	name, ok, err := selector.Select(ctx, "Action List", options)
	if err != nil {
		return nil, fmt.Errorf("failed to select action list: %w", err)
	}
	if !ok {
		return nil, ErrNoSelection
	}
	return Ref(name), nil
}

func listDescription(list List) string {
	for _, entry := range list {
		if entry.Spec != nil && entry.Spec.IsDescription() {
			return *entry.Spec.Description
		}
	}
	return ""
}
