package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/raaihank/textrules/internal/action"
	"github.com/raaihank/textrules/internal/apply"
	"github.com/tidwall/jsonc"
)

// parseListArgs converts command-line arguments into action lists. An
// argument starting with [ or { is an inline JSON list or rule; anything
// else names a configured list.
func parseListArgs(args []string) ([]action.List, error) {
	lists := make([]action.List, 0, len(args))
	for _, arg := range args {
		trimmed := strings.TrimSpace(arg)
		if trimmed == "" {
			return nil, fmt.Errorf("empty action list name")
		}
		if trimmed[0] != '[' && trimmed[0] != '{' {
			lists = append(lists, action.Ref(trimmed))
			continue
		}

		var v any
		if err := json.Unmarshal(jsonc.ToJSON([]byte(trimmed)), &v); err != nil {
			return nil, fmt.Errorf("invalid inline action list %q: %w", arg, err)
		}
		list, err := action.ParseList(v)
		if err != nil {
			return nil, err
		}
		lists = append(lists, list)
	}
	return lists, nil
}

// parseRange parses a start:end byte range
func parseRange(s string) (apply.Range, error) {
	startStr, endStr, ok := strings.Cut(s, ":")
	if !ok {
		return apply.Range{}, fmt.Errorf("invalid range %q: expected start:end", s)
	}
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return apply.Range{}, fmt.Errorf("invalid range start %q: %w", startStr, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil {
		return apply.Range{}, fmt.Errorf("invalid range end %q: %w", endStr, err)
	}
	if start < 0 || end < start {
		return apply.Range{}, fmt.Errorf("invalid range %q: need 0 <= start <= end", s)
	}
	return apply.Range{Start: start, End: end}, nil
}
