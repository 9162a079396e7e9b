package action

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultFlags apply when a spec leaves flags unset: global and multi-line.
const DefaultFlags = "gm"

// Compile validates a spec and compiles it into a Rule. Description-only
// specs must be filtered out by the caller.
func Compile(spec RuleSpec, timeout time.Duration) (*Rule, error) {
	if spec.Find == nil || spec.Replace == nil {
		return nil, &InvalidRuleSpecError{Entry: spec}
	}

	flags := spec.Flags
	if flags == "" {
		flags = DefaultFlags
	}
	if !strings.ContainsRune(flags, 'g') {
		flags = "g" + flags
	}

	find := *spec.Find
	if spec.Literal {
		find = regexp2.Escape(find)
	}

	opts, sticky, err := parseFlags(flags)
	if err != nil {
		return nil, &InvalidPatternError{Find: *spec.Find, Flags: flags, Err: err}
	}

	re, err := regexp2.Compile(find, opts|regexp2.ECMAScript)
	if err != nil {
		return nil, &InvalidPatternError{Find: *spec.Find, Flags: flags, Err: err}
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}

	captures := captureOrder(find)
	if len(captures)+1 != len(re.GetGroupNumbers()) {
		// Fall back to regexp2 numbering if the scan disagrees with the parser.
		captures = nil
	}

	return &Rule{
		Pattern:     re,
		Replacement: *spec.Replace,
		Literal:     spec.Literal,
		Sticky:      sticky,
		Captures:    captures,
		Find:        *spec.Find,
		Flags:       flags,
	}, nil
}

// parseFlags maps ECMAScript flag letters onto regexp2 options. Patterns
// always compile in ECMAScript mode.
func parseFlags(flags string) (regexp2.RegexOptions, bool, error) {
	var (
		opts   regexp2.RegexOptions
		sticky bool
		seen   = make(map[rune]bool, len(flags))
	)
	for _, f := range flags {
		if seen[f] {
			return 0, false, fmt.Errorf("duplicate flag %q", f)
		}
		seen[f] = true

		switch f {
		case 'g', 'u', 'v', 'd':
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'y':
			sticky = true
		default:
			return 0, false, fmt.Errorf("invalid flag %q", f)
		}
	}
	return opts, sticky, nil
}
