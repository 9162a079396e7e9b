package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAborted is matched by every AbortedError
	ErrAborted = errors.New("action aborted")
	// ErrNoActions is returned when no action lists are configured
	ErrNoActions = errors.New("no action lists have been defined")
	// ErrNoSelection is returned when the user dismisses the list picker
	ErrNoSelection = errors.New("no action list selected")
)

// CyclicReferenceError reports a list that references itself along one
// expansion path.
type CyclicReferenceError struct {
	Name string   // the offending reference
	Path []string // names being expanded when the reference was met
}

// Error implements the error interface.
func (e *CyclicReferenceError) Error() string {
	chain := append(append([]string{}, e.Path...), e.Name)
	return fmt.Sprintf("infinite loop detected in action list %q: %s", e.Name, strings.Join(chain, " -> "))
}

// MissingReferenceError lists every name that could not be resolved during
// one resolution pass.
type MissingReferenceError struct {
	Names []string
}

// Error implements the error interface.
func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("action list(s) cannot be found: %s", strings.Join(e.Names, ", "))
}

// InvalidRuleSpecError reports an entry without both find and replace, or an
// entry that is neither a name nor an object.
type InvalidRuleSpecError struct {
	Entry any
}

// Error implements the error interface.
func (e *InvalidRuleSpecError) Error() string {
	return fmt.Sprintf("'find' and 'replace' are required: %s", describe(e.Entry))
}

// InvalidPatternError wraps a pattern compilation failure.
type InvalidPatternError struct {
	Find  string
	Flags string
	Err   error
}

// Error implements the error interface.
func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern /%s/%s: %v", e.Find, e.Flags, e.Err)
}

// Unwrap returns the compiler error.
func (e *InvalidPatternError) Unwrap() error {
	return e.Err
}

// EmptyActionError means resolution produced no rules at all.
type EmptyActionError struct{}

// Error implements the error interface.
func (e *EmptyActionError) Error() string {
	return "action contains no rules"
}

// AbortedError is returned when the user chose Abort at a decision prompt.
type AbortedError struct {
	Cause error
}

// Error implements the error interface.
func (e *AbortedError) Error() string {
	return fmt.Sprintf("action aborted: %v", e.Cause)
}

// Unwrap returns the error that prompted the abort.
func (e *AbortedError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrAborted) true for every AbortedError.
func (e *AbortedError) Is(target error) bool {
	return target == ErrAborted
}

// ErrorKind returns a short machine-readable name for resolution errors.
func ErrorKind(err error) string {
	var (
		cyclic  *CyclicReferenceError
		missing *MissingReferenceError
		invalid *InvalidRuleSpecError
		pattern *InvalidPatternError
		empty   *EmptyActionError
	)
	switch {
	case errors.As(err, &cyclic):
		return "cyclic_reference"
	case errors.As(err, &missing):
		return "missing_reference"
	case errors.As(err, &invalid):
		return "invalid_rule_spec"
	case errors.As(err, &pattern):
		return "invalid_pattern"
	case errors.As(err, &empty):
		return "empty_action"
	default:
		return "internal"
	}
}

func describe(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(normalize(v))
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// normalize converts map[any]any (produced by some YAML decoders) into
// something encoding/json accepts.
func normalize(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}
