package apply

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidSelection is wrapped by selection validation errors
var ErrInvalidSelection = errors.New("invalid selection")

// Range is a half-open byte range [Start, End)
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered
func (r Range) Len() int {
	return r.End - r.Start
}

// Document is editable text owned by someone else (an open file, a
// buffer). Edits are expressed against the current Text.
type Document interface {
	Text() string
	Replace(ctx context.Context, r Range, text string) error
}

// RuleStat records what one rule did
type RuleStat struct {
	Find         string `json:"find"`
	Flags        string `json:"flags"`
	Replacements int    `json:"replacements"`
}

// Result is the outcome of applying a rule list
type Result struct {
	Text       string     `json:"text"`
	Rules      []RuleStat `json:"rules"`
	Selections []Range    `json:"selections,omitempty"`
}

// Replacements returns the total number of replacements made
func (r *Result) Replacements() int {
	total := 0
	for _, s := range r.Rules {
		total += s.Replacements
	}
	return total
}

// EditApplicationError reports a document edit that did not apply. Edits
// made by earlier rules are left in place.
type EditApplicationError struct {
	RuleIndex int
	Find      string
	Err       error
}

// Error implements the error interface.
func (e *EditApplicationError) Error() string {
	return fmt.Sprintf("failed to apply edit for rule %d (/%s/): %v", e.RuleIndex+1, e.Find, e.Err)
}

// Unwrap returns the underlying edit error.
func (e *EditApplicationError) Unwrap() error {
	return e.Err
}
