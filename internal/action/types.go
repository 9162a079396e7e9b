package action

import (
	"context"

	"github.com/dlclark/regexp2"
)

// Rule is one compiled find/replace pair. Rules always match globally.
type Rule struct {
	Pattern     *regexp2.Regexp
	Replacement string
	Literal     bool
	// Sticky rules only accept matches that begin exactly where the
	// previous match ended (or at the start of the subject).
	Sticky bool
	// Captures lists capturing groups in source order. Nil means
	// regexp2's own numbering applies.
	Captures []Capture

	Find  string
	Flags string
}

// RuleSpec is the raw, uncompiled form of a rule as authored in configuration
type RuleSpec struct {
	Find        *string `mapstructure:"find" json:"find,omitempty"`
	Replace     *string `mapstructure:"replace" json:"replace,omitempty"`
	Flags       string  `mapstructure:"flags" json:"flags,omitempty"`
	Literal     bool    `mapstructure:"literal" json:"literal,omitempty"`
	Description *string `mapstructure:"description" json:"description,omitempty"`
}

// IsDescription reports whether the spec is a documentation-only entry
func (s RuleSpec) IsDescription() bool {
	return s.Description != nil && s.Find == nil && s.Replace == nil
}

// Entry is one element of an action list: a reference to another list,
// a rule spec, or a value that is neither (kept so it can be reported).
type Entry struct {
	Ref  string
	Spec *RuleSpec
	Raw  any
}

// IsRef reports whether the entry names another action list
func (e Entry) IsRef() bool {
	return e.Spec == nil && e.Raw == nil
}

// List is an ordered action list
type List []Entry

// Ref builds a list containing a single reference
func Ref(name string) List {
	return List{{Ref: name}}
}

// Kind discriminates what a configuration name resolves to
type Kind int

const (
	KindMissing Kind = iota
	KindList
	KindScalar
)

// Lookup is the result of resolving a name against a Source
type Lookup struct {
	Kind Kind
	List List
}

// Source resolves action list names
type Source interface {
	Lookup(ctx context.Context, name string) (Lookup, error)
}

// NameFolder is implemented by sources whose names are not case-sensitive.
// FoldName maps every spelling of a name to the same key.
type NameFolder interface {
	FoldName(name string) string
}

// Catalog enumerates the action lists a Source knows about
type Catalog interface {
	Source
	Names() []string
}

// Action is the flat, ordered result of resolving one or more lists
type Action struct {
	Rules   []*Rule
	Missing []string
}
