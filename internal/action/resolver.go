package action

import (
	"context"
	"fmt"
	"time"

	"github.com/raaihank/textrules/internal/logger"
	"go.uber.org/zap"
)

// DefaultMatchTimeout bounds a single regex match attempt
const DefaultMatchTimeout = 5 * time.Second

// Resolver flattens action lists into rules
type Resolver struct {
	source       Source
	prompter     Prompter
	logger       *logger.Logger
	matchTimeout time.Duration
}

// NewResolver creates a resolver reading named lists from source and
// surfacing recoverable errors through prompter.
func NewResolver(source Source, prompter Prompter, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{
		source:       source,
		prompter:     prompter,
		logger:       log,
		matchTimeout: DefaultMatchTimeout,
	}
}

// SetMatchTimeout overrides the timeout applied to every compiled rule.
// Zero disables the timeout.
func (r *Resolver) SetMatchTimeout(d time.Duration) {
	r.matchTimeout = d
}

// resolution holds the state owned by a single Resolve call
type resolution struct {
	rules   []*Rule
	missing []string
	seen    map[string]bool
}

// Resolve expands lists, in order, into one Action. Abort decisions return an
// *AbortedError and no partial result. A resolution that yields no rules
// returns *EmptyActionError.
func (r *Resolver) Resolve(ctx context.Context, lists ...List) (*Action, error) {
	res := &resolution{seen: make(map[string]bool)}

	for _, list := range lists {
		if err := r.appendList(ctx, res, list, nil); err != nil {
			return nil, err
		}
	}

	if len(res.missing) > 0 {
		if err := r.surface(ctx, &MissingReferenceError{Names: res.missing}); err != nil {
			return nil, err
		}
	}

	if len(res.rules) == 0 {
		return nil, &EmptyActionError{}
	}

	r.logger.Debug("Action resolved",
		zap.Int("rules", len(res.rules)),
		zap.Strings("missing", res.missing),
	)

	return &Action{Rules: res.rules, Missing: res.missing}, nil
}

// appendList processes entries in order. path is never mutated; each
// reference receives its own extended copy so sibling branches may share
// lists without tripping cycle detection.
func (r *Resolver) appendList(ctx context.Context, res *resolution, list List, path []string) error {
	for _, entry := range list {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.appendEntry(ctx, res, entry, path); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) appendEntry(ctx context.Context, res *resolution, entry Entry, path []string) error {
	if entry.IsRef() {
		return r.appendRef(ctx, res, entry.Ref, path)
	}

	if entry.Spec == nil {
		return r.surface(ctx, &InvalidRuleSpecError{Entry: entry.Raw})
	}
	if entry.Spec.IsDescription() {
		return nil
	}

	rule, err := Compile(*entry.Spec, r.matchTimeout)
	if err != nil {
		if invalid, ok := err.(*InvalidRuleSpecError); ok && entry.Raw != nil {
			invalid.Entry = entry.Raw
		}
		return r.surface(ctx, err)
	}

	res.rules = append(res.rules, rule)
	return nil
}

func (r *Resolver) appendRef(ctx context.Context, res *resolution, name string, path []string) error {
	key := r.canonical(name)
	for _, visited := range path {
		if visited == key {
			return r.surface(ctx, &CyclicReferenceError{Name: name, Path: path})
		}
	}

	branch := make([]string, len(path), len(path)+1)
	copy(branch, path)
	branch = append(branch, key)

	lookup, err := r.source.Lookup(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to look up action list %q: %w", name, err)
	}

	if lookup.Kind != KindList {
		if !res.seen[key] {
			res.seen[key] = true
			res.missing = append(res.missing, name)
		}
		return nil
	}

	return r.appendList(ctx, res, lookup.List, branch)
}

// canonical returns the name the source files name under
func (r *Resolver) canonical(name string) string {
	if folder, ok := r.source.(NameFolder); ok {
		return folder.FoldName(name)
	}
	return name
}

// surface turns a recoverable error into a decision. nil means continue.
func (r *Resolver) surface(ctx context.Context, cause error) error {
	if r.prompter == nil {
		return &AbortedError{Cause: cause}
	}

	decision, err := r.prompter.Decide(ctx, cause)
	if err != nil {
		return fmt.Errorf("failed to prompt for decision: %w", err)
	}
	if decision == Abort {
		r.logger.Info("Resolution aborted", zap.String("kind", ErrorKind(cause)), zap.Error(cause))
		return &AbortedError{Cause: cause}
	}

	r.logger.Debug("Resolution continued", zap.String("kind", ErrorKind(cause)), zap.Error(cause))
	return nil
}
