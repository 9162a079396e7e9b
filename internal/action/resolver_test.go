package action

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapSource serves action lists from decoded configuration data
type mapSource map[string]any

func (m mapSource) Lookup(ctx context.Context, name string) (Lookup, error) {
	v, ok := m[name]
	if !ok {
		return Lookup{Kind: KindMissing}, nil
	}
	if !IsList(v) {
		return Lookup{Kind: KindScalar}, nil
	}
	list, err := ParseList(v)
	if err != nil {
		return Lookup{}, err
	}
	return Lookup{Kind: KindList, List: list}, nil
}

func (m mapSource) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}

// foldingSource matches names case-insensitively
type foldingSource struct {
	mapSource
}

func (f foldingSource) Lookup(ctx context.Context, name string) (Lookup, error) {
	return f.mapSource.Lookup(ctx, f.FoldName(name))
}

func (f foldingSource) FoldName(name string) string {
	return strings.ToLower(name)
}

// scriptedPrompter records every error and answers with a fixed decision
type scriptedPrompter struct {
	decision Decision
	errs     []error
}

func (p *scriptedPrompter) Decide(ctx context.Context, err error) (Decision, error) {
	p.errs = append(p.errs, err)
	return p.decision, nil
}

func rule(find, replace string) map[string]any {
	return map[string]any{"find": find, "replace": replace}
}

func findsOf(a *Action) []string {
	finds := make([]string, 0, len(a.Rules))
	for _, r := range a.Rules {
		finds = append(finds, r.Find)
	}
	return finds
}

func TestResolveDiamond(t *testing.T) {
	source := mapSource{
		"top":    []any{"left", "right"},
		"left":   []any{"shared", rule("l", "L")},
		"right":  []any{"shared"},
		"shared": []any{rule("s", "S")},
	}
	prompter := &scriptedPrompter{decision: Abort}

	action, err := NewResolver(source, prompter, nil).Resolve(context.Background(), Ref("top"))
	require.NoError(t, err)
	assert.Empty(t, prompter.errs)
	assert.Equal(t, []string{"s", "l", "s"}, findsOf(action))
}

func TestResolveCycle(t *testing.T) {
	source := mapSource{
		"a": []any{rule("1", "one"), "b"},
		"b": []any{rule("2", "two"), "a", rule("3", "three")},
	}

	t.Run("Continue skips only the cyclic reference", func(t *testing.T) {
		prompter := &scriptedPrompter{decision: Continue}
		action, err := NewResolver(source, prompter, nil).Resolve(context.Background(), Ref("a"))
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "3"}, findsOf(action))

		require.Len(t, prompter.errs, 1)
		var cyclic *CyclicReferenceError
		require.ErrorAs(t, prompter.errs[0], &cyclic)
		assert.Equal(t, "a", cyclic.Name)
		assert.Equal(t, []string{"a", "b"}, cyclic.Path)
	})

	t.Run("Abort unwinds everything", func(t *testing.T) {
		prompter := &scriptedPrompter{decision: Abort}
		action, err := NewResolver(source, prompter, nil).Resolve(context.Background(), Ref("a"))
		assert.Nil(t, action)
		assert.ErrorIs(t, err, ErrAborted)

		var cyclic *CyclicReferenceError
		assert.ErrorAs(t, err, &cyclic)
	})

	t.Run("Self reference", func(t *testing.T) {
		self := mapSource{"me": []any{"me", rule("x", "y")}}
		prompter := &scriptedPrompter{decision: Continue}
		action, err := NewResolver(self, prompter, nil).Resolve(context.Background(), Ref("me"))
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, findsOf(action))
		assert.Len(t, prompter.errs, 1)
	})
}

func TestResolveCaseInsensitiveNames(t *testing.T) {
	source := foldingSource{mapSource{
		"loop": []any{rule("a", "b"), "LOOP"},
		"top":  []any{"Loop", "Ghost", "ghost", "GHOST"},
	}}

	t.Run("Cycle through another spelling", func(t *testing.T) {
		prompter := &scriptedPrompter{decision: Continue}
		action, err := NewResolver(source, prompter, nil).Resolve(context.Background(), Ref("loop"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, findsOf(action))

		require.Len(t, prompter.errs, 1)
		var cyclic *CyclicReferenceError
		require.ErrorAs(t, prompter.errs[0], &cyclic)
		assert.Equal(t, "LOOP", cyclic.Name)
		assert.Equal(t, []string{"loop"}, cyclic.Path)
	})

	t.Run("Missing names are reported once", func(t *testing.T) {
		prompter := &scriptedPrompter{decision: Continue}
		action, err := NewResolver(source, prompter, nil).Resolve(context.Background(), Ref("top"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, findsOf(action))
		assert.Equal(t, []string{"Ghost"}, action.Missing)
		require.Len(t, prompter.errs, 2)
	})
}

func TestResolveMissing(t *testing.T) {
	t.Run("Missing then empty", func(t *testing.T) {
		prompter := &scriptedPrompter{decision: Continue}
		action, err := NewResolver(mapSource{}, prompter, nil).Resolve(context.Background(), Ref("nope"))
		assert.Nil(t, action)

		var empty *EmptyActionError
		require.ErrorAs(t, err, &empty)
		assert.False(t, errors.Is(err, ErrAborted))

		require.Len(t, prompter.errs, 1)
		var missing *MissingReferenceError
		require.ErrorAs(t, prompter.errs[0], &missing)
		assert.Equal(t, []string{"nope"}, missing.Names)
	})

	t.Run("Aggregated once in discovery order", func(t *testing.T) {
		source := mapSource{
			"top":    []any{"zeta", "inner", "zeta", rule("a", "b")},
			"inner":  []any{"alpha", "zeta"},
			"scalar": "not a list",
		}
		prompter := &scriptedPrompter{decision: Continue}
		action, err := NewResolver(source, prompter, nil).Resolve(context.Background(), Ref("top"), Ref("scalar"))
		require.NoError(t, err)
		assert.Equal(t, []string{"zeta", "alpha", "scalar"}, action.Missing)

		require.Len(t, prompter.errs, 1)
		assert.Contains(t, prompter.errs[0].Error(), "zeta, alpha, scalar")
	})

	t.Run("Abort on missing", func(t *testing.T) {
		source := mapSource{"top": []any{"gone", rule("a", "b")}}
		prompter := &scriptedPrompter{decision: Abort}
		_, err := NewResolver(source, prompter, nil).Resolve(context.Background(), Ref("top"))
		assert.ErrorIs(t, err, ErrAborted)
	})
}

func TestResolveSpecs(t *testing.T) {
	t.Run("Description entries are skipped", func(t *testing.T) {
		list, err := ParseList([]any{
			map[string]any{"description": "docs only"},
			rule("a", "b"),
		})
		require.NoError(t, err)

		prompter := &scriptedPrompter{decision: Abort}
		action, err := NewResolver(mapSource{}, prompter, nil).Resolve(context.Background(), list)
		require.NoError(t, err)
		assert.Len(t, action.Rules, 1)
	})

	t.Run("Only descriptions is empty", func(t *testing.T) {
		list, err := ParseList([]any{map[string]any{"description": "docs only"}})
		require.NoError(t, err)

		_, err = NewResolver(mapSource{}, &scriptedPrompter{}, nil).Resolve(context.Background(), list)
		var empty *EmptyActionError
		assert.ErrorAs(t, err, &empty)
	})

	t.Run("Missing replace prompts and continues", func(t *testing.T) {
		list, err := ParseList([]any{
			map[string]any{"find": "x"},
			rule("a", "b"),
		})
		require.NoError(t, err)

		prompter := &scriptedPrompter{decision: Continue}
		action, err := NewResolver(mapSource{}, prompter, nil).Resolve(context.Background(), list)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, findsOf(action))

		require.Len(t, prompter.errs, 1)
		var invalid *InvalidRuleSpecError
		require.ErrorAs(t, prompter.errs[0], &invalid)
		assert.Contains(t, invalid.Error(), `"find":"x"`)
	})

	t.Run("Empty replace is allowed", func(t *testing.T) {
		list, err := ParseList([]any{rule("x", "")})
		require.NoError(t, err)

		action, err := NewResolver(mapSource{}, &scriptedPrompter{}, nil).Resolve(context.Background(), list)
		require.NoError(t, err)
		assert.Len(t, action.Rules, 1)
	})

	t.Run("Non-object entries are invalid", func(t *testing.T) {
		list, err := ParseList([]any{42, rule("a", "b")})
		require.NoError(t, err)

		prompter := &scriptedPrompter{decision: Continue}
		action, err := NewResolver(mapSource{}, prompter, nil).Resolve(context.Background(), list)
		require.NoError(t, err)
		assert.Len(t, action.Rules, 1)

		var invalid *InvalidRuleSpecError
		require.Len(t, prompter.errs, 1)
		assert.ErrorAs(t, prompter.errs[0], &invalid)
	})

	t.Run("Bad pattern carries compiler message", func(t *testing.T) {
		list, err := ParseList([]any{rule("(", "x"), rule("a", "b")})
		require.NoError(t, err)

		prompter := &scriptedPrompter{decision: Continue}
		action, err := NewResolver(mapSource{}, prompter, nil).Resolve(context.Background(), list)
		require.NoError(t, err)
		assert.Len(t, action.Rules, 1)

		require.Len(t, prompter.errs, 1)
		var pattern *InvalidPatternError
		require.ErrorAs(t, prompter.errs[0], &pattern)
		assert.Equal(t, "(", pattern.Find)
		assert.NotNil(t, pattern.Unwrap())
	})

	t.Run("Nil prompter aborts", func(t *testing.T) {
		list, err := ParseList([]any{rule("(", "x")})
		require.NoError(t, err)

		_, err = NewResolver(mapSource{}, nil, nil).Resolve(context.Background(), list)
		assert.ErrorIs(t, err, ErrAborted)
	})
}

func TestResolveMergesListsInOrder(t *testing.T) {
	source := mapSource{"named": []any{rule("n", "N")}}
	inline, err := ParseList([]any{rule("i", "I")})
	require.NoError(t, err)

	action, err := NewResolver(source, &scriptedPrompter{}, nil).Resolve(context.Background(), inline, Ref("named"), inline)
	require.NoError(t, err)
	assert.Equal(t, []string{"i", "n", "i"}, findsOf(action))
}

func TestResolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	list, err := ParseList([]any{rule("a", "b")})
	require.NoError(t, err)
	_, err = NewResolver(mapSource{}, &scriptedPrompter{}, nil).Resolve(ctx, list)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "missing_reference", ErrorKind(&AbortedError{Cause: &MissingReferenceError{}}))
	assert.Equal(t, "empty_action", ErrorKind(&EmptyActionError{}))
	assert.Equal(t, "internal", ErrorKind(errors.New("boom")))
	assert.True(t, strings.HasPrefix((&CyclicReferenceError{Name: "a", Path: []string{"a"}}).Error(), "infinite loop"))
}
