package apply

import (
	"context"
	"errors"
	"testing"

	"github.com/raaihank/textrules/internal/action"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, find, replace, flags string, literal bool) *action.Rule {
	t.Helper()
	r, err := action.Compile(action.RuleSpec{Find: &find, Replace: &replace, Flags: flags, Literal: literal}, action.DefaultMatchTimeout)
	require.NoError(t, err)
	return r
}

func rules(t *testing.T, pairs ...string) []*action.Rule {
	t.Helper()
	out := make([]*action.Rule, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, compile(t, pairs[i], pairs[i+1], "", false))
	}
	return out
}

// countingResolver echoes keys and counts calls per key
type countingResolver struct {
	calls map[string]int
	err   error
}

func (c *countingResolver) Get(ctx context.Context, key string, force bool) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[key]++
	return key, nil
}

func apply(t *testing.T, text string, rs ...*action.Rule) string {
	t.Helper()
	result, err := New(nil).Apply(context.Background(), text, rs, &countingResolver{})
	require.NoError(t, err)
	return result.Text
}

func TestSequentialComposition(t *testing.T) {
	assert.Equal(t, "c", apply(t, "a", rules(t, "a", "b", "b", "c")...))
	assert.Equal(t, "b", apply(t, "a", rules(t, "b", "c", "a", "b")...))
}

func TestNonOverlappingMatches(t *testing.T) {
	assert.Equal(t, "bb", apply(t, "aaaa", compile(t, "aa", "b", "g", false)))
	assert.Equal(t, "bba", apply(t, "aaaaa", compile(t, "aa", "b", "g", false)))
	// The replacement contains the pattern; it must not be re-scanned.
	assert.Equal(t, "xaxa", apply(t, "aa", compile(t, "a", "xa", "", false)))
	assert.Equal(t, "-a-b-c-", apply(t, "abc", compile(t, "x*", "-", "", false)))
}

func TestTemplates(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		find     string
		replace  string
		expected string
	}{
		{"Numbered groups", "joe@example", `(\w+)@(\w+)`, "$2 at $1", "example at joe"},
		{"Named groups", "one two", `(?<word>\w+)`, "<$<word>>", "<one> <two>"},
		{"Context", "abc", "b", "[$`|$']", "a[a|c]c"},
		{"Whole match", "abc", "b", "$&$&", "abbc"},
		{"Unmatched group", "ac", "a(x)?c", "[$1]", "[]"},
		{"Delete", "a-b-c", "-", "", "abc"},
		{"Placeholder", "a", "a", "${k$&}", "ka"},
		{"Unicode offsets", "日本語", "本", "[$`$']", "日[日語]語"},
		{"Unicode groups", "héllo wörld", `w(ö)r`, "$1", "héllo öld"},
		{"Multiline default", "a\nb", "^", "> ", "> a\n> b"},
		{"Named and numbered groups share numbering", "2024-abc", `(?<y>\d+)-(\w+)`, "$1|$2|$<y>", "2024|abc|2024"},
		{"Numbering skips non-capturing groups", "(ab", `[(](?:a)(?<=a)(b)`, "$1", "b"},
		{"Digits are ASCII", "٣3", `\d`, "#", "٣#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, apply(t, tt.text, compile(t, tt.find, tt.replace, "", false)))
		})
	}

	t.Run("Literal rules skip evaluation", func(t *testing.T) {
		assert.Equal(t, "cost $&", apply(t, "cost $1", compile(t, "$1", "$&", "", true)))
		assert.Equal(t, "${x}", apply(t, "a", compile(t, "a", "${x}", "", true)))
	})

	t.Run("Sticky", func(t *testing.T) {
		assert.Equal(t, "XXb a", apply(t, "aab a", compile(t, "a", "X", "gy", false)))
		assert.Equal(t, "baa", apply(t, "baa", compile(t, "a", "X", "gy", false)))
	})

	t.Run("Resolver called once per match", func(t *testing.T) {
		res := &countingResolver{}
		_, err := New(nil).Apply(context.Background(), "a a a", []*action.Rule{compile(t, "a", "${key}", "", false)}, res)
		require.NoError(t, err)
		assert.Equal(t, 3, res.calls["key"])
	})

	t.Run("Resolver errors stop application", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := New(nil).Apply(context.Background(), "a", []*action.Rule{compile(t, "a", "${key}", "", false)}, &countingResolver{err: boom})
		assert.ErrorIs(t, err, boom)
	})
}

func TestLiteralFind(t *testing.T) {
	assert.Equal(t, "Z axb", apply(t, "a.b axb", compile(t, "a.b", "Z", "", true)))
	assert.Equal(t, "${x} axb", apply(t, "a.b axb", compile(t, "a.b", "${x}", "", true)))
}

func TestRuleStats(t *testing.T) {
	result, err := New(nil).Apply(context.Background(), "aaa", rules(t, "a", "b", "z", "y", "b", "c"), &countingResolver{})
	require.NoError(t, err)
	require.Len(t, result.Rules, 3)
	assert.Equal(t, 3, result.Rules[0].Replacements)
	assert.Equal(t, 0, result.Rules[1].Replacements)
	assert.Equal(t, 3, result.Rules[2].Replacements)
	assert.Equal(t, 6, result.Replacements())
	assert.Equal(t, "ccc", result.Text)
}

func TestApplyRange(t *testing.T) {
	result, err := New(nil).ApplyRange(context.Background(), "aaa|aaa", Range{Start: 4, End: 7}, rules(t, "a", "bb"), &countingResolver{})
	require.NoError(t, err)
	assert.Equal(t, "aaa|bbbbbb", result.Text)
	assert.Equal(t, []Range{{Start: 4, End: 10}}, result.Selections)

	// Context references see only the selected text.
	result, err = New(nil).ApplyRange(context.Background(), "xx|ab", Range{Start: 3, End: 5}, rules(t, "b", "[$`]"), &countingResolver{})
	require.NoError(t, err)
	assert.Equal(t, "xx|a[a]", result.Text)
}

func TestApplySelections(t *testing.T) {
	ctx := context.Background()
	selections := []Range{{Start: 6, End: 8}, {Start: 0, End: 2}}

	result, err := New(nil).ApplySelections(ctx, "ab ab ab", selections, rules(t, "ab", "xyz", "xyz", "Q"), &countingResolver{})
	require.NoError(t, err)
	assert.Equal(t, "Q ab Q", result.Text)
	assert.Equal(t, []Range{{Start: 0, End: 1}, {Start: 5, End: 6}}, result.Selections)

	_, err = New(nil).ApplySelections(ctx, "ab", nil, rules(t, "a", "b"), nil)
	assert.ErrorIs(t, err, ErrInvalidSelection)

	_, err = New(nil).ApplySelections(ctx, "abcdef", []Range{{0, 3}, {2, 4}}, rules(t, "a", "b"), nil)
	assert.ErrorContains(t, err, "overlap")

	_, err = New(nil).ApplySelections(ctx, "ab", []Range{{0, 9}}, rules(t, "a", "b"), nil)
	assert.ErrorContains(t, err, "out of bounds")

	_, err = New(nil).ApplySelections(ctx, "é", []Range{{0, 1}}, rules(t, "a", "b"), nil)
	assert.ErrorContains(t, err, "UTF-8")
}

// flakyDocument fails every Replace after the first n
type flakyDocument struct {
	Buffer
	allow int
}

func (d *flakyDocument) Replace(ctx context.Context, r Range, text string) error {
	if d.edits >= d.allow {
		return errors.New("document changed")
	}
	return d.Buffer.Replace(ctx, r, text)
}

func TestApplyDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("One edit per matching rule", func(t *testing.T) {
		doc := NewBuffer("a")
		result, err := New(nil).ApplyDocument(ctx, doc, nil, rules(t, "a", "b", "zzz", "y", "b", "c"), &countingResolver{})
		require.NoError(t, err)
		assert.Equal(t, "c", doc.Text())
		assert.Equal(t, "c", result.Text)
		assert.Equal(t, 2, doc.Edits())
	})

	t.Run("Edit failure keeps earlier edits", func(t *testing.T) {
		doc := &flakyDocument{Buffer: Buffer{text: "a"}, allow: 1}
		result, err := New(nil).ApplyDocument(ctx, doc, nil, rules(t, "a", "b", "b", "c", "c", "d"), &countingResolver{})

		var editErr *EditApplicationError
		require.ErrorAs(t, err, &editErr)
		assert.Equal(t, 1, editErr.RuleIndex)
		assert.Equal(t, "b", editErr.Find)
		assert.ErrorContains(t, err, "document changed")

		assert.Equal(t, "b", doc.Text())
		require.NotNil(t, result)
		assert.Equal(t, "b", result.Text)
		assert.Len(t, result.Rules, 2)
	})

	t.Run("Format failure reports the text so far", func(t *testing.T) {
		boom := errors.New("boom")
		doc := NewBuffer("a")
		rs := []*action.Rule{compile(t, "a", "b", "", false), compile(t, "b", "${key}", "", false)}
		result, err := New(nil).ApplyDocument(ctx, doc, nil, rs, &countingResolver{err: boom})
		assert.ErrorIs(t, err, boom)

		require.NotNil(t, result)
		assert.Equal(t, "b", result.Text)
		assert.Equal(t, []Range{{Start: 0, End: 1}}, result.Selections)
		assert.Len(t, result.Rules, 1)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := New(nil).ApplyDocument(cctx, NewBuffer("aaa"), nil, rules(t, "a", "b"), nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
