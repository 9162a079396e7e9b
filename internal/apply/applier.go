package apply

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"github.com/raaihank/textrules/internal/action"
	"github.com/raaihank/textrules/internal/logger"
	"github.com/raaihank/textrules/internal/template"
	"go.uber.org/zap"
)

// Applier runs resolved rules over text
type Applier struct {
	logger *logger.Logger
}

// New creates an applier
func New(log *logger.Logger) *Applier {
	if log == nil {
		log = logger.Nop()
	}
	return &Applier{logger: log}
}

// Apply runs rules, in order, over the whole text.
func (a *Applier) Apply(ctx context.Context, text string, rules []*action.Rule, res template.Resolver) (*Result, error) {
	return a.ApplyDocument(ctx, &Buffer{text: text}, nil, rules, res)
}

// ApplyRange runs rules over text[r.Start:r.End] only.
func (a *Applier) ApplyRange(ctx context.Context, text string, r Range, rules []*action.Rule, res template.Resolver) (*Result, error) {
	return a.ApplyDocument(ctx, &Buffer{text: text}, []Range{r}, rules, res)
}

// ApplySelections runs rules over each selection independently. Text
// outside the selections is never touched.
func (a *Applier) ApplySelections(ctx context.Context, text string, selections []Range, rules []*action.Rule, res template.Resolver) (*Result, error) {
	if len(selections) == 0 {
		return nil, fmt.Errorf("%w: no selections given", ErrInvalidSelection)
	}
	return a.ApplyDocument(ctx, &Buffer{text: text}, selections, rules, res)
}

// ApplyDocument runs rules against doc, issuing at most one Replace per
// rule. With no selections the whole document is used. Selections are
// sorted and their offsets tracked as earlier rules change their length;
// the final selections are returned in the result.
func (a *Applier) ApplyDocument(ctx context.Context, doc Document, selections []Range, rules []*action.Rule, res template.Resolver) (*Result, error) {
	text := doc.Text()
	if len(selections) == 0 {
		selections = []Range{{Start: 0, End: len(text)}}
	}

	sel, err := normalizeSelections(text, selections)
	if err != nil {
		return nil, err
	}

	result := &Result{Rules: make([]RuleStat, 0, len(rules))}

	for i, rule := range rules {
		text = doc.Text()
		span := Range{Start: sel[0].Start, End: sel[len(sel)-1].End}

		var b strings.Builder
		next := make([]Range, len(sel))
		cursor := span.Start
		count := 0

		for j, s := range sel {
			b.WriteString(text[cursor:s.Start])

			out, n, err := a.applyRule(ctx, text[s.Start:s.End], rule, res)
			if err != nil {
				result.Text = text
				result.Selections = sel
				return result, err
			}

			start := span.Start + b.Len()
			b.WriteString(out)
			next[j] = Range{Start: start, End: span.Start + b.Len()}

			cursor = s.End
			count += n
		}

		result.Rules = append(result.Rules, RuleStat{Find: rule.Find, Flags: rule.Flags, Replacements: count})

		if count == 0 {
			continue
		}

		if err := doc.Replace(ctx, span, b.String()); err != nil {
			a.logger.Error("Edit failed",
				zap.Int("rule", i+1),
				zap.String("find", rule.Find),
				zap.Error(err),
			)
			result.Text = doc.Text()
			result.Selections = sel
			return result, &EditApplicationError{RuleIndex: i, Find: rule.Find, Err: err}
		}
		sel = next

		a.logger.Debug("Rule applied",
			zap.Int("rule", i+1),
			zap.String("find", rule.Find),
			zap.String("flags", rule.Flags),
			zap.Int("count", count),
		)
	}

	result.Text = doc.Text()
	result.Selections = sel
	return result, nil
}

// applyRule rebuilds subject with every match replaced by its formatted
// template. All matches are found on the unmodified subject, so a rule never
// sees its own output.
func (a *Applier) applyRule(ctx context.Context, subject string, rule *action.Rule, res template.Resolver) (string, int, error) {
	var b strings.Builder
	last := 0
	count := 0

	err := eachMatch(ctx, subject, rule, func(m *regexp2.Match, start, end int) error {
		b.WriteString(subject[last:start])

		replacement := rule.Replacement
		if !rule.Literal {
			var err error
			replacement, err = template.Format(ctx, rule.Replacement, newMatch(m, rule.Captures, subject, start, end), res)
			if err != nil {
				return fmt.Errorf("failed to format replacement for /%s/: %w", rule.Find, err)
			}
		}
		b.WriteString(replacement)

		last = end
		count++
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	if count == 0 {
		return subject, 0, nil
	}

	b.WriteString(subject[last:])
	return b.String(), count, nil
}

// eachMatch calls fn for every non-overlapping match, left to right, with
// byte offsets into subject.
func eachMatch(ctx context.Context, subject string, rule *action.Rule, fn func(m *regexp2.Match, start, end int) error) error {
	m, err := rule.Pattern.FindStringMatch(subject)
	if err != nil {
		return fmt.Errorf("failed to match /%s/: %w", rule.Find, err)
	}
	if m == nil {
		return nil
	}

	// regexp2 reports positions in runes
	offsets := runeOffsets(subject)
	expected := 0

	for m != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rule.Sticky && m.Index != expected {
			break
		}

		if err := fn(m, offsets[m.Index], offsets[m.Index+m.Length]); err != nil {
			return err
		}
		expected = m.Index + m.Length

		m, err = rule.Pattern.FindNextMatch(m)
		if err != nil {
			return fmt.Errorf("failed to match /%s/: %w", rule.Find, err)
		}
	}
	return nil
}

// newMatch converts a regexp2 match. With captures, groups are renumbered
// in source order so that $N counts opening parentheses.
func newMatch(m *regexp2.Match, captures []action.Capture, subject string, start, end int) *template.Match {
	match := &template.Match{
		Text:    subject[start:end],
		Named:   make(map[string]string),
		Start:   start,
		Subject: subject,
	}

	groups := m.Groups()
	if captures == nil {
		match.Groups = make([]string, len(groups))
		for i, g := range groups {
			match.Groups[i] = groupValue(&g)
			if g.Name != "" && g.Name != strconv.Itoa(i) {
				match.Named[g.Name] = match.Groups[i]
			}
		}
		return match
	}

	match.Groups = make([]string, 0, len(captures)+1)
	match.Groups = append(match.Groups, match.Text)
	for _, c := range captures {
		if c.Name == "" {
			match.Groups = append(match.Groups, groupValue(m.GroupByNumber(c.Number)))
			continue
		}
		value := groupValue(m.GroupByName(c.Name))
		match.Groups = append(match.Groups, value)
		match.Named[c.Name] = value
	}
	return match
}

func groupValue(g *regexp2.Group) string {
	if g == nil || len(g.Captures) == 0 {
		return ""
	}
	return g.String()
}

// runeOffsets maps rune index to byte offset; the final element is len(s).
func runeOffsets(s string) []int {
	offsets := make([]int, 0, utf8.RuneCountInString(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	return append(offsets, len(s))
}

func normalizeSelections(text string, selections []Range) ([]Range, error) {
	sel := make([]Range, len(selections))
	copy(sel, selections)
	sort.SliceStable(sel, func(i, j int) bool { return sel[i].Start < sel[j].Start })

	for i, r := range sel {
		if r.Start < 0 || r.End < r.Start || r.End > len(text) {
			return nil, fmt.Errorf("%w: [%d, %d) is out of bounds for text of length %d", ErrInvalidSelection, r.Start, r.End, len(text))
		}
		if !onRuneBoundary(text, r.Start) || !onRuneBoundary(text, r.End) {
			return nil, fmt.Errorf("%w: [%d, %d) splits a UTF-8 character", ErrInvalidSelection, r.Start, r.End)
		}
		if i > 0 && sel[i-1].End > r.Start {
			return nil, fmt.Errorf("%w: [%d, %d) and [%d, %d) overlap", ErrInvalidSelection, sel[i-1].Start, sel[i-1].End, r.Start, r.End)
		}
	}
	return sel, nil
}

func onRuneBoundary(s string, i int) bool {
	return i == len(s) || utf8.RuneStart(s[i])
}
