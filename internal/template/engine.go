// Package template evaluates replacement templates.
//
// A template is copied verbatim except for sequences introduced by '$':
//
//	$$        a literal '$'
//	$&        the entire match
//	$`        text before the match
//	$'        text after the match
//	$<name>   named capture group
//	$N        numbered capture group (digits are consumed greedily)
//	${...}    placeholder: the content is itself a template; its result is
//	          the key handed to a Resolver. A leading '@' in the evaluated
//	          key forces the resolver to bypass its cache.
//
// Inside a placeholder, "$}" produces a literal '}'. Incomplete sequences
// are emitted as written.
package template

import (
	"context"
	"strconv"
	"strings"
)

// ForceReloadPrefix marks a placeholder key that must bypass the cache
const ForceReloadPrefix = "@"

// Resolver resolves placeholder keys
type Resolver interface {
	Get(ctx context.Context, key string, forceReload bool) (string, error)
}

// Format evaluates tmpl against match, resolving placeholders through res.
func Format(ctx context.Context, tmpl string, match *Match, res Resolver) (string, error) {
	if tmpl == "" {
		return "", nil
	}
	if match == nil {
		match = &Match{}
	}

	p := &parser{src: tmpl, match: match, res: res}
	out, _, err := p.eval(ctx, false)
	return out, err
}

// parser holds the cursor shared by every level of placeholder nesting
type parser struct {
	src   string
	pos   int
	match *Match
	res   Resolver
	// dry suppresses resolver calls while checking placeholder closure.
	dry bool
}

// eval consumes the template from the cursor. With inPlaceholder set it
// stops after the first unescaped '}' and reports closed=true; reaching
// the end of input instead reports closed=false.
func (p *parser) eval(ctx context.Context, inPlaceholder bool) (string, bool, error) {
	var b strings.Builder

	for p.pos < len(p.src) {
		c := p.src[p.pos]

		if inPlaceholder && c == '}' {
			p.pos++
			return b.String(), true, nil
		}

		if c != '$' {
			next := p.pos + 1
			for next < len(p.src) && p.src[next] != '$' && !(inPlaceholder && p.src[next] == '}') {
				next++
			}
			b.WriteString(p.src[p.pos:next])
			p.pos = next
			continue
		}

		// c == '$'
		p.pos++
		if p.pos >= len(p.src) {
			b.WriteByte('$')
			break
		}

		switch c := p.src[p.pos]; {
		case c == '$':
			b.WriteByte('$')
			p.pos++

		case c == '&':
			b.WriteString(p.match.Text)
			p.pos++

		case c == '`':
			b.WriteString(p.match.Before())
			p.pos++

		case c == '\'':
			b.WriteString(p.match.After())
			p.pos++

		case c == '<':
			rest := p.src[p.pos+1:]
			end := strings.IndexByte(rest, '>')
			if inPlaceholder {
				if brace := strings.IndexByte(rest, '}'); brace >= 0 && brace < end {
					end = -1
				}
			}
			if end < 0 {
				b.WriteString("$<")
				p.pos++
				continue
			}
			b.WriteString(p.match.NamedGroup(rest[:end]))
			p.pos += end + 2

		case isDigit(c):
			start := p.pos
			for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
				p.pos++
			}
			if n, err := strconv.Atoi(p.src[start:p.pos]); err == nil {
				b.WriteString(p.match.Group(n))
			}

		case c == '{':
			start := p.pos - 1
			p.pos++
			// An unterminated placeholder is emitted as written, so nothing
			// nested inside it may reach the resolver.
			if !p.closes(ctx) {
				b.WriteString(p.src[start:])
				p.pos = len(p.src)
				continue
			}
			key, _, err := p.eval(ctx, true)
			if err != nil {
				return "", false, err
			}
			value, err := p.resolve(ctx, key)
			if err != nil {
				return "", false, err
			}
			b.WriteString(value)

		case c == '}' && inPlaceholder:
			b.WriteByte('}')
			p.pos++

		default:
			// Unknown escape: keep the '$' and let the next character be
			// processed normally.
			b.WriteByte('$')
		}
	}

	return b.String(), false, nil
}

// closes reports whether the placeholder starting at the cursor has a
// closing '}'. The cursor is left unchanged.
func (p *parser) closes(ctx context.Context) bool {
	pos, dry := p.pos, p.dry
	p.dry = true
	_, closed, _ := p.eval(ctx, true)
	p.pos, p.dry = pos, dry
	return closed
}

func (p *parser) resolve(ctx context.Context, key string) (string, error) {
	if p.res == nil || p.dry {
		return "", nil
	}
	force := strings.HasPrefix(key, ForceReloadPrefix)
	if force {
		key = strings.TrimPrefix(key, ForceReloadPrefix)
	}
	return p.res.Get(ctx, key, force)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
