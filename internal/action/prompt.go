package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/raaihank/textrules/internal/logger"
	"go.uber.org/zap"
)

// Decision is the answer to a recoverable resolution error
type Decision int

const (
	Abort Decision = iota
	Continue
)

// String returns the label shown to users.
func (d Decision) String() string {
	if d == Continue {
		return "Continue"
	}
	return "Abort"
}

// ParseDecision accepts "abort" or "continue" in any case.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "abort":
		return Abort, nil
	case "continue":
		return Continue, nil
	default:
		return Abort, fmt.Errorf("invalid decision %q (must be abort or continue)", s)
	}
}

// Prompter asks whether resolution should go on after a recoverable error.
// Implementations must show at most one prompt at a time.
type Prompter interface {
	Decide(ctx context.Context, err error) (Decision, error)
}

// Option is one entry of a list selection prompt
type Option struct {
	Name        string
	Description string
}

// Selector lets the user pick one action list. ok is false when the user
// dismissed the prompt.
type Selector interface {
	Select(ctx context.Context, title string, options []Option) (name string, ok bool, err error)
}

// StaticPrompter answers every decision with the same policy and logs the
// error it was asked about.
type StaticPrompter struct {
	Decision Decision
	Logger   *logger.Logger
}

// Decide implements Prompter
func (p *StaticPrompter) Decide(ctx context.Context, err error) (Decision, error) {
	if p.Logger != nil {
		p.Logger.Warn("Resolution error",
			zap.String("kind", ErrorKind(err)),
			zap.String("decision", p.Decision.String()),
			zap.Error(err),
		)
	}
	return p.Decision, nil
}
