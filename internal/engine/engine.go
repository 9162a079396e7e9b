// Package engine ties resolution and application together: it resolves
// action lists against the current configuration, opens a placeholder
// cache session and applies the rules to a document.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/raaihank/textrules/internal/action"
	"github.com/raaihank/textrules/internal/apply"
	"github.com/raaihank/textrules/internal/cache"
	"github.com/raaihank/textrules/internal/config"
	"github.com/raaihank/textrules/internal/logger"
	"github.com/raaihank/textrules/internal/placeholder"
	"go.uber.org/zap"
)

// Engine runs action lists. The configuration can be swapped while
// requests are in flight; each run sees one consistent snapshot.
type Engine struct {
	state   atomic.Pointer[state]
	cache   cache.Provider
	applier *apply.Applier
	logger  *logger.Logger
}

type state struct {
	config *config.Config
	store  *config.Store
}

// Request describes one run
type Request struct {
	// Lists are resolved in order into one rule list.
	Lists    []action.List
	Prompter action.Prompter
	Host     placeholder.Host

	// Document is edited in place. When nil, Text is used.
	Document   apply.Document
	Text       string
	Selections []apply.Range
}

// Outcome is the result of a successful run
type Outcome struct {
	Action   *action.Action
	Result   *apply.Result
	Duration time.Duration
}

// New creates an engine. A nil provider keeps placeholder caches in memory.
func New(cfg *config.Config, provider cache.Provider, log *logger.Logger) *Engine {
	if provider == nil {
		provider = cache.NewMemoryProvider()
	}
	if log == nil {
		log = logger.Nop()
	}

	e := &Engine{
		cache:   provider,
		applier: apply.New(log.WithComponent("apply")),
		logger:  log.WithComponent("engine"),
	}
	e.Reload(cfg)
	return e
}

// Reload replaces the configuration used by future runs
func (e *Engine) Reload(cfg *config.Config) {
	e.state.Store(&state{config: cfg, store: config.NewStore(cfg)})
}

// Config returns the current configuration
func (e *Engine) Config() *config.Config {
	return e.state.Load().config
}

// Store returns the current action store
func (e *Engine) Store() *config.Store {
	return e.state.Load().store
}

// CacheStats reports placeholder cache statistics across runs
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// Resolve expands lists against the current configuration
func (e *Engine) Resolve(ctx context.Context, prompter action.Prompter, lists ...action.List) (*action.Action, error) {
	st := e.state.Load()

	resolver := action.NewResolver(st.store, prompter, e.logger)
	resolver.SetMatchTimeout(st.config.Resolution.MatchTimeout)
	return resolver.Resolve(ctx, lists...)
}

// Run resolves req.Lists and applies the rules. Placeholder values are
// cached for the duration of the run only.
func (e *Engine) Run(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()

	act, err := e.Resolve(ctx, req.Prompter, req.Lists...)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	session := e.cache.NewSession(sessionID)
	defer func() {
		// Clearing must outlive a cancelled request context.
		if err := session.Clear(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("Failed to clear placeholder cache", zap.String("session", sessionID), zap.Error(err))
		}
	}()

	doc := req.Document
	if doc == nil {
		doc = apply.NewBuffer(req.Text)
	}

	resolver := placeholder.New(req.Host, session, e.logger.WithComponent("placeholder"))
	result, err := e.applier.ApplyDocument(ctx, doc, req.Selections, act.Rules, resolver)
	if err != nil {
		return &Outcome{Action: act, Result: result, Duration: time.Since(start)}, fmt.Errorf("failed to apply action: %w", err)
	}

	outcome := &Outcome{Action: act, Result: result, Duration: time.Since(start)}
	e.logger.Debug("Action applied",
		zap.Int("rules", len(act.Rules)),
		zap.Int("replacements", result.Replacements()),
		zap.Strings("missing", act.Missing),
		zap.Duration("duration", outcome.Duration),
	)
	return outcome, nil
}

// Close releases the cache provider
func (e *Engine) Close() error {
	return e.cache.Close()
}
