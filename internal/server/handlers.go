package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raaihank/textrules/internal/action"
	"github.com/raaihank/textrules/internal/apply"
	"github.com/raaihank/textrules/internal/config"
	"github.com/raaihank/textrules/internal/engine"
	"github.com/raaihank/textrules/internal/host"
	"github.com/raaihank/textrules/internal/websocket"
	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
)

const maxBodySize = 10 << 20

// applyRequest is the body of POST /apply. Each element of Actions is a
// list name, an inline list, or a single rule object.
type applyRequest struct {
	Actions    []any          `json:"actions"`
	Text       string         `json:"text"`
	Selections []apply.Range  `json:"selections,omitempty"`
	OnError    string         `json:"on_error,omitempty"`
	Context    requestContext `json:"context"`
}

// requestContext carries the editor state placeholders resolve against
type requestContext struct {
	File         string `json:"file,omitempty"`
	SelectedText string `json:"selectedText,omitempty"`
	Clipboard    string `json:"clipboard,omitempty"`
	LineNumber   int    `json:"lineNumber,omitempty"`
}

type applyResponse struct {
	Text         string           `json:"text"`
	Rules        []apply.RuleStat `json:"rules"`
	Replacements int              `json:"replacements"`
	Missing      []string         `json:"missing"`
	Selections   []apply.Range    `json:"selections,omitempty"`
	DurationMS   float64          `json:"duration_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	cfg := s.engine.Config()
	writeJSON(w, http.StatusOK, map[string]any{
		"name":          host.AppName,
		"version":       s.version,
		"uptime":        time.Since(s.started).Round(time.Second).String(),
		"config_file":   cfg.File(),
		"action_lists":  len(s.engine.Store().Names()),
		"on_error":      cfg.Resolution.OnError,
		"cache_backend": s.config.Cache.Backend,
		"cache":         s.engine.CacheStats(),
		"websocket":     s.wsHub.Stats(),
	})
}

// handleActions lists the configured action lists
func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	options, err := action.Options(r.Context(), s.engine.Store())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

// handleApply resolves the requested action lists and applies them to the
// request text
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)

	req, err := decodeApplyRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "bad_request"})
		return
	}

	lists := make([]action.List, 0, len(req.Actions))
	names := make([]string, 0, len(req.Actions))
	for i, raw := range req.Actions {
		list, err := action.ParseList(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("actions[%d]: %v", i, err), Kind: "bad_request"})
			return
		}
		lists = append(lists, list)
		names = append(names, listName(raw))
	}
	log = log.WithAction(strings.Join(names, ","))

	policy := req.OnError
	if policy == "" {
		policy = s.engine.Config().Resolution.OnError
	}
	decision := action.Abort
	if policy == config.OnErrorContinue {
		decision = action.Continue
	}

	outcome, err := s.engine.Run(r.Context(), engine.Request{
		Lists:      lists,
		Prompter:   &action.StaticPrompter{Decision: decision, Logger: log},
		Host:       s.requestHost(req.Context),
		Text:       req.Text,
		Selections: req.Selections,
	})
	if err != nil {
		s.wsHub.Broadcast(websocket.Event{
			Type:      websocket.EventTypeResolutionError,
			RequestID: requestID,
			Data: websocket.ResolutionErrorEvent{
				Actions: names,
				Kind:    action.ErrorKind(err),
				Error:   err.Error(),
			},
		})
		s.writeError(w, r, statusFor(err), err)
		return
	}

	result := outcome.Result
	missing := outcome.Action.Missing
	if missing == nil {
		missing = []string{}
	}

	s.wsHub.Broadcast(websocket.Event{
		Type:      websocket.EventTypeActionApplied,
		RequestID: requestID,
		Data: websocket.ActionAppliedEvent{
			Actions:      names,
			Rules:        len(outcome.Action.Rules),
			Replacements: result.Replacements(),
			Missing:      outcome.Action.Missing,
			InputBytes:   len(req.Text),
			OutputBytes:  len(result.Text),
			ProcessingMS: float64(outcome.Duration.Microseconds()) / 1000,
		},
	})

	resp := applyResponse{
		Text:         result.Text,
		Rules:        result.Rules,
		Replacements: result.Replacements(),
		Missing:      missing,
		DurationMS:   float64(outcome.Duration.Microseconds()) / 1000,
	}
	if len(req.Selections) > 0 {
		resp.Selections = result.Selections
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeApplyRequest reads a JSON body; comments and trailing commas are
// accepted.
func decodeApplyRequest(r *http.Request) (*applyRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("request body exceeds %d bytes", maxBodySize)
	}

	var req applyRequest
	if err := json.Unmarshal(jsonc.ToJSON(body), &req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if len(req.Actions) == 0 {
		return nil, errors.New("at least one action list is required")
	}
	switch req.OnError {
	case "", config.OnErrorContinue, config.OnErrorAbort:
	default:
		return nil, fmt.Errorf("invalid on_error policy: %s (must be continue or abort)", req.OnError)
	}
	return &req, nil
}

// statusFor maps run errors onto HTTP status codes
func statusFor(err error) int {
	if errors.Is(err, apply.ErrInvalidSelection) {
		return http.StatusUnprocessableEntity
	}
	if action.ErrorKind(err) != "internal" || errors.Is(err, action.ErrAborted) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	kind := action.ErrorKind(err)
	if errors.Is(err, apply.ErrInvalidSelection) {
		kind = "invalid_selection"
	}

	log := s.logger.WithRequestID(getRequestID(r.Context()))
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("kind", kind), zap.Error(err))
	} else {
		log.Info("Request rejected", zap.String("kind", kind), zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

// listName labels an actions element for events
func listName(raw any) string {
	if name, ok := raw.(string); ok {
		return name
	}
	return "inline"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
