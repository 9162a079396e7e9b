// Package placeholder resolves ${...} keys found in replacement templates.
package placeholder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/raaihank/textrules/internal/cache"
	"github.com/raaihank/textrules/internal/logger"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// MaxCachedKeyLength is the key length from which results are no longer
// cached.
const MaxCachedKeyLength = 64

// Resolver resolves placeholder keys against a Host, caching results for
// the lifetime of one resolution.
type Resolver struct {
	host   Host
	cache  cache.Store
	logger *logger.Logger
}

// New creates a resolver. A nil store gets a fresh in-memory one.
func New(host Host, store cache.Store, log *logger.Logger) *Resolver {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{host: host, cache: store, logger: log}
}

// Get returns the value for key. Cached values are returned unless
// forceReload is set.
func (r *Resolver) Get(ctx context.Context, key string, forceReload bool) (string, error) {
	cacheable := len(key) < MaxCachedKeyLength

	if cacheable && !forceReload {
		value, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("failed to read placeholder cache: %w", err)
		}
		if ok {
			return value, nil
		}
	}

	value, err := r.lookup(ctx, key)
	if err != nil {
		return "", err
	}

	if cacheable {
		if err := r.cache.Set(ctx, key, value); err != nil {
			return "", fmt.Errorf("failed to write placeholder cache: %w", err)
		}
	}

	r.logger.Debug("Placeholder resolved",
		zap.String("key", key),
		zap.Bool("force_reload", forceReload),
		zap.Bool("cached", cacheable),
	)
	return value, nil
}

// Clear empties the cache
func (r *Resolver) Clear(ctx context.Context) error {
	return r.cache.Clear(ctx)
}

func (r *Resolver) lookup(ctx context.Context, key string) (string, error) {
	namespace, value, namespaced := strings.Cut(key, ":")
	if !namespaced {
		return r.variable(ctx, key)
	}

	switch namespace {
	case "workspaceFolder":
		path, _ := r.host.WorkspaceFolder(value)
		return path, nil
	case "env":
		v, _ := r.host.Getenv(value)
		return v, nil
	case "config":
		v, ok := r.host.Config(value)
		if !ok {
			return "", nil
		}
		return formatValue(v), nil
	case "command":
		return r.command(ctx, value)
	default:
		return "", nil
	}
}

// variable resolves keys without a namespace
func (r *Resolver) variable(ctx context.Context, key string) (string, error) {
	editor := r.host.Editor()

	switch key {
	case "file":
		return editor.File, nil
	case "fileDirname":
		return fileOnly(editor.File, filepath.Dir), nil
	case "fileBasename":
		return fileOnly(editor.File, filepath.Base), nil
	case "fileBasenameNoExtension":
		return fileOnly(editor.File, func(p string) string {
			base := filepath.Base(p)
			return strings.TrimSuffix(base, filepath.Ext(base))
		}), nil
	case "fileExtname":
		return fileOnly(editor.File, filepath.Ext), nil
	case "workspaceFolder":
		return editor.WorkspaceRoot, nil
	case "workspaceFolderBasename":
		return fileOnly(editor.WorkspaceRoot, filepath.Base), nil
	case "relativeFile":
		return relative(editor.WorkspaceRoot, editor.File), nil
	case "relativeFileDirname":
		rel := relative(editor.WorkspaceRoot, editor.File)
		return fileOnly(rel, filepath.Dir), nil
	case "lineNumber":
		if editor.LineNumber <= 0 {
			return "", nil
		}
		return strconv.Itoa(editor.LineNumber), nil
	case "selectedText":
		return editor.SelectedText, nil
	case "pathSeparator":
		return string(os.PathSeparator), nil
	case "clipboard":
		text, err := r.host.ReadClipboard(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to read clipboard: %w", err)
		}
		return text, nil
	case "version":
		return r.host.Version(), nil
	default:
		v, _ := r.host.Property(key)
		return v, nil
	}
}

// command handles "name" and "name:argKey"; the argument is read from
// configuration at argKey.
func (r *Resolver) command(ctx context.Context, spec string) (string, error) {
	name, argKey, hasArg := strings.Cut(spec, ":")

	var arg any
	if hasArg {
		arg, _ = r.host.Config(argKey)
	}

	result, err := r.host.ExecuteCommand(ctx, name, arg)
	if err != nil {
		return "", fmt.Errorf("command %q failed: %w", name, err)
	}

	s, ok := result.(string)
	if !ok {
		r.logger.Debug("Command returned a non-string result",
			zap.String("command", name),
			zap.String("type", fmt.Sprintf("%T", result)),
		)
		return "", nil
	}
	return s, nil
}

func fileOnly(path string, fn func(string) string) string {
	if path == "" {
		return ""
	}
	return fn(path)
}

func relative(root, file string) string {
	if file == "" {
		return ""
	}
	if root == "" {
		return file
	}
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return file
	}
	return rel
}

// formatValue renders configuration values: scalars as text, everything
// else as JSON.
func formatValue(v any) string {
	if v == nil {
		return ""
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
