// Package host implements placeholder.Host for the command line and for
// HTTP requests.
package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/raaihank/textrules/internal/action"
	"github.com/raaihank/textrules/internal/config"
	"github.com/raaihank/textrules/internal/logger"
	"github.com/raaihank/textrules/internal/placeholder"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// AppName is reported by the appName placeholder
const AppName = "textrules"

// Built-in commands available to command: placeholders
const (
	CommandStringify = "textrules.stringify"
	CommandActions   = "textrules.actions"
)

// Options configures a Host
type Options struct {
	Config    *config.Config
	Clipboard Clipboard
	Logger    *logger.Logger
	Version   string

	File         string
	LineNumber   int
	SelectedText string

	// Restricted hosts serve untrusted callers. Environment variables,
	// configuration values, commands, workspace paths and machine
	// properties resolve to nothing unless their source is in Allow.
	Restricted bool
	Allow      []string
}

// Host answers placeholder lookups from configuration, the process
// environment and the system clipboard.
type Host struct {
	config    *config.Config
	clipboard Clipboard
	logger    *logger.Logger
	version   string
	root      string
	sessionID string
	editor    placeholder.Editor
	// allow is nil for unrestricted hosts
	allow map[string]bool
}

// New creates a host. A nil clipboard uses the system clipboard.
func New(opts Options) *Host {
	if opts.Config == nil {
		opts.Config = config.GetDefaults()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = SystemClipboard{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	root := absPath("", opts.Config.Workspace.Root)

	var allow map[string]bool
	if opts.Restricted {
		allow = make(map[string]bool, len(opts.Allow))
		for _, source := range opts.Allow {
			allow[source] = true
		}
		if !allow[config.PlaceholderWorkspace] {
			root = ""
		}
	}

	// Restricted hosts take request paths as given.
	file := opts.File
	if file != "" && !opts.Restricted {
		file = absPath("", file)
	}

	return &Host{
		config:    opts.Config,
		clipboard: opts.Clipboard,
		logger:    opts.Logger.WithComponent("host"),
		version:   opts.Version,
		root:      root,
		sessionID: uuid.NewString(),
		editor: placeholder.Editor{
			File:          file,
			WorkspaceRoot: root,
			LineNumber:    opts.LineNumber,
			SelectedText:  opts.SelectedText,
		},
		allow: allow,
	}
}

// Editor implements placeholder.Host
func (h *Host) Editor() placeholder.Editor {
	return h.editor
}

// ReadClipboard implements placeholder.Host
func (h *Host) ReadClipboard(ctx context.Context) (string, error) {
	return h.clipboard.Read(ctx)
}

// WriteClipboard replaces the clipboard contents
func (h *Host) WriteClipboard(ctx context.Context, text string) error {
	return h.clipboard.Write(ctx, text)
}

// WorkspaceFolder implements placeholder.Host. Configured folders are
// relative to the workspace root; the root itself is known by its base
// name.
func (h *Host) WorkspaceFolder(name string) (string, bool) {
	if !h.allowed(config.PlaceholderWorkspace) {
		return "", false
	}
	if path, ok := h.config.Workspace.Folders[name]; ok {
		return absPath(h.root, path), true
	}
	if h.root != "" && name == filepath.Base(h.root) {
		return h.root, true
	}
	return "", false
}

// Getenv implements placeholder.Host
func (h *Host) Getenv(name string) (string, bool) {
	if !h.allowed(config.PlaceholderEnv) {
		return "", false
	}
	return os.LookupEnv(name)
}

// Property implements placeholder.Host
func (h *Host) Property(name string) (string, bool) {
	switch name {
	case "appName":
		return AppName, true
	case "sessionId":
		return h.sessionID, true
	}
	if !h.allowed(config.PlaceholderHost) {
		return "", false
	}

	switch name {
	case "cwd":
		wd, err := os.Getwd()
		if err != nil {
			return "", false
		}
		return wd, true
	case "appRoot":
		exe, err := os.Executable()
		if err != nil {
			return "", false
		}
		return filepath.Dir(exe), true
	case "shell":
		if runtime.GOOS == "windows" {
			return os.LookupEnv("COMSPEC")
		}
		return os.LookupEnv("SHELL")
	case "language":
		return language(), true
	case "machineId":
		hostname, err := os.Hostname()
		if err != nil {
			return "", false
		}
		return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(hostname)).String(), true
	default:
		return "", false
	}
}

// Config implements placeholder.Host
func (h *Host) Config(path string) (any, bool) {
	if !h.allowed(config.PlaceholderConfig) {
		return nil, false
	}
	return h.config.Get(path)
}

// Version implements placeholder.Host
func (h *Host) Version() string {
	return h.version
}

// ExecuteCommand implements placeholder.Host. Configured commands run as
// child processes with the argument appended to their argv; their standard
// output, minus one trailing newline, is the result.
func (h *Host) ExecuteCommand(ctx context.Context, name string, arg any) (any, error) {
	switch name {
	case CommandStringify:
		return action.Stringify(formatArg(arg))
	case CommandActions:
		return config.NewStore(h.config).Names(), nil
	}

	if !h.allowed(config.PlaceholderCommand) {
		h.logger.Debug("Command placeholder refused", zap.String("command", name))
		return nil, nil
	}

	argv, ok := h.config.Commands[name]
	if !ok || len(argv) == 0 {
		return nil, fmt.Errorf("command not found: %s", name)
	}

	args := append([]string{}, argv[1:]...)
	if arg != nil {
		args = append(args, formatArg(arg))
	}

	cmd := exec.CommandContext(ctx, argv[0], args...)
	cmd.Dir = h.root
	cmd.Stdin = strings.NewReader(h.editor.SelectedText)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	h.logger.Debug("Running command",
		zap.String("command", name),
		zap.Strings("argv", append([]string{argv[0]}, args...)),
	)

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}

	out := strings.TrimSuffix(stdout.String(), "\n")
	return strings.TrimSuffix(out, "\r"), nil
}

func (h *Host) allowed(source string) bool {
	return h.allow == nil || h.allow[source]
}

func formatArg(arg any) string {
	if arg == nil {
		return ""
	}
	if s, err := cast.ToStringE(arg); err == nil {
		return s
	}
	data, err := json.Marshal(arg)
	if err != nil {
		return fmt.Sprint(arg)
	}
	return string(data)
}

// language derives a BCP 47 style tag from the locale environment
func language() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(key)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		v, _, _ = strings.Cut(v, ".")
		v, _, _ = strings.Cut(v, "@")
		return strings.ReplaceAll(v, "_", "-")
	}
	return "en"
}

func absPath(base, path string) string {
	if path == "" {
		path = "."
	}
	if !filepath.IsAbs(path) && base != "" {
		path = filepath.Join(base, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
