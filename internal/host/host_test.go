package host

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/raaihank/textrules/internal/action"
	"github.com/raaihank/textrules/internal/apply"
	"github.com/raaihank/textrules/internal/config"
	"github.com/raaihank/textrules/internal/placeholder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hostYAML = `
user:
  name: Ada
workspace:
  root: /work/proj
  folders:
    docs: ../docs
commands:
  greet: [sh, -c, 'printf "hi %s" "$1"', sh]
  upper: [tr, a-z, A-Z]
  fail: [sh, -c, 'echo broken >&2; exit 3']
actions:
  b: [x]
  a: [y]
`

func newTestHost(t *testing.T, opts Options) *Host {
	t.Helper()
	cfg, err := config.LoadBytes([]byte(hostYAML), "yaml")
	require.NoError(t, err)
	opts.Config = cfg
	if opts.Clipboard == nil {
		opts.Clipboard = &MemoryClipboard{Text: "clip"}
	}
	return New(opts)
}

func TestHost(t *testing.T) {
	h := newTestHost(t, Options{File: "/work/proj/a/b.txt", LineNumber: 3, SelectedText: "sel", Version: "0.1.0"})
	ctx := context.Background()

	t.Run("Editor", func(t *testing.T) {
		editor := h.Editor()
		assert.Equal(t, filepath.FromSlash("/work/proj"), editor.WorkspaceRoot)
		assert.Equal(t, 3, editor.LineNumber)
		assert.Equal(t, "sel", editor.SelectedText)
	})

	t.Run("Workspace folders", func(t *testing.T) {
		path, ok := h.WorkspaceFolder("docs")
		require.True(t, ok)
		assert.Equal(t, filepath.FromSlash("/work/docs"), path)

		path, ok = h.WorkspaceFolder("proj")
		require.True(t, ok)
		assert.Equal(t, filepath.FromSlash("/work/proj"), path)

		_, ok = h.WorkspaceFolder("other")
		assert.False(t, ok)
	})

	t.Run("Clipboard", func(t *testing.T) {
		text, err := h.ReadClipboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, "clip", text)

		require.NoError(t, h.WriteClipboard(ctx, "new"))
		text, err = h.ReadClipboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, "new", text)
	})

	t.Run("Properties", func(t *testing.T) {
		v, ok := h.Property("appName")
		require.True(t, ok)
		assert.Equal(t, AppName, v)

		first, ok := h.Property("sessionId")
		require.True(t, ok)
		second, _ := h.Property("sessionId")
		assert.Equal(t, first, second)
		assert.Len(t, first, 36)

		machine, ok := h.Property("machineId")
		require.True(t, ok)
		again, _ := h.Property("machineId")
		assert.Equal(t, machine, again)

		_, ok = h.Property("nope")
		assert.False(t, ok)
	})

	t.Run("Language", func(t *testing.T) {
		t.Setenv("LC_ALL", "")
		t.Setenv("LC_MESSAGES", "")
		t.Setenv("LANG", "pt_BR.UTF-8")
		v, _ := h.Property("language")
		assert.Equal(t, "pt-BR", v)

		t.Setenv("LANG", "C")
		v, _ = h.Property("language")
		assert.Equal(t, "en", v)
	})

	t.Run("Config", func(t *testing.T) {
		v, ok := h.Config("user.name")
		require.True(t, ok)
		assert.Equal(t, "Ada", v)
	})

	t.Run("Builtin commands", func(t *testing.T) {
		v, err := h.ExecuteCommand(ctx, CommandStringify, `\d"`)
		require.NoError(t, err)
		assert.Equal(t, `\\d\"`, v)

		v, err = h.ExecuteCommand(ctx, CommandActions, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, v)

		_, err = h.ExecuteCommand(ctx, "missing", nil)
		assert.ErrorContains(t, err, "command not found")
	})
}

func TestRestrictedHost(t *testing.T) {
	t.Setenv("TEXTRULES_HOST_SECRET", "hunter2")
	ctx := context.Background()

	t.Run("Server sources are blank", func(t *testing.T) {
		h := newTestHost(t, Options{Restricted: true, File: "notes/a.txt"})

		_, ok := h.Getenv("TEXTRULES_HOST_SECRET")
		assert.False(t, ok)
		_, ok = h.Config("user.name")
		assert.False(t, ok)
		_, ok = h.Property("cwd")
		assert.False(t, ok)
		_, ok = h.Property("machineId")
		assert.False(t, ok)
		_, ok = h.WorkspaceFolder("docs")
		assert.False(t, ok)

		editor := h.Editor()
		assert.Empty(t, editor.WorkspaceRoot)
		assert.Equal(t, "notes/a.txt", editor.File)

		v, err := h.ExecuteCommand(ctx, "greet", "you")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("Request values stay available", func(t *testing.T) {
		h := newTestHost(t, Options{Restricted: true})

		v, ok := h.Property("appName")
		require.True(t, ok)
		assert.Equal(t, AppName, v)

		text, err := h.ReadClipboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, "clip", text)

		names, err := h.ExecuteCommand(ctx, CommandActions, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, names)
	})

	t.Run("Allowed sources", func(t *testing.T) {
		h := newTestHost(t, Options{Restricted: true, Allow: []string{config.PlaceholderEnv, config.PlaceholderConfig}})

		v, ok := h.Getenv("TEXTRULES_HOST_SECRET")
		require.True(t, ok)
		assert.Equal(t, "hunter2", v)

		cv, ok := h.Config("user.name")
		require.True(t, ok)
		assert.Equal(t, "Ada", cv)

		_, ok = h.Property("cwd")
		assert.False(t, ok)
	})

	t.Run("Through placeholders", func(t *testing.T) {
		h := newTestHost(t, Options{Restricted: true})
		r := placeholder.New(h, nil, nil)
		for _, name := range []string{"env:TEXTRULES_HOST_SECRET", "config:user.name", "cwd", "workspaceFolder", "command:greet"} {
			v, err := r.Get(ctx, name, false)
			require.NoError(t, err, name)
			assert.Empty(t, v, name)
		}
	})
}

func TestExternalCommands(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	dir := t.TempDir()
	cfg, err := config.LoadBytes([]byte(hostYAML), "yaml")
	require.NoError(t, err)
	cfg.Workspace.Root = dir

	h := New(Options{Config: cfg, Clipboard: &MemoryClipboard{}, SelectedText: "shout"})
	ctx := context.Background()

	v, err := h.ExecuteCommand(ctx, "greet", "you")
	require.NoError(t, err)
	assert.Equal(t, "hi you", v)

	v, err = h.ExecuteCommand(ctx, "upper", nil)
	require.NoError(t, err)
	assert.Equal(t, "SHOUT", v)

	_, err = h.ExecuteCommand(ctx, "fail", nil)
	assert.ErrorContains(t, err, "broken")

	t.Run("Through placeholders", func(t *testing.T) {
		r := placeholder.New(h, nil, nil)
		v, err := r.Get(ctx, "command:greet:user.name", false)
		require.NoError(t, err)
		assert.Equal(t, "hi Ada", v)

		v, err = r.Get(ctx, "command:"+CommandActions, false)
		require.NoError(t, err)
		assert.Equal(t, "", v)
	})
}

func TestFileDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o600))

	doc, err := OpenFile(path)
	require.NoError(t, err)
	assert.False(t, doc.Modified())
	require.NoError(t, doc.Save())

	find, replace := "o", "0"
	rule, err := action.Compile(action.RuleSpec{Find: &find, Replace: &replace}, action.DefaultMatchTimeout)
	require.NoError(t, err)

	line, err := LineRange(doc.Text(), 2)
	require.NoError(t, err)

	_, err = apply.New(nil).ApplyDocument(context.Background(), doc, []apply.Range{line}, []*action.Rule{rule}, nil)
	require.NoError(t, err)
	assert.True(t, doc.Modified())
	require.NoError(t, doc.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntw0\nthree\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = OpenFile(dir)
	assert.Error(t, err)
	_, err = OpenFile(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestLineRange(t *testing.T) {
	text := "ab\r\ncd\n\nef"
	tests := []struct {
		line     int
		expected apply.Range
	}{
		{1, apply.Range{Start: 0, End: 2}},
		{2, apply.Range{Start: 4, End: 6}},
		{3, apply.Range{Start: 7, End: 7}},
		{4, apply.Range{Start: 8, End: 10}},
	}
	for _, tt := range tests {
		r, err := LineRange(text, tt.line)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, r, "line %d", tt.line)
	}

	_, err := LineRange(text, 5)
	assert.Error(t, err)
	_, err = LineRange(text, 0)
	assert.Error(t, err)
}
