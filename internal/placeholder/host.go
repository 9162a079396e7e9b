package placeholder

import "context"

// Editor describes the text the user is working on
type Editor struct {
	// File is the absolute path of the current file, if any.
	File string
	// WorkspaceRoot is the root folder the file belongs to.
	WorkspaceRoot string
	// LineNumber is 1-based; zero means unknown.
	LineNumber   int
	SelectedText string
}

// Host exposes the environment placeholders are resolved against.
type Host interface {
	Editor() Editor
	ReadClipboard(ctx context.Context) (string, error)
	// WorkspaceFolder resolves a named workspace folder to its path.
	WorkspaceFolder(name string) (string, bool)
	Getenv(name string) (string, bool)
	// Property returns a host environment property such as appName, cwd
	// or shell.
	Property(name string) (string, bool)
	// Config reads a configuration value by dotted path.
	Config(path string) (any, bool)
	// ExecuteCommand runs a named command. The result may be any value;
	// only strings are usable as placeholder values.
	ExecuteCommand(ctx context.Context, name string, arg any) (any, error)
	Version() string
}
