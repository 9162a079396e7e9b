package host

import (
	"context"
	"errors"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnsupported is returned when no clipboard utility is available
var ErrClipboardUnsupported = errors.New("clipboard is not supported on this system")

// Clipboard reads and writes plain text
type Clipboard interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, text string) error
}

// SystemClipboard is the operating system clipboard
type SystemClipboard struct{}

// Read implements Clipboard
func (SystemClipboard) Read(ctx context.Context) (string, error) {
	if clipboard.Unsupported {
		return "", ErrClipboardUnsupported
	}
	return clipboard.ReadAll()
}

// Write implements Clipboard
func (SystemClipboard) Write(ctx context.Context, text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnsupported
	}
	return clipboard.WriteAll(text)
}

// MemoryClipboard holds text in memory. The HTTP host uses it for the
// clipboard text sent with a request.
type MemoryClipboard struct {
	Text string
}

// Read implements Clipboard
func (c *MemoryClipboard) Read(ctx context.Context) (string, error) {
	return c.Text, nil
}

// Write implements Clipboard
func (c *MemoryClipboard) Write(ctx context.Context, text string) error {
	c.Text = text
	return nil
}
