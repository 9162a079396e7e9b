package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/raaihank/textrules/internal/apply"
)

// FileDocument is a file loaded into memory for editing. Changes are
// written back by Save.
type FileDocument struct {
	path   string
	mode   os.FileMode
	buffer *apply.Buffer
}

// OpenFile loads path for editing
func OpenFile(path string) (*FileDocument, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return &FileDocument{path: abs, mode: info.Mode().Perm(), buffer: apply.NewBuffer(string(data))}, nil
}

// Path returns the absolute path of the file
func (d *FileDocument) Path() string {
	return d.path
}

// Text implements apply.Document
func (d *FileDocument) Text() string {
	return d.buffer.Text()
}

// Replace implements apply.Document
func (d *FileDocument) Replace(ctx context.Context, r apply.Range, text string) error {
	return d.buffer.Replace(ctx, r, text)
}

// Modified reports whether any edit has been made
func (d *FileDocument) Modified() bool {
	return d.buffer.Edits() > 0
}

// Save writes the document back if it was modified. The new content is
// written to a temporary file in the same directory and renamed over the
// original.
func (d *FileDocument) Save() error {
	if !d.Modified() {
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), "."+filepath.Base(d.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", d.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(d.buffer.Text()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save %s: %w", d.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save %s: %w", d.path, err)
	}
	if err := os.Chmod(tmp.Name(), d.mode); err != nil {
		return fmt.Errorf("failed to save %s: %w", d.path, err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return fmt.Errorf("failed to save %s: %w", d.path, err)
	}
	return nil
}

// LineRange returns the byte range of 1-based line n, excluding its line
// terminator.
func LineRange(text string, n int) (apply.Range, error) {
	if n < 1 {
		return apply.Range{}, fmt.Errorf("invalid line number %d", n)
	}

	start := 0
	for line := 1; line < n; line++ {
		i := strings.IndexByte(text[start:], '\n')
		if i < 0 {
			return apply.Range{}, fmt.Errorf("line %d is past the end of the text", n)
		}
		start += i + 1
	}

	end := len(text)
	if i := strings.IndexByte(text[start:], '\n'); i >= 0 {
		end = start + i
	}
	if end > start && text[end-1] == '\r' {
		end--
	}
	return apply.Range{Start: start, End: end}, nil
}
