package apply

import (
	"context"
	"fmt"
)

// Buffer is an in-memory Document
type Buffer struct {
	text  string
	edits int
}

// NewBuffer creates a buffer holding text
func NewBuffer(text string) *Buffer {
	return &Buffer{text: text}
}

// Text implements Document
func (b *Buffer) Text() string {
	return b.text
}

// Replace implements Document
func (b *Buffer) Replace(ctx context.Context, r Range, text string) error {
	if r.Start < 0 || r.End < r.Start || r.End > len(b.text) {
		return fmt.Errorf("range [%d, %d) is out of bounds", r.Start, r.End)
	}
	b.text = b.text[:r.Start] + text + b.text[r.End:]
	b.edits++
	return nil
}

// Edits returns how many replacements were applied
func (b *Buffer) Edits() int {
	return b.edits
}
