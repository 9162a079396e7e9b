package template

// Match carries everything a replacement template can reference about one
// regex match.
type Match struct {
	// Text is the entire matched substring.
	Text string
	// Groups holds numbered captures; index 0 is the whole match.
	// Unmatched groups are empty strings.
	Groups []string
	// Named holds named captures.
	Named map[string]string
	// Start is the byte offset of the match within Subject.
	Start int
	// Subject is the string the pattern was run against.
	Subject string
}

// Group returns numbered capture n, or "" if it does not exist
func (m *Match) Group(n int) string {
	if n < 0 || n >= len(m.Groups) {
		return ""
	}
	return m.Groups[n]
}

// NamedGroup returns the named capture, or "" if it does not exist
func (m *Match) NamedGroup(name string) string {
	return m.Named[name]
}

// Before returns the subject text preceding the match
func (m *Match) Before() string {
	if m.Start > len(m.Subject) {
		return m.Subject
	}
	return m.Subject[:m.Start]
}

// After returns the subject text following the match
func (m *Match) After() string {
	end := m.Start + len(m.Text)
	if end > len(m.Subject) {
		return ""
	}
	return m.Subject[end:]
}
