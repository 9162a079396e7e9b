package action

// Capture identifies one capturing group of a compiled pattern. regexp2
// numbers named groups after all unnamed ones; Captures lists them in the
// order their opening parentheses appear, which is how $N counts them.
type Capture struct {
	// Name is set for (?<name>...) groups.
	Name string
	// Number is regexp2's number for an unnamed group.
	Number int
}

// captureOrder scans pattern for capturing groups in source order. It
// understands escapes, character classes, and the (?...) group forms.
func captureOrder(pattern string) []Capture {
	var (
		captures []Capture
		unnamed  int
		inClass  bool
	)
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; {
		case c == '\\':
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == '(':
			if i+1 >= len(pattern) || pattern[i+1] != '?' {
				unnamed++
				captures = append(captures, Capture{Number: unnamed})
				continue
			}
			if name, ok := groupName(pattern[i+2:]); ok {
				captures = append(captures, Capture{Name: name})
			}
		}
	}
	return captures
}

// groupName reads the name of a (?<name>...) group from the text following
// "(?". Lookbehinds and other group kinds report false.
func groupName(rest string) (string, bool) {
	if len(rest) < 2 || rest[0] != '<' || rest[1] == '=' || rest[1] == '!' {
		return "", false
	}
	for j := 1; j < len(rest); j++ {
		if rest[j] == '>' {
			return rest[1:j], j > 1
		}
	}
	return "", false
}
