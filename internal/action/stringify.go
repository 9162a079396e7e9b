package action

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/dlclark/regexp2"
)

// Stringify validates pattern and escapes it for use inside a JSON string
// literal, without the surrounding quotes.
func Stringify(pattern string) (string, error) {
	if _, err := regexp2.Compile(pattern, regexp2.ECMAScript); err != nil {
		return "", &InvalidPatternError{Find: pattern, Err: err}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(pattern); err != nil {
		return "", err
	}

	quoted := strings.TrimSuffix(buf.String(), "\n")
	return quoted[1 : len(quoted)-1], nil
}
