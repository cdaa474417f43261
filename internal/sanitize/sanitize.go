// Package sanitize cleans free text received from tool callers before it
// reaches the graph or the logs.
package sanitize

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxSize bounds one text argument. Message bodies are HTML, so the
// limit is generous.
const DefaultMaxSize = 64 << 10

// EnvMaxSize overrides DefaultMaxSize.
const EnvMaxSize = "FLOWBOARD_MAX_INPUT_SIZE"

var (
	ErrTooLarge    = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8 = errors.New("input contains invalid UTF-8 sequences")
)

// Text rejects oversized or non-UTF-8 input and strips control characters
// other than newline, tab and carriage return.
func Text(input string) (string, error) {
	if limit := maxSize(); len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	if strings.IndexFunc(input, unsafeControl) < 0 {
		return input, nil
	}
	return strings.Map(func(r rune) rune {
		if unsafeControl(r) {
			return -1
		}
		return r
	}, input), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

func maxSize() int {
	if val := os.Getenv(EnvMaxSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxSize
}
