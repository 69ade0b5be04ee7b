package tessera

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxResourceSize bounds resources read from untrusted input.
	DefaultMaxResourceSize = 2048
	// EnvMaxResourceSize overrides DefaultMaxResourceSize.
	EnvMaxResourceSize = "TESSERA_MAX_RESOURCE_SIZE"
)

var (
	ErrResourceTooLarge = errors.New("resource exceeds maximum allowed size")
	ErrInvalidUTF8      = errors.New("resource contains invalid UTF-8 sequences")
)

// SanitizeResource trims a resource read from a terminal or a request and
// strips control characters, so escape sequences never reach logs or scripts.
// Oversized or invalid UTF-8 input is rejected rather than truncated.
func SanitizeResource(input string) (string, error) {
	if limit := maxResourceSize(); len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrResourceTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	input = strings.TrimSpace(input)
	if strings.IndexFunc(input, unicode.IsControl) < 0 {
		return input, nil
	}
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func maxResourceSize() int {
	if val := os.Getenv(EnvMaxResourceSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxResourceSize
}
