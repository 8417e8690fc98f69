package room

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CodeLength   = 6

	maxCodeAttempts = 32

	// MaxNameLength is the display name limit in runes
	MaxNameLength = 24
	DefaultName   = "Player"
)

// ErrNoFreeCode is returned when every generated room code collided
var ErrNoFreeCode = errors.New("could not allocate a free room code")

// randomCode draws a code uniformly from the alphabet. Bytes that would
// bias the modulo are rejected.
func randomCode(src io.Reader) (string, error) {
	limit := byte(256 - 256%len(codeAlphabet))

	var sb strings.Builder
	sb.Grow(CodeLength)
	buf := make([]byte, CodeLength*2)
	for sb.Len() < CodeLength {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			sb.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
			if sb.Len() == CodeLength {
				break
			}
		}
	}
	return sb.String(), nil
}

// NormalizeCode upper-cases and trims a client supplied room code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeName trims a display name, caps its length and falls back to
// DefaultName when nothing is left.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:MaxNameLength]))
	}
	if name == "" {
		return DefaultName
	}
	return name
}
