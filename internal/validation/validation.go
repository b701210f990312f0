// Package validation normalizes and bounds user-submitted text before it is
// sent to a detector.
package validation

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize bounds every request body. The longest legitimate body
// is a 50000-character text, well under 1MB even in 4-byte runes.
const MaxRequestSize = 1 << 20

// Text bounds, in characters.
const (
	MinTextLength       = 50
	MaxTextLength       = 50000
	MaxPublicTextLength = 5000
	DemoTextLength      = 2000
)

var (
	ErrTextTooShort = errors.New("validation: text too short")
	ErrTextTooLong  = errors.New("validation: text too long")
)

// RequestSizeMiddleware caps the body at maxSize bytes. Reading past the
// cap fails, so binding an oversized JSON body errors out.
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// SanitizeText trims surrounding whitespace, removes NUL bytes and
// normalizes line endings to \n.
func SanitizeText(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}

// Length counts characters, not bytes.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate cuts s to at most n characters without splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// CheckText reports whether s is within [min, max] characters. max <= 0
// means no upper bound.
func CheckText(s string, min, max int) error {
	n := Length(s)
	switch {
	case n < min:
		return ErrTextTooShort
	case max > 0 && n > max:
		return ErrTextTooLong
	}
	return nil
}
