package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello", "hello"},
		{"  hello  ", "hello"},
		{"hello\x00world", "helloworld"},
		{"line one\r\nline two\r\n", "line one\nline two"},
	}

	for _, tc := range tests {
		result := SanitizeText(tc.input)
		if result != tc.expected {
			t.Errorf("SanitizeText(%q) = %q, want %q", tc.input, result, tc.expected)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		n        int
		expected string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello"},
		{"élève", 3, "élè"},
		{"ação", 4, "ação"},
		{"abc", 0, ""},
	}

	for _, tc := range tests {
		result := Truncate(tc.input, tc.n)
		if result != tc.expected {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.input, tc.n, result, tc.expected)
		}
	}
}

func TestCheckText(t *testing.T) {
	// 50 accented characters are 100 bytes; the bound is on characters.
	accented := strings.Repeat("é", MinTextLength)

	tests := []struct {
		name string
		text string
		max  int
		want error
	}{
		{"too short", "short", MaxTextLength, ErrTextTooShort},
		{"exactly min", strings.Repeat("a", MinTextLength), MaxTextLength, nil},
		{"multibyte counted by character", accented, MinTextLength, nil},
		{"too long", strings.Repeat("a", MaxPublicTextLength+1), MaxPublicTextLength, ErrTextTooLong},
		{"no upper bound", strings.Repeat("a", MaxTextLength+1), 0, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CheckText(tc.text, MinTextLength, tc.max); got != tc.want {
				t.Errorf("CheckText() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestSizeMiddleware(16))
	r.POST("/", func(c *gin.Context) {
		var body struct{ Text string }
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/", strings.NewReader(`{"Text":"`+strings.Repeat("x", 64)+`"}`)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", w.Code)
	}
}
