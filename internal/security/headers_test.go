package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// serve runs one request through mw and a trivial /api/plans handler.
func serve(mw gin.HandlerFunc, method, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.GET("/api/plans", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(method, "/api/plans", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHeadersMiddleware(t *testing.T) {
	w := serve(HeadersMiddleware(HeadersOptions{
		HSTS:          true,
		ScriptSources: []string{"https://www.googletagmanager.com"},
	}), "GET", "")

	for header, want := range map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"Referrer-Policy":           "strict-origin-when-cross-origin",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}

	csp := w.Header().Get("Content-Security-Policy")
	for _, directive := range []string{
		"script-src 'self' 'unsafe-inline' https://www.googletagmanager.com;",
		"connect-src 'self' https://www.googletagmanager.com;",
		"frame-ancestors 'none'",
	} {
		if !strings.Contains(csp, directive) {
			t.Errorf("CSP missing %q: %q", directive, csp)
		}
	}
}

func TestHeadersMiddleware_Development(t *testing.T) {
	w := serve(HeadersMiddleware(HeadersOptions{}), "GET", "")

	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS should be off in development, got %q", got)
	}
	if csp := w.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "script-src 'self' 'unsafe-inline';") {
		t.Errorf("CSP should have no extra script sources: %q", csp)
	}
}

func TestSiteOrigins(t *testing.T) {
	got := SiteOrigins("WWW.veritexto.es")
	want := []string{"https://www.veritexto.es", "https://veritexto.es"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("SiteOrigins = %v, want %v", got, want)
	}
}

func TestCORSMiddleware_SiteOrigins(t *testing.T) {
	mw := CORSMiddleware(SiteOrigins("www.auditelle.fr"))

	for _, origin := range []string{"https://www.auditelle.fr", "https://auditelle.fr"} {
		w := serve(mw, "GET", origin)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != origin {
			t.Errorf("origin %s: Allow-Origin = %q", origin, got)
		}
		if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Errorf("origin %s: credentials should be allowed", origin)
		}
	}

	w := serve(mw, "GET", "https://www.veritexto.es")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("another reseller's site must not be allowed, got %q", got)
	}
	if w.Code != http.StatusOK {
		t.Errorf("disallowed origins are still served, got %d", w.Code)
	}
}

func TestCORSMiddleware_Wildcard(t *testing.T) {
	w := serve(CORSMiddleware([]string{"*"}), "GET", "http://localhost:3000")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("wildcard must not allow credentials, got %q", got)
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	w := serve(CORSMiddleware(SiteOrigins("www.veritexto.es")), "OPTIONS", "https://www.veritexto.es")

	if w.Code != http.StatusNoContent {
		t.Errorf("Preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if headers := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(headers, "Stripe-Signature") {
		t.Errorf("Allow-Headers = %q", headers)
	}
}

func TestValidateUpstreamURL(t *testing.T) {
	tests := []struct {
		url          string
		requireHTTPS bool
		wantErr      bool
	}{
		{"https://93.184.216.34/v3", true, false},
		{"http://93.184.216.34/v3", false, false},
		{"http://93.184.216.34/v3", true, true},
		{"ftp://93.184.216.34", false, true},
		{"https://127.0.0.1/v3", false, true},
		{"https://10.0.0.8/v3", false, true},
		{"https://169.254.169.254/latest", false, true},
		{"https://localhost/v3", false, true},
		{"https:///nohost", false, true},
	}
	for _, tt := range tests {
		err := ValidateUpstreamURL(tt.url, tt.requireHTTPS)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateUpstreamURL(%q, %v) error = %v, wantErr %v", tt.url, tt.requireHTTPS, err, tt.wantErr)
		}
	}
}
