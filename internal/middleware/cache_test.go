package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ordelia/floorplan-reservation/internal/config"
)

func keyFor(t *testing.T, strategy, method, target string) string {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/floor/:date/units")
	return cacheKeyFrom(config.CacheConfig{Prefix: "fp", KeyStrategy: strategy}, c)
}

func TestCacheKeyStrategies(t *testing.T) {
	base := keyFor(t, "route", http.MethodGet, "/v1/floor/2026-09-01/units")

	// The route strategy ignores method and query string.
	if got := keyFor(t, "route", http.MethodPost, "/v1/floor/2026-09-01/units?x=1"); got != base {
		t.Fatalf("route strategy must ignore method and query")
	}
	if got := keyFor(t, "method_route", http.MethodPost, "/v1/floor/2026-09-01/units"); got == base {
		t.Fatalf("method_route must vary by method")
	}
	if got := keyFor(t, "route_query", http.MethodGet, "/v1/floor/2026-09-01/units?x=1"); got == base {
		t.Fatalf("route_query must vary by query string")
	}
	// Keys are prefix plus a fixed-width digest.
	if len(base) != len("fp:")+40 {
		t.Fatalf("key = %q, want fp: plus sha1 hex", base)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	enc, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	status, gotHdr, body, ok := decodePayload(enc)
	if !ok || status != http.StatusOK {
		t.Fatalf("decode: ok=%v status=%d", ok, status)
	}
	if gotHdr.Get("Content-Type") != "application/json" {
		t.Fatalf("header = %v", gotHdr)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("body = %q", body)
	}
}

func TestDecodePayloadRejectsTruncated(t *testing.T) {
	if _, _, _, ok := decodePayload([]byte{0, 0}); ok {
		t.Fatalf("short payload must not decode")
	}
	// Header length pointing past the buffer.
	enc, _ := encodePayload(200, nil, nil)
	enc[7] = 0xFF
	if _, _, _, ok := decodePayload(enc); ok {
		t.Fatalf("oversized header length must not decode")
	}
}

func TestCaptureWriterBounded(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	if _, err := cw.Write([]byte("abcdef")); err != nil {
		t.Fatalf("write: %v", err)
	}
	// The client sees everything; the capture stops at the limit.
	if rec.Body.String() != "abcdef" {
		t.Fatalf("forwarded = %q", rec.Body.String())
	}
	if cw.buf.String() != "abcd" {
		t.Fatalf("captured = %q", cw.buf.String())
	}
}
