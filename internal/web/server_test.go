package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	logx "relaybot/pkg/logx"
)

func TestRootAndHealth(t *testing.T) {
	s := New(":0", logx.Nop())

	for _, tc := range []struct {
		path string
		want string
	}{
		{path: "/", want: "Bot is running!"},
		{path: "/healthz", want: `"status":"ok"`},
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		s.srv.Handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s = %d", tc.path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), tc.want) {
			t.Fatalf("GET %s body = %q, want %q", tc.path, rec.Body.String(), tc.want)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	s := New("", logx.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	s.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET /nope = %d, want 404", rec.Code)
	}
}
