package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

type fakeExchanger struct {
	codes []string
	err   error
}

func (f *fakeExchanger) Exchange(_ context.Context, code string) error {
	f.codes = append(f.codes, code)
	return f.err
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestOAuthHandler(t *testing.T) {
	t.Run("exchanges the code once", func(t *testing.T) {
		ex := &fakeExchanger{}
		h := NewOAuthHandler(ex, "/oauth2callback", "state-1")

		rec := serve(h, "/oauth2callback?state=state-1&code=abc")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Authorization Successful") {
			t.Errorf("expected success page, got %s", rec.Body.String())
		}

		result := <-h.Result()
		if result.Error() != nil {
			t.Errorf("unexpected error: %v", result.Error())
		}
		if len(ex.codes) != 1 || ex.codes[0] != "abc" {
			t.Errorf("expected code abc to be exchanged, got %v", ex.codes)
		}

		again := serve(h, "/oauth2callback?state=state-1&code=abc")
		if again.Code != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got %d", again.Code)
		}
		if len(ex.codes) != 1 {
			t.Errorf("replay must not exchange again, got %v", ex.codes)
		}
	})

	t.Run("rejects bad callbacks", func(t *testing.T) {
		tc := []struct {
			name   string
			target string
			status int
			err    error
		}{
			{"state mismatch", "/cb?state=wrong&code=abc", http.StatusBadRequest, nil},
			{"denied", "/cb?state=s&error=access_denied&error_description=nope", http.StatusBadRequest, nil},
			{"exchange failure", "/cb?state=s&code=abc", http.StatusInternalServerError, errors.New("exchange failed")},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				h := NewOAuthHandler(&fakeExchanger{err: tt.err}, "/cb", "s")
				rec := serve(h, tt.target)
				if rec.Code != tt.status {
					t.Errorf("expected %d, got %d", tt.status, rec.Code)
				}
				if result := <-h.Result(); result.Error() == nil {
					t.Error("expected an error result")
				}
			})
		}
	})

	t.Run("routes follow the redirect path", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{}, "/oauth2callback", "s")
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/oauth2callback" {
			t.Errorf("unexpected routes %v", routes)
		}
		if routes := NewOAuthHandler(&fakeExchanger{}, "", "s").Routes(); routes[0] != "/" {
			t.Errorf("expected root route for empty path, got %v", routes)
		}
	})
}

func TestCallbackAddr(t *testing.T) {
	tc := []struct {
		uri      string
		addr     string
		path     string
		wantsErr bool
	}{
		{uri: "http://localhost:8501/oauth2callback", addr: "localhost:8501", path: "/oauth2callback"},
		{uri: "http://127.0.0.1:9000", addr: "127.0.0.1:9000", path: "/"},
		{uri: "http://localhost/cb", addr: "localhost:80", path: "/cb"},
		{uri: "https://example.com/cb", wantsErr: true},
		{uri: "http:///cb", wantsErr: true},
		{uri: "://bad", wantsErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.uri, func(t *testing.T) {
			addr, path, err := CallbackAddr(tt.uri)
			if tt.wantsErr {
				if err == nil {
					t.Errorf("expected error for %s", tt.uri)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if addr != tt.addr || path != tt.path {
				t.Errorf("expected %s %s, got %s %s", tt.addr, tt.path, addr, path)
			}
		})
	}
}

func TestCallbackRouter(t *testing.T) {
	t.Run("other paths do not consume the callback", func(t *testing.T) {
		ex := &fakeExchanger{}
		h := NewOAuthHandler(ex, "/", "s")
		r := NewCallbackRouter(h)

		if rec := serve(r, "/favicon.ico"); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
		if rec := serve(r, "/?state=s&code=abc"); rec.Code != http.StatusOK {
			t.Fatalf("expected the callback to succeed, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() != nil {
			t.Errorf("unexpected error: %v", result.Error())
		}
		if len(ex.codes) != 1 {
			t.Errorf("expected one exchange, got %v", ex.codes)
		}
	})

	t.Run("only GET reaches the handler", func(t *testing.T) {
		ex := &fakeExchanger{}
		r := NewCallbackRouter(NewOAuthHandler(ex, "/cb", "s"))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cb?state=s&code=abc", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
		if rec.Header().Get("Allow") != http.MethodGet {
			t.Errorf("expected Allow: GET, got %q", rec.Header().Get("Allow"))
		}
		if len(ex.codes) != 0 {
			t.Errorf("expected no exchange, got %v", ex.codes)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewCallbackRouter(NewOAuthHandler(&fakeExchanger{}, "/cb", "s"), mark("first"), mark("second"))
		serve(r, "/cb?state=s&code=c")

		if strings.Join(order, ",") != "first,second" {
			t.Errorf("expected first,second, got %v", order)
		}
	})

	t.Run("request logger sees rejected paths", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

		r := NewCallbackRouter(NewOAuthHandler(&fakeExchanger{}, "/cb", "s"), RequestLogger(logger))
		serve(r, "/missing")

		if out := buf.String(); !strings.Contains(out, "/missing") || !strings.Contains(out, "404") {
			t.Errorf("expected path and status in log, got %q", out)
		}
	})
}
