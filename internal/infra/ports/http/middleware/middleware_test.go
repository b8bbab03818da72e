package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/InterviewRoom/internal/infra/appctx"
	"github.com/qrave1/InterviewRoom/internal/usecase"
)

func newAuthEcho(t *testing.T, tokens usecase.TokenUsecase) *echo.Echo {
	t.Helper()

	e := echo.New()
	e.Use(JWTAuthMiddleware(tokens))
	e.GET("/me", func(c echo.Context) error {
		identity, _ := appctx.Identity(c.Request().Context())
		return c.String(http.StatusOK, identity)
	})

	return e
}

func TestJWTAuthMiddleware_Sources(t *testing.T) {
	tokens := usecase.NewTokenUsecase("secret")

	raw, err := tokens.Issue("alice", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{name: "cookie", setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt", Value: raw}) }},
		{name: "bearer", setup: func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+raw) }},
		{name: "websocket query", setup: func(r *http.Request) {
			r.URL.RawQuery = "token=" + raw
			r.Header.Set(echo.HeaderUpgrade, "websocket")
		}},
	}

	e := newAuthEcho(t, tokens)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status=%d, want %d", rec.Code, http.StatusOK)
			}
			if rec.Body.String() != "alice" {
				t.Fatalf("identity=%q, want alice", rec.Body.String())
			}
		})
	}
}

func TestJWTAuthMiddleware_Rejects(t *testing.T) {
	tokens := usecase.NewTokenUsecase("secret")
	e := newAuthEcho(t, tokens)

	raw, err := tokens.Issue("alice", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	for name, setup := range map[string]func(r *http.Request){
		"missing":              func(r *http.Request) {},
		"invalid":              func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer nope") },
		"query outside upgrade": func(r *http.Request) { r.URL.RawQuery = "token=" + raw },
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			setup(req)

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status=%d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header string
		status int
	}{
		{name: "valid", key: "k", header: "k", status: http.StatusNoContent},
		{name: "wrong", key: "k", header: "x", status: http.StatusUnauthorized},
		{name: "not configured", key: "", header: "", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.Use(APIKeyMiddleware(tt.key))
			e.POST("/notify", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

			req := httptest.NewRequest(http.MethodPost, "/notify", nil)
			req.Header.Set(HeaderAPIKey, tt.header)

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status=%d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestSlogLogger_OmitsQuery(t *testing.T) {
	var buf bytes.Buffer

	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	e := echo.New()
	e.Use(SlogLogger())
	e.GET("/api/v1/ice", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ice?token=secret-token", nil))

	out := buf.String()
	if !strings.Contains(out, `"uri":"/api/v1/ice"`) {
		t.Fatalf("log=%s, want the request path", out)
	}
	if strings.Contains(out, "secret-token") {
		t.Fatalf("log leaks the query: %s", out)
	}
}
