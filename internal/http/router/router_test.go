package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "hvac_crm_backend/internal/http"
	"hvac_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type routerConfig struct{}

func (routerConfig) GetHTTPAddr() string        { return ":0" }
func (routerConfig) GetCORSAllowAll() bool      { return false }
func (routerConfig) GetCORSOrigins() []string   { return []string{"http://localhost:4200"} }
func (routerConfig) GetCORSAllowCreds() bool    { return true }
func (routerConfig) GetJWTAccessSecret() string { return "test-secret" }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	ctx.V1.GET("/public", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
}

func newEngine(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  routerConfig{},
		Logger:  logger.Discard(),
		Health:  health,
		Modules: []apphttp.Module{pingModule{}},
	})
}

func serve(engine http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	if rec := serve(newEngine(pinger{}), "/api/health"); rec.Code != http.StatusOK {
		t.Fatalf("healthy: got %d", rec.Code)
	}
	if rec := serve(newEngine(pinger{err: errors.New("down")}), "/api/health"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy: got %d", rec.Code)
	}
}

func TestModuleRoutesMounted(t *testing.T) {
	engine := newEngine(nil)

	if rec := serve(engine, "/api/v1/public"); rec.Code != http.StatusOK {
		t.Fatalf("public route: got %d", rec.Code)
	}
	if rec := serve(engine, "/api/v1/ping"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("protected route without token: got %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	rec := serve(newEngine(nil), "/api/health")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID response header")
	}
}
