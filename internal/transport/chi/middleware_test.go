package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/agentmart/internal/logger"
	"github.com/kailas-cloud/agentmart/pkg/api"
)

func TestJSONRecoverer(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := JSONRecoverer(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", searchPath, http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if resp := decode[api.ErrorResponse](t, rr); resp.Code != api.ErrorCodeInternal {
		t.Errorf("code = %q", resp.Code)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Error("panic should be logged")
	}
}

func TestWideEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	var handlerLogged bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("inside handler")
		handlerLogged = true
		w.Header().Set(api.DegradedHeader, "true")
		w.WriteHeader(http.StatusOK)
	})
	h := chiMiddleware.RequestID(WideEvent(zap.New(core))(inner))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", searchPath, http.NoBody))

	if !handlerLogged {
		t.Fatal("handler did not run")
	}
	reqID := rr.Header().Get(chiMiddleware.RequestIDHeader)
	if reqID == "" {
		t.Fatal("X-Request-ID header missing")
	}

	lines := logs.FilterMessage("http_request").All()
	if len(lines) != 1 {
		t.Fatalf("got %d http_request lines, want 1", len(lines))
	}
	fields := lines[0].ContextMap()
	if fields["request_id"] != reqID {
		t.Errorf("request_id = %v, want %s", fields["request_id"], reqID)
	}
	if fields["status"] != int64(http.StatusOK) {
		t.Errorf("status = %v", fields["status"])
	}
	if fields["degraded"] != true {
		t.Errorf("degraded = %v", fields["degraded"])
	}

	inside := logs.FilterMessage("inside handler").All()
	if len(inside) != 1 || inside[0].ContextMap()["request_id"] != reqID {
		t.Error("handler logger should carry the request id")
	}
}
