package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	mng "github.com/loykin/bgrun/internal/manager"
	"github.com/loykin/bgrun/internal/metrics"
	"github.com/loykin/bgrun/internal/process"
	"github.com/loykin/bgrun/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

func setupRouter(t *testing.T, base string) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	mgr := mng.New(store.NewFSStore(dir), dir)
	r := NewRouter(mgr, base)
	return r.Handler()
}

func doReq(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStartMissingName(t *testing.T) {
	h := setupRouter(t, "/abc")
	spec := process.Spec{Command: "/bin/true", Scope: t.TempDir()}
	rec := doReq(t, h, http.MethodPost, "/abc/start", spec)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStartRejectsUnsafeName(t *testing.T) {
	h := setupRouter(t, "")
	spec := process.Spec{Name: "../evil", Command: "/bin/true", Scope: t.TempDir()}
	rec := doReq(t, h, http.MethodPost, "/start", spec)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStartRejectsRelativeScope(t *testing.T) {
	h := setupRouter(t, "")
	spec := process.Spec{Name: "svc", Command: "/bin/true", Scope: "relative/path"}
	rec := doReq(t, h, http.MethodPost, "/start", spec)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStopRequiresParams(t *testing.T) {
	h := setupRouter(t, "")
	rec := doReq(t, h, http.MethodPost, "/stop", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = doReq(t, h, http.MethodPost, "/stop?name=svc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without scope, got %d", rec.Code)
	}
}

func TestStatusRequiresScope(t *testing.T) {
	h := setupRouter(t, "/base")
	rec := doReq(t, h, http.MethodGet, "/base/status", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStopUnknownIsNotFound(t *testing.T) {
	h := setupRouter(t, "")
	scope := url.QueryEscape(t.TempDir())
	rec := doReq(t, h, http.MethodPost, "/stop?name=unknown&scope="+scope, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStartStatusLogsStopRoundtrip(t *testing.T) {
	h := setupRouter(t, "")
	scope := t.TempDir()
	qscope := url.QueryEscape(scope)

	spec := process.Spec{Name: "web", Command: "printf 'listening\\n'; sleep 30", Scope: scope}
	rec := doReq(t, h, http.MethodPost, "/start", spec)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var started store.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if started.PID <= 0 {
		t.Fatalf("expected positive pid, got %d", started.PID)
	}
	t.Cleanup(func() { _ = syscall.Kill(-started.PID, syscall.SIGKILL) })

	// duplicate start conflicts
	rec = doReq(t, h, http.MethodPost, "/start", spec)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate start: expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doReq(t, h, http.MethodGet, "/status?scope="+qscope, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var sts []mng.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &sts); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(sts) != 1 || sts[0].Name != "web" || !sts[0].Running {
		t.Fatalf("unexpected statuses: %+v", sts)
	}

	deadline := time.Now().Add(3 * time.Second)
	var logs logsResp
	for time.Now().Before(deadline) {
		rec = doReq(t, h, http.MethodGet, "/logs?name=web&lines=10&scope="+qscope, nil)
		if rec.Code == http.StatusOK {
			if err := json.Unmarshal(rec.Body.Bytes(), &logs); err != nil {
				t.Fatalf("decode logs: %v", err)
			}
			if strings.Contains(logs.Content, "listening") {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !strings.Contains(logs.Content, "listening") {
		t.Fatalf("expected child output in logs, got %q (code %d)", logs.Content, rec.Code)
	}

	rec = doReq(t, h, http.MethodPost, "/stop?name=web&scope="+qscope, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doReq(t, h, http.MethodGet, "/status?scope="+qscope, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status after stop: expected 200, got %d", rec.Code)
	}
	sts = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &sts); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(sts) != 0 {
		t.Fatalf("expected empty status after stop, got %+v", sts)
	}
}

func TestLogsUnknownIsNotFound(t *testing.T) {
	h := setupRouter(t, "")
	scope := url.QueryEscape(t.TempDir())
	rec := doReq(t, h, http.MethodGet, "/logs?name=ghost&scope="+scope, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSummaryEndpoint(t *testing.T) {
	h := setupRouter(t, "")
	scope := url.QueryEscape(t.TempDir())
	rec := doReq(t, h, http.MethodGet, "/summary?scope="+scope, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if _, ok := body["processes"]; !ok {
		t.Fatalf("summary missing processes field: %v", body)
	}
}

func TestMetricsEndpointWhenEnabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		t.Fatalf("register metrics: %v", err)
	}
	dir := t.TempDir()
	mgr := mng.New(store.NewFSStore(dir), dir)
	h := NewRouter(mgr, "/api", WithMetricsEndpoint()).Handler()

	spec := process.Spec{Name: "mx", Command: "sleep 5", Scope: dir}
	if rec := doReq(t, h, http.MethodPost, "/api/start", spec); rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	defer func() { _ = mgr.Stop(context.Background(), "mx", dir) }()

	rec := doReq(t, h, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "bgrun_registry_starts_total") {
		t.Fatalf("metrics output missing registry counters")
	}
}

func TestMetricsEndpointAbsentByDefault(t *testing.T) {
	h := setupRouter(t, "/api")
	if rec := doReq(t, h, http.MethodGet, "/metrics", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
