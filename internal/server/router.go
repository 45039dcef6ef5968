package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	mng "github.com/loykin/bgrun/internal/manager"
	"github.com/loykin/bgrun/internal/metrics"
	"github.com/loykin/bgrun/internal/process"
	"github.com/loykin/bgrun/internal/status"
)

// Router provides embeddable HTTP handlers for the process registry.
// Endpoints:
//   POST {basePath}/start        body: Spec JSON
//   POST {basePath}/stop         query: name=...&scope=/abs/path
//   GET  {basePath}/status       query: scope=/abs/path
//   GET  {basePath}/logs         query: name=...&scope=/abs/path&lines=N
//   GET  {basePath}/summary      query: scope=/abs/path
// basePath may be empty or start with '/'; no trailing slash.

type Router struct {
	mgr      *mng.Manager
	basePath string
	metrics  bool
}

// Option customizes a Router.
type Option func(*Router)

// WithMetricsEndpoint mounts the Prometheus handler at /metrics, outside
// basePath. Collectors must be registered separately (metrics.Register).
func WithMetricsEndpoint() Option {
	return func(r *Router) { r.metrics = true }
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/abc" results in /abc/start, /abc/stop, /abc/status.
func NewRouter(mgr *mng.Manager, basePath string, opts ...Option) *Router {
	r := &Router{mgr: mgr, basePath: normalizeBasePath(basePath)}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/start", r.handleStart)
	group.POST("/stop", r.handleStop)
	group.GET("/status", r.handleStatus)
	group.GET("/logs", r.handleLogs)
	group.GET("/summary", r.handleSummary)
	if r.metrics {
		g.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// The returned server can be shut down with its Close or Shutdown methods.
func NewServer(addr, basePath string, mgr *mng.Manager, opts ...Option) (*http.Server, error) {
	r := NewRouter(mgr, basePath, opts...)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type logsResp struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (r *Router) handleStart(c *gin.Context) {
	var spec process.Spec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if !process.IsSafeName(spec.Name) {
		c.JSON(http.StatusBadRequest, errorResp{Error: "invalid spec.name: allowed [A-Za-z0-9._-], no path separators"})
		return
	}
	if !safeScopePath(spec.Scope) {
		c.JSON(http.StatusBadRequest, errorResp{Error: "invalid scope: must be absolute path without traversal"})
		return
	}
	if !safeScopePath(spec.WorkDir) {
		c.JSON(http.StatusBadRequest, errorResp{Error: "invalid work_dir: must be absolute path without traversal"})
		return
	}
	rec, err := r.mgr.Start(c.Request.Context(), spec)
	if err != nil {
		c.JSON(statusCodeFor(err), errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (r *Router) handleStop(c *gin.Context) {
	name := c.Query("name")
	scope := c.Query("scope")
	if !process.IsSafeName(name) {
		c.JSON(http.StatusBadRequest, errorResp{Error: "name query param required"})
		return
	}
	if scope == "" || !safeScopePath(scope) {
		c.JSON(http.StatusBadRequest, errorResp{Error: "scope query param required: absolute path without traversal"})
		return
	}
	if err := r.mgr.Stop(c.Request.Context(), name, scope); err != nil {
		c.JSON(statusCodeFor(err), errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStatus(c *gin.Context) {
	scope := c.Query("scope")
	if scope == "" || !safeScopePath(scope) {
		c.JSON(http.StatusBadRequest, errorResp{Error: "scope query param required: absolute path without traversal"})
		return
	}
	sts, err := r.mgr.List(c.Request.Context(), scope)
	if err != nil {
		c.JSON(statusCodeFor(err), errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, sts)
}

func (r *Router) handleLogs(c *gin.Context) {
	name := c.Query("name")
	scope := c.Query("scope")
	if !process.IsSafeName(name) {
		c.JSON(http.StatusBadRequest, errorResp{Error: "name query param required"})
		return
	}
	if scope == "" || !safeScopePath(scope) {
		c.JSON(http.StatusBadRequest, errorResp{Error: "scope query param required: absolute path without traversal"})
		return
	}
	lines := 0
	if s := c.Query("lines"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorResp{Error: "lines must be a non-negative integer"})
			return
		}
		lines = n
	}
	content, err := r.mgr.Logs(c.Request.Context(), name, scope, lines)
	if err != nil {
		c.JSON(statusCodeFor(err), errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, logsResp{Name: name, Content: content})
}

func (r *Router) handleSummary(c *gin.Context) {
	scope := c.Query("scope")
	if scope == "" || !safeScopePath(scope) {
		c.JSON(http.StatusBadRequest, errorResp{Error: "scope query param required: absolute path without traversal"})
		return
	}
	s, err := status.NewProjector(r.mgr).Summary(c.Request.Context(), scope)
	if err != nil {
		c.JSON(statusCodeFor(err), errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, s)
}

func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, mng.ErrNotFound), errors.Is(err, mng.ErrLogNotFound):
		return http.StatusNotFound
	case errors.Is(err, mng.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, mng.ErrSpawnFailed):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
