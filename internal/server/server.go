// Package server exposes a Workspace over HTTP and serves the preview
// renderer page and socket.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/msalah0e/canopy/internal/editor"
	"github.com/msalah0e/canopy/internal/preview"
)

//go:embed static/preview.html
var previewPage []byte

// Config holds server configuration.
type Config struct {
	Addr           string
	Origin         string // public origin of this server
	RendererOrigin string // origin renderers connect from; defaults to Origin
	PreviewTimeout time.Duration
	Opener         preview.Opener
	Verbose        bool
}

// Server is the canopy authoring server.
type Server struct {
	cfg     Config
	ws      *editor.Workspace
	hub     *preview.Hub
	session *preview.Session
	echo    *echo.Echo

	// life outlives single requests; preview handshakes armed from a
	// handler are bound to it rather than to the request.
	life context.Context
	stop context.CancelFunc

	mu    sync.Mutex
	stats Stats
}

// Stats tracks request counts.
type Stats struct {
	TotalRequests int64            `json:"totalRequests"`
	StartedAt     time.Time        `json:"startedAt"`
	ByRoute       map[string]int64 `json:"byRoute"`
}

// New creates a server for ws and attaches a preview session to it.
func New(cfg Config, ws *editor.Workspace) *Server {
	if cfg.RendererOrigin == "" {
		cfg.RendererOrigin = cfg.Origin
	}
	if cfg.Opener == nil {
		cfg.Opener = preview.NopOpener{}
	}

	hub := preview.NewHub(cfg.RendererOrigin)
	session := preview.NewSession(preview.SessionConfig{
		URL:            cfg.Origin + "/preview",
		RendererOrigin: cfg.RendererOrigin,
		Timeout:        cfg.PreviewTimeout,
	}, cfg.Opener, hub, ws.Snapshot)
	hub.OnMessage(func(in preview.Inbound) {
		if err := session.Handle(in); err != nil {
			log.Printf("preview: ignored message: %v", err)
		}
	})
	ws.AttachPreview(session)

	life, stop := context.WithCancel(context.Background())
	s := &Server{
		life:    life,
		stop:    stop,
		cfg:     cfg,
		ws:      ws,
		hub:     hub,
		session: session,
		stats: Stats{
			StartedAt: time.Now(),
			ByRoute:   make(map[string]int64),
		},
	}
	s.echo = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Hub returns the preview hub.
func (s *Server) Hub() *preview.Hub {
	return s.hub
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(s.count)
	if s.cfg.Verbose {
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			LogMethod:  true,
			LogURI:     true,
			LogStatus:  true,
			LogLatency: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				log.Printf("%s %s → %d (%.0fms)", v.Method, v.URI, v.Status, float64(v.Latency.Microseconds())/1000)
				return nil
			},
		}))
	}

	e.GET("/healthz", s.handleHealth)
	e.GET("/preview", s.handlePreviewPage)
	e.GET("/preview/ws", echo.WrapHandler(s.hub))

	api := e.Group("/api")
	api.GET("/document", s.handleDocument)
	api.DELETE("/document", s.handleClear)
	api.POST("/drop", s.handleDrop)
	api.POST("/select", s.handleSelect)
	api.PATCH("/selection", s.handleEdit)
	api.POST("/selection/reset", s.handleReset)
	api.DELETE("/nodes/:id", s.handleDelete)
	api.GET("/catalog", s.handleCatalog)
	api.POST("/catalog", s.handleRegister)
	api.DELETE("/catalog/:type", s.handleUnregister)
	api.GET("/catalog/:type/fields", s.handleFields)
	api.GET("/code", s.handleCode)
	api.GET("/code/download", s.handleDownload)
	api.GET("/code/validate", s.handleValidate)
	api.POST("/save", s.handleSave)
	api.POST("/load", s.handleLoad)
	api.POST("/preview", s.handlePreview)
	api.POST("/preview/retry", s.handlePreviewRetry)
	api.GET("/preview/status", s.handlePreviewStatus)
	api.GET("/stats", s.handleStats)
	return e
}

func (s *Server) count(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		s.mu.Lock()
		s.stats.TotalRequests++
		s.stats.ByRoute[c.Request().Method+" "+c.Path()]++
		s.mu.Unlock()
		return err
	}
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	log.Printf("canopy listening on %s", s.cfg.Origin)
	log.Printf("  preview  %s/preview", s.cfg.Origin)
	log.Printf("  api      %s/api/document", s.cfg.Origin)

	errc := make(chan error, 1)
	go func() {
		errc <- s.echo.Start(s.cfg.Addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.stop()
	s.session.Close()
	_ = s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// PidFile returns the path to the server PID file.
func PidFile() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "canopy", "serve.pid")
}

// IsRunning checks if a server is currently running.
func IsRunning() (bool, int) {
	data, err := os.ReadFile(PidFile())
	if err != nil {
		return false, 0
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return false, 0
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, 0
	}
	if err := signalZero(proc); err == nil {
		return true, pid
	}
	// Stale PID file
	_ = os.Remove(PidFile())
	return false, 0
}

// WritePid writes the current process PID to the PID file.
func WritePid() error {
	path := PidFile()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644)
}

// RemovePid deletes the PID file.
func RemovePid() {
	_ = os.Remove(PidFile())
}
