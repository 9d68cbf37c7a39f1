// Package dashboard serves a read-only status view of a machine over HTTP.
package dashboard

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opencontainers/go-digest"

	"github.com/codebymarcos/vbox/internal/vps"
)

//go:embed index.html
var indexHTML []byte

const shutdownTimeout = 5 * time.Second

// Memory is the body of GET /api/memory.
type Memory struct {
	DiskBlocksAllocated int    `json:"disk_blocks_allocated"`
	TotalDataSize       int    `json:"total_data_size"`
	ImageDigest         string `json:"image_digest,omitempty"`
	VFSDirectories      int    `json:"vfs_directories"`
	VFSFiles            int    `json:"vfs_files"`
	TotalFileData       int    `json:"total_file_data"`
}

// SchedulerInfo is the body of GET /api/scheduler.
type SchedulerInfo struct {
	Workers int `json:"workers"`
	Queued  int `json:"queued"`
}

// Server exposes one environment and, optionally, the vps registry.
type Server struct {
	env     *vps.Env
	manager *vps.Manager
	logger  *slog.Logger
	engine  *gin.Engine
}

// New builds the router. manager may be nil.
func New(env *vps.Env, manager *vps.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		env:     env,
		manager: manager,
		logger:  logger,
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests)

	r.GET("/", s.index)
	api := r.Group("/api")
	{
		api.GET("/processes", s.processes)
		api.GET("/memory", s.memory)
		api.GET("/scheduler", s.scheduler)
		api.GET("/vps", s.instances)
	}

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("dashboard request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

func (s *Server) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) processes(c *gin.Context) {
	c.JSON(http.StatusOK, s.env.Scheduler.ListProcesses())
}

func (s *Server) scheduler(c *gin.Context) {
	c.JSON(http.StatusOK, SchedulerInfo{
		Workers: s.env.Scheduler.Workers(),
		Queued:  s.env.Scheduler.Len(),
	})
}

func (s *Server) memory(c *gin.Context) {
	st := s.env.FS.Stats()
	m := Memory{
		DiskBlocksAllocated: s.env.Disk.AllocatedCount(),
		TotalDataSize:       s.env.Disk.TotalBytes(),
		VFSDirectories:      st.Directories,
		VFSFiles:            st.Files,
		TotalFileData:       st.Bytes,
	}

	if dg, ok := s.env.Disk.(interface{ Digest() (digest.Digest, error) }); ok {
		sum, err := dg.Digest()
		if err != nil {
			s.logger.Warn("failed to digest disk image", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to digest disk image"})
			return
		}
		m.ImageDigest = sum.String()
	}

	c.JSON(http.StatusOK, m)
}

func (s *Server) instances(c *gin.Context) {
	if s.manager == nil {
		c.JSON(http.StatusOK, []vps.Config{})
		return
	}
	c.JSON(http.StatusOK, s.manager.List())
}
