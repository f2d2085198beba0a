// Package server provides the Gin-based REST API of sserver-status.
//
//	Public:        login, auth status, server list (redacted), results,
//	               event stream, health
//	Session-gated: server mutations, settings
package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/RainbowCandyX/sserver-status/internal/checker"
	"github.com/RainbowCandyX/sserver-status/internal/config"
	"github.com/RainbowCandyX/sserver-status/internal/events"
	"github.com/RainbowCandyX/sserver-status/internal/models"
	"github.com/RainbowCandyX/sserver-status/internal/storage"
	"github.com/RainbowCandyX/sserver-status/internal/store"
	"github.com/RainbowCandyX/sserver-status/internal/sysinfo"
)

// Server bundles the injected collaborators behind the HTTP surface.
type Server struct {
	cfg        *config.Config
	configPath string
	store      *store.Store
	db         *storage.Storage
	bus        *events.Bus
	checker    *checker.Checker
}

// New creates the API server. All state is injected; nothing is process-global.
func New(cfg *config.Config, configPath string, st *store.Store, db *storage.Storage, bus *events.Bus, chk *checker.Checker) *Server {
	return &Server{
		cfg:        cfg,
		configPath: configPath,
		store:      st,
		db:         db,
		bus:        bus,
		checker:    chk,
	}
}

// Register wires all routes onto the engine.
func (s *Server) Register(r *gin.Engine) {
	api := r.Group("/api")

	api.POST("/auth/login", s.handleLogin)
	api.POST("/auth/logout", s.handleLogout)
	api.GET("/auth/status", s.handleAuthStatus)

	api.GET("/servers", s.handleListServers)
	api.POST("/servers", s.authRequired(), s.handleCreateServer)
	api.PUT("/servers/:id", s.authRequired(), s.handleUpdateServer)
	api.DELETE("/servers/:id", s.authRequired(), s.handleDeleteServer)
	api.POST("/servers/:id/check", s.handleTriggerCheck)

	api.GET("/results/:id", s.handleHistory)

	api.GET("/settings", s.authRequired(), s.handleGetSettings)
	api.PUT("/settings", s.authRequired(), s.handleUpdateSettings)

	api.GET("/events", s.handleEvents)
	api.GET("/ws", s.handleWebSocket)

	api.GET("/health", s.handleHealth)
}

// ── Servers ──────────────────────────────────────────────────────────────────

type serverRequest struct {
	Name     string   `json:"name"`
	Host     string   `json:"host"`
	Port     uint16   `json:"port"`
	Password string   `json:"password"`
	Method   string   `json:"method"`
	Enabled  *bool    `json:"enabled"`
	Tags     []string `json:"tags"`
}

func (r *serverRequest) toServer(id uuid.UUID) models.Server {
	method := r.Method
	if method == "" {
		method = "aes-256-gcm"
	}
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return models.Server{
		ID:       id,
		Name:     r.Name,
		Host:     r.Host,
		Port:     r.Port,
		Password: r.Password,
		Method:   method,
		Enabled:  enabled,
		Tags:     tags,
	}
}

// handleListServers returns derived statuses for all servers. Authenticated
// callers get the full view; everyone else gets the redaction view.
func (s *Server) handleListServers(c *gin.Context) {
	statuses := s.store.ComputeStatuses()

	if s.isAuthenticated(c) {
		c.JSON(http.StatusOK, statuses)
		return
	}
	public := make([]models.PublicServerStatus, 0, len(statuses))
	for i := range statuses {
		public = append(public, statuses[i].Public())
	}
	c.JSON(http.StatusOK, public)
}

func (s *Server) handleCreateServer(c *gin.Context) {
	var req serverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" || req.Host == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, host, and password are required"})
		return
	}

	srv := req.toServer(uuid.New())
	s.store.UpsertServer(srv)
	s.bus.Publish(models.Event{Type: models.EventServerUpdated, Server: &srv})
	s.persistConfig()

	// first check immediately, off the request path
	if srv.Enabled {
		go s.runCheck(srv)
	}

	c.JSON(http.StatusOK, srv)
}

func (s *Server) handleUpdateServer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid server id"})
		return
	}
	if _, ok := s.store.GetServer(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
		return
	}

	var req serverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	srv := req.toServer(id) // identity preserved
	s.store.UpsertServer(srv)
	s.bus.Publish(models.Event{Type: models.EventServerUpdated, Server: &srv})
	s.persistConfig()

	c.JSON(http.StatusOK, srv)
}

func (s *Server) handleDeleteServer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid server id"})
		return
	}
	if !s.store.RemoveServer(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
		return
	}

	s.bus.Publish(models.Event{Type: models.EventServerRemoved, ServerID: &id})
	s.persistConfig()

	c.Status(http.StatusNoContent)
}

// ── Results ──────────────────────────────────────────────────────────────────

// handleTriggerCheck runs the pipeline for one server on demand and returns
// the fresh result, after the usual durable-write / cache / publish sequence.
func (s *Server) handleTriggerCheck(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid server id"})
		return
	}
	srv, ok := s.store.GetServer(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
		return
	}

	c.JSON(http.StatusOK, s.runCheck(srv))
}

func (s *Server) handleHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid server id"})
		return
	}
	if _, ok := s.store.GetServer(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
		return
	}

	limit := store.MaxHistory
	if raw := c.Query("limit"); raw != "" {
		if v, err := parsePositive(raw); err == nil {
			limit = v
		}
	}
	c.JSON(http.StatusOK, s.store.History(id, limit))
}

// ── Settings ─────────────────────────────────────────────────────────────────

type settingsResponse struct {
	CheckIntervalSecs int `json:"check_interval_secs"`
}

func (s *Server) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, settingsResponse{CheckIntervalSecs: s.store.Interval()})
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var req struct {
		CheckIntervalSecs *int `json:"check_interval_secs"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.CheckIntervalSecs != nil {
		if *req.CheckIntervalSecs < config.MinCheckInterval {
			c.JSON(http.StatusBadRequest, gin.H{"error": "check_interval_secs must be >= 5"})
			return
		}
		s.store.SetInterval(*req.CheckIntervalSecs)
		s.persistConfig()
	}

	c.JSON(http.StatusOK, settingsResponse{CheckIntervalSecs: s.store.Interval()})
}

// ── Health ───────────────────────────────────────────────────────────────────

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
		"system": sysinfo.Collect(),
	})
}

// ── Shared plumbing ──────────────────────────────────────────────────────────

// runCheck executes the pipeline for one server and applies the dual-write
// discipline: durable insert (best effort), cache update, event publish.
func (s *Server) runCheck(srv models.Server) models.CheckResult {
	result := s.checker.Check(srv)
	if err := s.db.Insert(result); err != nil {
		log.Printf("[api] durable insert failed: %v", err)
	}
	s.store.RecordResult(result)
	s.bus.Publish(models.Event{Type: models.EventCheckComplete, Result: &result})
	return result
}

func (s *Server) persistConfig() {
	if s.configPath == "" {
		return
	}
	if err := config.Persist(s.configPath, s.cfg, s.store.Servers(), s.store.Interval()); err != nil {
		log.Printf("[api] failed to persist config: %v", err)
	}
}

func parsePositive(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, errors.New("limit must be positive")
	}
	return v, nil
}
