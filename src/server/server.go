package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"crypto-tracker/src/catalog"
	"crypto-tracker/src/interfaces"
	"crypto-tracker/src/logger"
	"crypto-tracker/src/models"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// -----------------------------------------------------------------------------
// DashboardServer
// -----------------------------------------------------------------------------

type DashboardServer struct {
	Config     *models.MConfig
	Logger     *logger.Logger
	Tracker    interfaces.ITrackerController
	Catalog    *catalog.Catalog
	engine     *gin.Engine
	httpServer *http.Server

	// WebSocket clients, owned by the hub goroutine
	clients     map[*Client]struct{}
	broadcast   chan *models.MTrackerState
	register    chan *Client
	unregister  chan *Client
	resend      chan *Client
	quit        chan struct{}
	stopOnce    sync.Once
	connections atomic.Int32

	// Last state pushed to clients
	latestState *models.MTrackerState
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewDashboardServer(cfg *models.MConfig, tracker interfaces.ITrackerController, known *catalog.Catalog, logger *logger.Logger) *DashboardServer {
	if strings.ToUpper(cfg.LogLevel) != "DEBUG" && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &DashboardServer{
		Config:  cfg,
		Logger:  logger,
		Tracker: tracker,
		Catalog: known,
		engine:  gin.New(),
		clients: make(map[*Client]struct{}),
		// Queue size of 256 absorbs bursts of updates
		broadcast:  make(chan *models.MTrackerState, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		resend:     make(chan *Client),
		quit:       make(chan struct{}),
	}
	s.engine.Use(gin.Recovery())

	// CORS for local dashboards
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: s.engine,
	}

	go s.handleWebsockets()
	go s.watchTracker()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *DashboardServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/config", s.getConfig)
	api.GET("/assets", s.getAssets)
	api.GET("/assets/:symbol", s.getAsset)
	api.POST("/assets", s.postAsset)
	api.DELETE("/assets/:symbol", s.deleteAsset)
	api.GET("/known-assets", s.getKnownAssets)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for httptest.
func (s *DashboardServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves HTTP until Stop is called.
func (s *DashboardServer) Start() error {
	s.Logger.Info("Starting server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.quit)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}

// -----------------------------------------------------------------------------

// watchTracker turns tracker change signals into broadcasts.
func (s *DashboardServer) watchTracker() {
	changes := s.Tracker.Changes()
	for {
		select {
		case <-changes:
			s.Broadcast(s.Tracker.Snapshot())
		case <-s.quit:
			return
		}
	}
}
