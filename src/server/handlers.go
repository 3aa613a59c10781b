package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type addAssetRequest struct {
	Symbol string `json:"symbol"`
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *DashboardServer) getHealth(c *gin.Context) {
	state := s.Tracker.Snapshot()

	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"connections":       s.connections.Load(),
		"watched":           len(state.Symbols),
		"broadcasting":      s.LatestState() != nil,
		"last_refreshed_at": state.LastRefreshedAt,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"refresh_interval_ms": s.Config.Ticker.RefreshIntervalMs,
		"known_assets":        s.Catalog.All(),
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getAssets(c *gin.Context) {
	c.JSON(http.StatusOK, s.Tracker.Snapshot())
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getAsset(c *gin.Context) {
	view, ok := s.Tracker.Asset(c.Param("symbol"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset is not watched"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postAsset(c *gin.Context) {
	var req addAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol must be a non-empty string"})
		return
	}

	if !s.Catalog.Contains(symbol) {
		s.Logger.Warning("Adding %s, which is not a known asset", symbol)
	}

	if s.Tracker.AddAsset(symbol) {
		view, _ := s.Tracker.Asset(symbol)
		c.JSON(http.StatusCreated, view)
		return
	}

	// Already watched is a no-op
	if view, ok := s.Tracker.Asset(symbol); ok {
		c.JSON(http.StatusOK, view)
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tracker is not accepting assets"})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) deleteAsset(c *gin.Context) {
	s.Tracker.RemoveAsset(c.Param("symbol"))
	c.Status(http.StatusNoContent)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getKnownAssets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"assets": s.Catalog.Filter(c.Query("q")),
	})
}
