package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/justyntemme/booklist/internal/auth"
	"github.com/justyntemme/booklist/internal/display"
	"github.com/justyntemme/booklist/internal/models"
	"github.com/justyntemme/booklist/internal/search"
)

// SessionHeader groups requests whose searches supersede each other
const SessionHeader = "X-Search-Session"

// searchTimeout bounds a single search request end to end
const searchTimeout = 30 * time.Second

// HistoryStore is the part of storage the handlers need
type HistoryStore interface {
	ListHistory(userID string, limit int) ([]models.HistoryEntry, error)
	ClearHistory(userID string) (int64, error)
}

// Handler contains all HTTP handlers
type Handler struct {
	Sessions *search.Sessions
	History  HistoryStore
	Log      zerolog.Logger
}

// NewHandler creates a new handler instance
func NewHandler(sessions *search.Sessions, history HistoryStore, log zerolog.Logger) *Handler {
	return &Handler{
		Sessions: sessions,
		History:  history,
		Log:      log.With().Str("component", "api").Logger(),
	}
}

// Routes registers the API on r
func (h *Handler) Routes(r gin.IRouter, tokens *auth.Tokens) {
	r.GET("/health", h.HealthCheck)
	r.StaticFileFS(display.PlaceholderCover, display.PlaceholderFile, http.FS(display.Assets))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("", h.APIInfo)

		// Search is open; a token only scopes history
		searchGroup := apiGroup.Group("")
		searchGroup.Use(tokens.OptionalAuthMiddleware())
		searchGroup.GET("/search", h.Search)

		protected := apiGroup.Group("")
		protected.Use(tokens.AuthMiddleware())
		{
			protected.GET("/history", h.ListHistory)
			protected.DELETE("/history", h.ClearHistory)
		}
	}
}

// Search runs a volumes search and returns the records in API order
func (h *Handler) Search(c *gin.Context) {
	term := c.Query("q")
	mode, err := models.ParseSearchMode(c.Query("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be one of title, author, subject"})
		return
	}

	searcher := h.Sessions.Get(auth.GetUserID(c), c.GetHeader(SessionHeader))

	ctx, cancel := context.WithTimeout(c.Request.Context(), searchTimeout)
	defer cancel()

	result, err := searcher.Search(ctx, term, mode)
	if err != nil {
		if errors.Is(err, search.ErrSuperseded) {
			c.JSON(http.StatusConflict, gin.H{"error": "Search superseded by a newer request", "id": result.ID})
			return
		}
		h.Log.Warn().Err(err).Msg("Search did not complete")
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Search did not complete"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":            result.ID,
		"term":          result.Term,
		"mode":          result.Mode.String(),
		"count":         len(result.Books),
		"empty_message": string(result.Empty),
		"books":         result.Books,
		"items":         display.ListItems(result.Books),
	})
}

// ListHistory returns the caller's recent searches
func (h *Handler) ListHistory(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries, err := h.History.ListHistory(auth.GetUserID(c), limit)
	if err != nil {
		h.Log.Error().Err(err).Msg("Failed to list history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": entries, "count": len(entries)})
}

// ClearHistory deletes the caller's search history
func (h *Handler) ClearHistory(c *gin.Context) {
	removed, err := h.History.ClearHistory(auth.GetUserID(c))
	if err != nil {
		h.Log.Error().Err(err).Msg("Failed to clear history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "History cleared", "removed": removed})
}

// HealthCheck returns server health status
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now()})
}

// APIInfo lists the available endpoints
func (h *Handler) APIInfo(c *gin.Context) {
	endpoints := []gin.H{
		{"method": "GET", "path": "/health", "description": "Health check"},
		{"method": "GET", "path": "/api", "description": "API documentation"},
		{"method": "GET", "path": display.PlaceholderCover, "description": "Placeholder cover image"},
		{"method": "GET", "path": "/api/search", "description": "Search Google Books volumes", "query": "q, mode (title/author/subject)", "header": SessionHeader},
		{"method": "GET", "path": "/api/history", "description": "Recent searches", "query": "limit", "auth": true},
		{"method": "DELETE", "path": "/api/history", "description": "Clear search history", "auth": true},
	}

	c.JSON(http.StatusOK, gin.H{
		"name":        "Booklist API",
		"version":     "1.0.0",
		"description": "Google Books search for web and terminal clients",
		"endpoints":   endpoints,
	})
}
