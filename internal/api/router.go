// Package api serves stored scan results over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"SmartPick/internal/logger"
	"SmartPick/internal/model"
	"SmartPick/internal/store"
)

const (
	msgNoData      = "暂无数据"
	msgServerError = "服务器错误"
	msgBadDate     = "日期格式应为 YYYYMMDD"
)

// ResultReader is the read side of the result store.
type ResultReader interface {
	LoadLatest() (*model.ScanResult, error)
	LoadByDate(date string) (*model.ScanResult, error)
	ListDates() ([]string, error)
}

// Handler serves result endpoints.
type Handler struct {
	results ResultReader
}

// NewHandler creates a Handler over results.
func NewHandler(results ResultReader) *Handler {
	return &Handler{results: results}
}

// NewRouter wires the result, health and metrics endpoints. metricsHandler may be nil.
func NewRouter(h *Handler, metricsHandler http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLog())
	r.Use(cors.Default())

	r.GET("/healthz", Health)
	r.HEAD("/healthz", Health)
	r.OPTIONS("/healthz", Health)

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/result", h.Latest)
		apiGroup.GET("/result/:date", h.ByDate)
		apiGroup.GET("/results", h.Dates)
	}
	return r
}

// Latest returns the newest result. A missing result is not an HTTP error.
func (h *Handler) Latest(c *gin.Context) {
	res, err := h.results.LoadLatest()
	switch {
	case errors.Is(err, store.ErrNoData):
		c.JSON(http.StatusOK, gin.H{"error": msgNoData})
	case err != nil:
		logger.Error("load latest result: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgServerError})
	default:
		c.JSON(http.StatusOK, res)
	}
}

// ByDate returns the result saved for :date (YYYYMMDD).
func (h *Handler) ByDate(c *gin.Context) {
	res, err := h.results.LoadByDate(c.Param("date"))
	switch {
	case errors.Is(err, store.ErrInvalidDate):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadDate})
	case errors.Is(err, store.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"error": msgNoData})
	case err != nil:
		logger.Error("load result %s: %v", c.Param("date"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgServerError})
	default:
		c.JSON(http.StatusOK, res)
	}
}

// Dates lists the days that have a result, newest first.
func (h *Handler) Dates(c *gin.Context) {
	dates, err := h.results.ListDates()
	if err != nil {
		logger.Error("list result dates: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgServerError})
		return
	}
	if dates == nil {
		dates = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

// Health answers liveness probes without caching.
func Health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	switch c.Request.Method {
	case http.MethodHead:
		c.Status(http.StatusOK)
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debug("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}
