package rest

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Checker 回報單一依賴 (DB / Redis) 是否可用
type Checker func(ctx context.Context) error

// HealthHandler 提供 /health 與 /ready
type HealthHandler struct {
	version  string
	checkers map[string]Checker
	timeout  time.Duration
}

func NewHealthHandler(version string, checkers map[string]Checker) *HealthHandler {
	return &HealthHandler{
		version:  version,
		checkers: checkers,
		timeout:  2 * time.Second,
	}
}

// Health 存活檢查，不碰任何依賴
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "go-bank-ledger",
		"version":   h.version,
		"timestamp": time.Now().UnixMilli(),
	})
}

// Ready 逐一檢查依賴，任一失敗回 503
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	checks := make(gin.H, len(names))
	for _, name := range names {
		if err := h.checkers[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	c.JSON(status, gin.H{
		"status":  state,
		"version": h.version,
		"checks":  checks,
	})
}
