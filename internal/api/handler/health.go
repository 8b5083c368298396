package handler

import (
	"net/http"

	"github.com/JMAlloway/Check-sub001/internal/api/response"
	"github.com/JMAlloway/Check-sub001/internal/cache"
	"github.com/JMAlloway/Check-sub001/internal/health"
)

// Health serves the unauthenticated status endpoint.
type Health struct {
	monitor *health.Monitor
	cache   *cache.Cache
	mode    string
}

func NewHealth(monitor *health.Monitor, c *cache.Cache, mode string) *Health {
	return &Health{monitor: monitor, cache: c, mode: mode}
}

type healthzResponse struct {
	Status       string                            `json:"status"`
	Mode         string                            `json:"mode"`
	CacheHitRate float64                           `json:"cache_hit_rate"`
	Components   map[string]health.ComponentHealth `json:"components"`
}

// Healthz godoc
//
//	@Summary		Aggregate and per-component gateway status
//	@Tags			Health
//	@Success		200 {object} healthzResponse
//	@Router			/healthz [get]
func (h *Health) Healthz(w http.ResponseWriter, _ *http.Request) {
	snap := h.monitor.Snapshot()
	response.WriteJSON(w, http.StatusOK, healthzResponse{
		Status:       snap.Status,
		Mode:         h.mode,
		CacheHitRate: h.cache.HitRate(),
		Components:   snap.Components,
	})
}
