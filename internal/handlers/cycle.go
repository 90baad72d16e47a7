package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/curricula-backend/internal/middleware"
	"github.com/yungbote/curricula-backend/internal/observability"
	"github.com/yungbote/curricula-backend/internal/platform/logger"
	"github.com/yungbote/curricula-backend/internal/repos"
)

type CycleHandler struct {
	log       *logger.Logger
	cycleRepo repos.GenerationCycleRepo
	latency   *observability.LatencyRecorder
}

func NewCycleHandler(log *logger.Logger, cycleRepo repos.GenerationCycleRepo, latency *observability.LatencyRecorder) *CycleHandler {
	return &CycleHandler{
		log:       log.With("handler", "CycleHandler"),
		cycleRepo: cycleRepo,
		latency:   latency,
	}
}

func (h *CycleHandler) Get(c *gin.Context) {
	userID := middleware.UserID(c)
	cycleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_cycle_id", err)
		return
	}
	cycle, err := h.cycleRepo.GetByID(c.Request.Context(), nil, cycleID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "load_cycle_failed", err)
		return
	}
	if cycle == nil || cycle.UserID != userID {
		RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}
	RespondOK(c, gin.H{"cycle": cycle})
}

// Latencies reports the most recent generation duration per module label.
func (h *CycleHandler) Latencies(c *gin.Context) {
	snapshot := h.latency.Snapshot()
	out := make(map[string]string, len(snapshot))
	for label, d := range snapshot {
		out[label] = d.String()
	}
	RespondOK(c, gin.H{"latencies": out})
}
