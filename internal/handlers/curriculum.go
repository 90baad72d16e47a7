package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/curricula-backend/internal/curriculum"
	"github.com/yungbote/curricula-backend/internal/middleware"
	"github.com/yungbote/curricula-backend/internal/platform/logger"
	"github.com/yungbote/curricula-backend/internal/services"
)

type CurriculumHandler struct {
	log               *logger.Logger
	curriculumService services.CurriculumService
	gradingService    services.GradingService
}

func NewCurriculumHandler(log *logger.Logger, curriculumService services.CurriculumService, gradingService services.GradingService) *CurriculumHandler {
	return &CurriculumHandler{
		log:               log.With("handler", "CurriculumHandler"),
		curriculumService: curriculumService,
		gradingService:    gradingService,
	}
}

// graphStatus maps domain errors to HTTP statuses. Invariant violations are
// conflicts, not server faults.
func graphStatus(err error) (int, string) {
	var cycleErr *curriculum.CycleError
	var prereqErr *curriculum.PrerequisiteUnmetError
	switch {
	case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, curriculum.ErrNodeNotFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &cycleErr):
		return http.StatusConflict, "cycle_rejected"
	case errors.As(err, &prereqErr):
		return http.StatusConflict, "prerequisite_unmet"
	case errors.Is(err, curriculum.ErrNodeNotAvailable), errors.Is(err, curriculum.ErrActiveRemedial):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *CurriculumHandler) respondGraphError(c *gin.Context, err error) {
	status, code := graphStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error("curriculum request failed", "error", err)
	}
	RespondError(c, status, code, err)
}

func (h *CurriculumHandler) Create(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req struct {
		Topic          string `json:"topic"`
		LearnerContext string `json:"learner_context"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Topic == "" {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	session, g, err := h.curriculumService.CreateCurriculum(c.Request.Context(), userID, req.Topic, req.LearnerContext)
	if err != nil {
		h.log.Error("create curriculum failed", "topic", req.Topic, "error", err)
		RespondError(c, http.StatusBadGateway, "curriculum_design_failed", err)
		return
	}
	RespondOK(c, gin.H{"session": session, "graph": g.Snapshot()})
}

func (h *CurriculumHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)
	sessions, err := h.curriculumService.ListSessions(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_sessions_failed", err)
		return
	}
	RespondOK(c, gin.H{"sessions": sessions})
}

func (h *CurriculumHandler) Get(c *gin.Context) {
	userID := middleware.UserID(c)
	topic := c.Param("topic")
	session, g, err := h.curriculumService.GetCurriculum(c.Request.Context(), userID, topic)
	if err != nil {
		h.respondGraphError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"session":   session,
		"graph":     g.Snapshot(),
		"available": g.AvailableNodes(),
	})
}

func (h *CurriculumHandler) GetDOT(c *gin.Context) {
	userID := middleware.UserID(c)
	dot, err := h.curriculumService.GetDOT(c.Request.Context(), userID, c.Param("topic"))
	if err != nil {
		h.respondGraphError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/vnd.graphviz", []byte(dot))
}

func (h *CurriculumHandler) StartModule(c *gin.Context) {
	userID := middleware.UserID(c)
	cycle, err := h.curriculumService.StartModule(c.Request.Context(), userID, c.Param("topic"), c.Param("nodeId"))
	if err != nil {
		h.respondGraphError(c, err)
		return
	}
	RespondOK(c, gin.H{"cycle": cycle})
}

func (h *CurriculumHandler) SubmitQuiz(c *gin.Context) {
	userID := middleware.UserID(c)
	var sub services.QuizSubmission
	if err := c.ShouldBindJSON(&sub); err != nil || sub.NodeID == "" {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.gradingService.SubmitQuiz(c.Request.Context(), userID, c.Param("topic"), sub)
	if err != nil {
		h.respondGraphError(c, err)
		return
	}
	RespondOK(c, gin.H{"result": result})
}
