package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spigell/talent-scout/internal/logger"
	"github.com/spigell/talent-scout/internal/metrics"
	"github.com/spigell/talent-scout/internal/screening"
	"go.uber.org/zap"
)

type SessionHandler struct {
	store      *screening.Store
	controller *screening.Controller
	logger     *zap.Logger
	metrics    *metrics.Metrics
	onFinish   func(screening.Snapshot)
}

type MessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// TurnResponse is the UI boundary: the state to render and the text to display.
type TurnResponse struct {
	ID        string          `json:"id"`
	State     screening.State `json:"state"`
	Reply     string          `json:"reply"`
	Closed    bool            `json:"closed,omitempty"`
	Questions []string        `json:"questions,omitempty"`
}

// NewSessionHandler registers the conversation routes.
func NewSessionHandler(group *gin.RouterGroup, store *screening.Store, controller *screening.Controller, log *zap.Logger, m *metrics.Metrics, onFinish func(screening.Snapshot)) {
	h := &SessionHandler{
		store:      store,
		controller: controller,
		logger:     log,
		metrics:    m,
		onFinish:   onFinish,
	}

	group.POST("/sessions", h.Create)
	group.GET("/sessions", h.List)
	group.GET("/sessions/:id", h.Get)
	group.POST("/sessions/:id/messages", h.PostMessage)
	group.DELETE("/sessions/:id", h.Delete)
}

func (h *SessionHandler) Create(c *gin.Context) {
	s := h.store.Create()
	logger.WithSession(h.logger, s.ID()).Info("session started")
	if h.metrics != nil {
		h.metrics.SessionStarted()
	}

	success(c, http.StatusCreated, "session started", TurnResponse{
		ID:    s.ID(),
		State: s.State(),
		Reply: screening.GreetingMessage,
	})
}

func (h *SessionHandler) List(c *gin.Context) {
	success(c, http.StatusOK, "sessions", gin.H{"ids": h.store.IDs()})
}

func (h *SessionHandler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	success(c, http.StatusOK, "session", s.Snapshot())
}

func (h *SessionHandler) PostMessage(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "text is required", err.Error())
		return
	}

	if screening.IsExitCommand(req.Text) {
		if s.Close() {
			h.finish(s, metrics.OutcomeClosed)
		}
		snap := s.Snapshot()
		success(c, http.StatusOK, "session closed", TurnResponse{
			ID:     snap.ID,
			State:  snap.State,
			Reply:  screening.ClosingMessage,
			Closed: snap.Closed,
		})
		return
	}

	reply := h.controller.HandleInput(c.Request.Context(), s, req.Text)

	resp := TurnResponse{ID: s.ID(), State: reply.State, Reply: reply.Text}
	if reply.State.HasQuestions() && !reply.From.HasQuestions() {
		if qs := s.Snapshot().Questions; qs != nil {
			resp.Questions = qs.Questions
			h.countGeneration(qs.Source)
		}
	}

	if reply.Err != nil {
		h.countGeneration(metrics.ResultFailed)
	}

	if reply.State == screening.StateEnd && reply.From != screening.StateEnd {
		h.finish(s, metrics.OutcomeCompleted)
	}

	success(c, http.StatusOK, "ok", resp)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	if !h.store.Delete(c.Param("id")) {
		failure(c, http.StatusNotFound, "session not found", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) session(c *gin.Context) (*screening.Session, bool) {
	s, ok := h.store.Get(c.Param("id"))
	if !ok {
		failure(c, http.StatusNotFound, "session not found", nil)
	}
	return s, ok
}

func (h *SessionHandler) countGeneration(result string) {
	if h.metrics != nil {
		h.metrics.QuestionsGenerated(result)
	}
}

func (h *SessionHandler) finish(s *screening.Session, outcome string) {
	if h.metrics != nil {
		h.metrics.SessionFinished(outcome)
	}
	if h.onFinish != nil {
		h.onFinish(s.Snapshot())
	}
}
