package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/agenticmem/agenticmem-go/pkg/intent"
)

type createIntentRequest struct {
	UserID        string                 `json:"user_id"`
	AgentID       string                 `json:"agent_id"`
	Description   string                 `json:"description"`
	Action        string                 `json:"action"`
	Payload       map[string]interface{} `json:"payload"`
	Schedule      string                 `json:"schedule"`
	TriggerAt     *time.Time             `json:"trigger_at"`
	Condition     string                 `json:"condition"`
	Gate          string                 `json:"gate"`
	MaxExecutions int                    `json:"max_executions"`
}

// requireIntents rejects intent routes when no intent store is wired.
func (s *Server) requireIntents(c echo.Context) error {
	if s.intents == nil {
		return jsonError(c, http.StatusServiceUnavailable,
			errors.New("scheduled intents are not enabled"))
	}
	return nil
}

func (s *Server) handleCreateIntent(c echo.Context) error {
	if err := s.requireIntents(c); err != nil {
		return err
	}

	var req createIntentRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, err)
	}
	if req.UserID == "" {
		return jsonError(c, http.StatusBadRequest, errors.New("user_id is required"))
	}
	if !intent.ValidAction(intent.Action(req.Action)) {
		return jsonError(c, http.StatusBadRequest, errors.New("action must be recall, extract, or notify"))
	}

	it := &intent.ScheduledIntent{
		UserID:        req.UserID,
		AgentID:       req.AgentID,
		Description:   req.Description,
		Action:        intent.Action(req.Action),
		Payload:       req.Payload,
		Schedule:      req.Schedule,
		TriggerAt:     req.TriggerAt,
		Condition:     req.Condition,
		Gate:          req.Gate,
		MaxExecutions: req.MaxExecutions,
		Status:        intent.StatusPending,
	}

	// Scheduled intents go live immediately with their first slot
	// computed; unscheduled ones stay pending.
	nextRun, err := intent.ComputeNextRun(it, time.Now().UTC())
	if err != nil {
		return jsonError(c, http.StatusBadRequest, err)
	}
	if nextRun != nil {
		it.Status = intent.StatusActive
		it.NextRunAt = nextRun
	}

	if err := s.intents.CreateIntent(c.Request().Context(), it); err != nil {
		return jsonError(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusCreated, it)
}

func (s *Server) handleListIntents(c echo.Context) error {
	if err := s.requireIntents(c); err != nil {
		return err
	}

	opts := &intent.ListOptions{
		UserID:  c.QueryParam("user_id"),
		AgentID: c.QueryParam("agent_id"),
		Status:  intent.Status(c.QueryParam("status")),
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil && offset > 0 {
		opts.Offset = offset
	}

	intents, err := s.intents.ListIntents(c.Request().Context(), opts)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"intents": intents})
}

func (s *Server) handleGetIntent(c echo.Context) error {
	if err := s.requireIntents(c); err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, errors.New("invalid intent id"))
	}

	it, err := s.intents.GetIntent(c.Request().Context(), id, c.QueryParam("user_id"))
	if err != nil {
		if errors.Is(err, intent.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, err)
		}
		return jsonError(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, it)
}

func (s *Server) handleDeleteIntent(c echo.Context) error {
	if err := s.requireIntents(c); err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, errors.New("invalid intent id"))
	}

	if err := s.intents.DeleteIntent(c.Request().Context(), id, c.QueryParam("user_id")); err != nil {
		if errors.Is(err, intent.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, err)
		}
		return jsonError(c, http.StatusInternalServerError, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handlePauseIntent(c echo.Context) error {
	if err := s.requireIntents(c); err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, errors.New("invalid intent id"))
	}

	ctx := c.Request().Context()
	userID := c.QueryParam("user_id")

	if err := s.intents.UpdateIntentStatus(ctx, id, userID, intent.StatusPaused); err != nil {
		if errors.Is(err, intent.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, err)
		}
		return jsonError(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": string(intent.StatusPaused)})
}

func (s *Server) handleResumeIntent(c echo.Context) error {
	if err := s.requireIntents(c); err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, errors.New("invalid intent id"))
	}

	ctx := c.Request().Context()
	userID := c.QueryParam("user_id")

	it, err := s.intents.GetIntent(ctx, id, userID)
	if err != nil {
		if errors.Is(err, intent.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, err)
		}
		return jsonError(c, http.StatusInternalServerError, err)
	}
	if it.Status != intent.StatusPaused {
		return jsonError(c, http.StatusConflict, errors.New("only paused intents can be resumed"))
	}

	if err := s.intents.UpdateIntentStatus(ctx, id, userID, intent.StatusActive); err != nil {
		return jsonError(c, http.StatusInternalServerError, err)
	}

	// The pause may have outlived the stored slot, recompute it.
	nextRun, err := intent.ComputeNextRun(it, time.Now().UTC())
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, err)
	}
	if err := s.intents.SetNextRun(ctx, id, nextRun); err != nil {
		return jsonError(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      string(intent.StatusActive),
		"next_run_at": nextRun,
	})
}

func (s *Server) handleListExecutions(c echo.Context) error {
	if err := s.requireIntents(c); err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, errors.New("invalid intent id"))
	}

	limit := 50
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 {
		limit = l
	}

	executions, err := s.intents.ListExecutions(c.Request().Context(), id, limit)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"executions": executions})
}
