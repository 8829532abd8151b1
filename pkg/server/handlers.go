package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/agenticmem/agenticmem-go/pkg/core"
	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

type addMemoryRequest struct {
	Content    string                 `json:"content"`
	UserID     string                 `json:"user_id"`
	AgentID    string                 `json:"agent_id"`
	RunID      string                 `json:"run_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	MemoryType string                 `json:"memory_type"`
	Infer      bool                   `json:"infer"`
}

type searchMemoriesRequest struct {
	Query    string                 `json:"query"`
	UserID   string                 `json:"user_id"`
	AgentID  string                 `json:"agent_id"`
	Limit    int                    `json:"limit"`
	MinScore float64                `json:"min_score"`
	Filters  map[string]interface{} `json:"filters"`
}

type updateMemoryRequest struct {
	Content string `json:"content"`
	UserID  string `json:"user_id"`
	AgentID string `json:"agent_id"`
}

func (s *Server) handleAddMemory(c echo.Context) error {
	var req addMemoryRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, err)
	}
	if req.Content == "" {
		return jsonError(c, http.StatusBadRequest, errors.New("content is required"))
	}
	if req.UserID == "" {
		return jsonError(c, http.StatusBadRequest, errors.New("user_id is required"))
	}

	opts := []core.AddOption{
		core.WithUserID(req.UserID),
		core.WithAgentID(req.AgentID),
		core.WithInfer(req.Infer),
	}
	if req.RunID != "" {
		opts = append(opts, core.WithRunID(req.RunID))
	}
	if req.Metadata != nil {
		opts = append(opts, core.WithMetadata(req.Metadata))
	}
	if req.MemoryType != "" {
		opts = append(opts, core.WithMemoryType(req.MemoryType))
	}

	ctx := c.Request().Context()

	// Infer surfaces the full pipeline result so callers can see
	// which facts were stored, updated, or discarded as truisms.
	if req.Infer && s.client.Intelligence() != nil {
		result, err := s.client.IntelligentAdd(ctx, req.Content, opts...)
		if err != nil {
			return jsonError(c, http.StatusInternalServerError, err)
		}
		return c.JSON(http.StatusCreated, result)
	}

	memory, err := s.client.Add(ctx, req.Content, opts...)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusCreated, memory)
}

func (s *Server) handleSearchMemories(c echo.Context) error {
	var req searchMemoriesRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, err)
	}
	if req.Query == "" {
		return jsonError(c, http.StatusBadRequest, errors.New("query is required"))
	}

	opts := []core.SearchOption{
		core.WithUserIDForSearch(req.UserID),
		core.WithAgentIDForSearch(req.AgentID),
	}
	if req.Limit > 0 {
		opts = append(opts, core.WithLimit(req.Limit))
	}
	if req.MinScore > 0 {
		opts = append(opts, core.WithMinScore(req.MinScore))
	}
	if req.Filters != nil {
		opts = append(opts, core.WithFilters(req.Filters))
	}

	memories, err := s.client.Search(c.Request().Context(), req.Query, opts...)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"results": memories})
}

func (s *Server) handleListMemories(c echo.Context) error {
	opts := []core.GetAllOption{
		core.WithUserIDForGetAll(c.QueryParam("user_id")),
		core.WithAgentIDForGetAll(c.QueryParam("agent_id")),
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 {
		opts = append(opts, core.WithLimitForGetAll(limit))
	}
	if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil && offset > 0 {
		opts = append(opts, core.WithOffset(offset))
	}

	memories, err := s.client.GetAll(c.Request().Context(), opts...)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"memories": memories})
}

func (s *Server) handleGetMemory(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, errors.New("invalid memory id"))
	}

	memory, err := s.client.Get(c.Request().Context(), id,
		core.WithUserIDForGet(c.QueryParam("user_id")),
		core.WithAgentIDForGet(c.QueryParam("agent_id")),
	)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, err)
		}
		return jsonError(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, memory)
}

func (s *Server) handleUpdateMemory(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, errors.New("invalid memory id"))
	}

	var req updateMemoryRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, err)
	}
	if req.Content == "" {
		return jsonError(c, http.StatusBadRequest, errors.New("content is required"))
	}

	memory, err := s.client.Update(c.Request().Context(), id, req.Content,
		core.WithUserIDForUpdate(req.UserID),
		core.WithAgentIDForUpdate(req.AgentID),
	)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, err)
		}
		return jsonError(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, memory)
}

func (s *Server) handleDeleteMemory(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, errors.New("invalid memory id"))
	}

	err = s.client.Delete(c.Request().Context(), id,
		core.WithUserIDForDelete(c.QueryParam("user_id")),
		core.WithAgentIDForDelete(c.QueryParam("agent_id")),
	)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, err)
		}
		return jsonError(c, http.StatusInternalServerError, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDeleteAllMemories(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		// Wiping the whole store over HTTP takes an explicit scope.
		return jsonError(c, http.StatusBadRequest, errors.New("user_id is required"))
	}

	err := s.client.DeleteAll(c.Request().Context(),
		core.WithUserIDForDeleteAll(userID),
		core.WithAgentIDForDeleteAll(c.QueryParam("agent_id")),
	)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, err)
	}
	return c.NoContent(http.StatusNoContent)
}
