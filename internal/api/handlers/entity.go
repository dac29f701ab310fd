package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/baseplate/querykit/internal/api/middleware"
	"github.com/baseplate/querykit/internal/core/entity"
	"github.com/baseplate/querykit/internal/core/validation"
)

type EntityHandler struct {
	entityService *entity.Service
}

func NewEntityHandler(entityService *entity.Service) *EntityHandler {
	return &EntityHandler{entityService: entityService}
}

func (h *EntityHandler) Create(c *gin.Context) {
	teamID, ok := middleware.GetTeamID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "team id required"})
		return
	}

	var req entity.CreateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ent, err := h.entityService.Create(c.Request.Context(), teamID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, ent)
}

// List runs a query given as query string parameters.
func (h *EntityHandler) List(c *gin.Context) {
	teamID, ok := middleware.GetTeamID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "team id required"})
		return
	}

	var q entity.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.entityService.List(c.Request.Context(), teamID, &q)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *EntityHandler) Search(c *gin.Context) {
	teamID, ok := middleware.GetTeamID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "team id required"})
		return
	}

	var req entity.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.entityService.Search(c.Request.Context(), teamID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *EntityHandler) Get(c *gin.Context) {
	teamID, id, ok := h.target(c)
	if !ok {
		return
	}

	ent, err := h.entityService.Get(c.Request.Context(), teamID, id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ent)
}

func (h *EntityHandler) Update(c *gin.Context) {
	teamID, id, ok := h.target(c)
	if !ok {
		return
	}

	var req entity.UpdateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ent, err := h.entityService.Update(c.Request.Context(), teamID, id, &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ent)
}

func (h *EntityHandler) Delete(c *gin.Context) {
	teamID, id, ok := h.target(c)
	if !ok {
		return
	}

	if err := h.entityService.Delete(c.Request.Context(), teamID, id); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *EntityHandler) target(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	teamID, ok := middleware.GetTeamID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "team id required"})
		return uuid.Nil, uuid.Nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity id"})
		return uuid.Nil, uuid.Nil, false
	}

	return teamID, id, true
}

func (h *EntityHandler) fail(c *gin.Context, err error) {
	switch {
	case validation.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": validation.GetValidationErrors(err)})
	case errors.Is(err, entity.ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
