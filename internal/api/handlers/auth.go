package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/baseplate/querykit/internal/api/middleware"
	"github.com/baseplate/querykit/internal/core/auth"
)

type AuthHandler struct {
	authService *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Token exchanges an API key for a bearer token.
func (h *AuthHandler) Token(c *gin.Context) {
	var req auth.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.authService.IssueToken(c.Request.Context(), req.Key)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateAPIKey mints a key for any team. It sits behind the admin key.
func (h *AuthHandler) CreateAPIKey(c *gin.Context) {
	var req auth.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.authService.CreateAPIKey(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) ListAPIKeys(c *gin.Context) {
	teamID, ok := middleware.GetTeamID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "team id required"})
		return
	}

	keys, err := h.authService.GetAPIKeys(c.Request.Context(), teamID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	if keys == nil {
		keys = []*auth.APIKey{}
	}

	c.JSON(http.StatusOK, gin.H{"api_keys": keys})
}

func (h *AuthHandler) DeleteAPIKey(c *gin.Context) {
	teamID, ok := middleware.GetTeamID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "team id required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid api key id"})
		return
	}

	if err := h.authService.DeleteAPIKey(c.Request.Context(), teamID, id); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "api key not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.Status(http.StatusNoContent)
}
