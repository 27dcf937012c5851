package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avellaud/pictobank/internal/middleware"
	"github.com/avellaud/pictobank/internal/models"
	"github.com/avellaud/pictobank/internal/services"
	apperrors "github.com/avellaud/pictobank/pkg/errors"
	"github.com/avellaud/pictobank/pkg/response"
)

// ArtifactHandler exposes tree and list documents.
type ArtifactHandler struct {
	artifacts *services.ArtifactService
}

// NewArtifactHandler constructs the handler.
func NewArtifactHandler(artifacts *services.ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{artifacts: artifacts}
}

// List handles GET /api/artifacts/:kind.
func (h *ArtifactHandler) List(c *gin.Context) {
	listing, err := h.artifacts.List(requestContext(c), kindParam(c), middleware.Viewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, listing)
}

type upsertArtifactRequest struct {
	Name     string                 `json:"name" binding:"required"`
	IsPublic bool                   `json:"is_public"`
	Payload  models.ArtifactPayload `json:"payload"`
}

// Upsert handles POST /api/artifacts/:kind. Saving under an existing name
// overwrites it in place.
func (h *ArtifactHandler) Upsert(c *gin.Context) {
	var body upsertArtifactRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid artifact payload"))
		return
	}

	artifact, err := h.artifacts.Upsert(
		requestContext(c),
		middleware.Viewer(c),
		kindParam(c),
		body.Name,
		body.IsPublic,
		body.Payload,
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, artifact)
}

// Get handles GET /api/artifacts/:kind/:id.
func (h *ArtifactHandler) Get(c *gin.Context) {
	artifact, err := h.artifacts.Get(requestContext(c), strings.TrimSpace(c.Param("id")), middleware.Viewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, artifact)
}

// Delete handles DELETE /api/artifacts/:kind/:id.
func (h *ArtifactHandler) Delete(c *gin.Context) {
	if err := h.artifacts.Delete(requestContext(c), strings.TrimSpace(c.Param("id")), middleware.Viewer(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func kindParam(c *gin.Context) string {
	return strings.ToLower(strings.TrimSpace(c.Param("kind")))
}
