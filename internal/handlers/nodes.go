package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avellaud/pictobank/internal/middleware"
	"github.com/avellaud/pictobank/internal/services"
	apperrors "github.com/avellaud/pictobank/pkg/errors"
	"github.com/avellaud/pictobank/pkg/response"
)

// NodeHandler exposes the hierarchical store: folder browsing, folder and
// pictogram creation, updates, deletion and raw file serving.
type NodeHandler struct {
	hierarchy *services.HierarchyService
}

// NewNodeHandler constructs the handler.
func NewNodeHandler(hierarchy *services.HierarchyService) *NodeHandler {
	return &NodeHandler{hierarchy: hierarchy}
}

// ListChildren handles GET /api/folders/:id/children.
func (h *NodeHandler) ListChildren(c *gin.Context) {
	folderID := strings.TrimSpace(c.Param("id"))
	if folderID == "" {
		response.Error(c, apperrors.NewBadRequest("folder id is required"))
		return
	}

	entries, err := h.hierarchy.ListChildren(requestContext(c), folderID, middleware.Viewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, entries)
}

// Forest handles GET /api/forest.
func (h *NodeHandler) Forest(c *gin.Context) {
	forest, err := h.hierarchy.LoadForest(requestContext(c), middleware.Viewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, forest)
}

type createFolderRequest struct {
	ParentID string `json:"parent_id" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// CreateFolder handles POST /api/folders.
func (h *NodeHandler) CreateFolder(c *gin.Context) {
	var body createFolderRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid folder payload"))
		return
	}

	folder, err := h.hierarchy.CreateFolder(requestContext(c), body.ParentID, body.Name, middleware.Viewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, folder)
}

type createPictogramRequest struct {
	FolderID string `json:"folder_id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Content  string `json:"content" binding:"required"` // base64-encoded bytes
}

// CreatePictogram handles POST /api/pictograms. Upload transport is a caller
// concern; the store receives already-read byte content.
func (h *NodeHandler) CreatePictogram(c *gin.Context) {
	var body createPictogramRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid pictogram payload"))
		return
	}

	content, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("content must be base64-encoded"))
		return
	}

	pictogram, err := h.hierarchy.CreatePictogram(requestContext(c), body.FolderID, body.Name, content, middleware.Viewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, pictogram)
}

type updatePictogramRequest struct {
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

// UpdatePictogram handles PUT /api/pictograms/:id.
func (h *NodeHandler) UpdatePictogram(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Error(c, apperrors.NewBadRequest("pictogram id is required"))
		return
	}

	var body updatePictogramRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid pictogram payload"))
		return
	}

	pictogram, err := h.hierarchy.UpdatePictogram(requestContext(c), id, services.UpdatePictogramInput{
		Description: body.Description,
		IsPublic:    body.IsPublic,
	}, middleware.Viewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, pictogram)
}

type deleteNodeRequest struct {
	ID   string `json:"id" binding:"required"`
	Kind string `json:"kind" binding:"required"`
}

// DeleteNode handles DELETE /api/nodes.
func (h *NodeHandler) DeleteNode(c *gin.Context) {
	var body deleteNodeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid delete payload"))
		return
	}

	if err := h.hierarchy.DeleteNode(requestContext(c), body.ID, body.Kind, middleware.Viewer(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// ServeFile handles GET /api/pictograms/file/*path. Hidden or missing content
// is answered with the forbidden-asset sentinel rather than an error body,
// matching what image consumers expect.
func (h *NodeHandler) ServeFile(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("path"), "/")
	if path == "" {
		response.Error(c, apperrors.NewBadRequest("file path is required"))
		return
	}

	c.File(h.hierarchy.ResolveStorePath(requestContext(c), path, middleware.Viewer(c)))
}
