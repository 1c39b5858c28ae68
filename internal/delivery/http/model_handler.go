package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
)

// ModelHandler serves the catalog of supported generation models.
type ModelHandler struct{}

func NewModelHandler() *ModelHandler {
	return &ModelHandler{}
}

// List handles GET /api/v1/models
func (h *ModelHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"models":  domain.KnownModels(),
		"default": domain.DefaultModel,
	})
}
