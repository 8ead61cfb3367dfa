package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/weave"
	"github.com/kode4food/weave/pkg/api"
)

const statusHealthy = "healthy"

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service: weave.Name,
		Version: weave.Version,
		Status:  statusHealthy,
	})
}
