package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gatewaydomain "github.com/smallbiznis/sitebuilder/internal/gateway/domain"
)

// ListGateways never exposes stored credentials, only whether they are set.
func (s *Server) ListGateways(c *gin.Context) {
	resp, err := s.gatewaySvc.ListConfigs(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertGateway(c *gin.Context) {
	var req gatewaydomain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.gatewaySvc.UpsertConfig(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ActivateGateway(c *gin.Context) {
	resp, err := s.gatewaySvc.Activate(c.Request.Context(), strings.TrimSpace(c.Param("gateway")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeactivateGateway(c *gin.Context) {
	resp, err := s.gatewaySvc.Deactivate(c.Request.Context(), strings.TrimSpace(c.Param("gateway")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
