package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	appconfigdomain "github.com/smallbiznis/sitebuilder/internal/appconfig/domain"
)

type testEmailRequest struct {
	To string `json:"to" binding:"required"`
}

// GetPublicAppConfig serves the branding and transfer details the storefront renders.
func (s *Server) GetPublicAppConfig(c *gin.Context) {
	resp, err := s.settings.GetApp(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAppSettings(c *gin.Context) {
	resp, err := s.settings.GetApp(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateAppSettings(c *gin.Context) {
	var req appconfigdomain.UpdateAppConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settings.UpdateApp(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetEmailSettings(c *gin.Context) {
	resp, err := s.settings.GetEmail(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateEmailSettings(c *gin.Context) {
	var req appconfigdomain.UpdateEmailConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settings.UpdateEmail(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SendTestEmail(c *gin.Context) {
	var req testEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	if err := s.settings.SendTestEmail(c.Request.Context(), strings.TrimSpace(req.To)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
