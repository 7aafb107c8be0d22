package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	trafficdomain "github.com/smallbiznis/sitebuilder/internal/traffic/domain"
)

func (s *Server) GetTrafficSummary(c *gin.Context) {
	days, err := parseOptionalInt(c.Query("days"))
	if err != nil {
		AbortWithError(c, trafficdomain.ErrInvalidRange)
		return
	}

	resp, err := s.trafficSvc.Summary(c.Request.Context(), trafficdomain.SummaryRequest{Days: days})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
