package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obstracing "github.com/smallbiznis/sitebuilder/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/sitebuilder/internal/order/domain"
	tenantdomain "github.com/smallbiznis/sitebuilder/internal/tenant/domain"
	"go.uber.org/zap"
)

func (s *Server) CreateOrder(c *gin.Context) {
	var req orderdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(obstracing.OrderNumberKey, resp.Order.OrderNumber)
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// GetOrder accepts either the order id or its public order number.
func (s *Server) GetOrder(c *gin.Context) {
	resp, err := s.orderSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(obstracing.OrderNumberKey, resp.OrderNumber)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DownloadReceipt(c *gin.Context) {
	receipt, err := s.orderSvc.Receipt(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+receipt.FileName+`"`)
	c.Data(http.StatusOK, "application/pdf", receipt.Content)
}

func (s *Server) ListOrders(c *gin.Context) {
	var req orderdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Pagination = clampPagination(req.Pagination)

	resp, err := s.orderSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateOrder(c *gin.Context) {
	var req orderdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ProvisionOrder reports the provisioning result as the response body.
func (s *Server) ProvisionOrder(c *gin.Context) {
	result, err := s.orderSvc.Provision(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if !result.Success {
		status := http.StatusBadRequest
		if errors.Is(result.Err, tenantdomain.ErrSubdomainTaken) {
			status = http.StatusConflict
		}
		s.log.Warn("provisioning failed",
			zap.String("order_id", c.Param("id")),
			zap.Error(result.Err),
		)
		c.JSON(status, result)
		return
	}

	c.JSON(http.StatusOK, result)
}
