package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gatewaydomain "github.com/smallbiznis/sitebuilder/internal/gateway/domain"
	obstracing "github.com/smallbiznis/sitebuilder/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/sitebuilder/internal/payment/domain"
)

const (
	maxWebhookBytes   = 1 << 20
	multipartOverhead = 1 << 20
)

type paymentCallbackRequest struct {
	GatewayRef string `json:"gatewayRef"`
	Status     string `json:"status"`
	Method     string `json:"method"`
}

func (s *Server) HandlePaymentCallback(c *gin.Context) {
	var req paymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	_, err := s.paymentSvc.HandleCallback(c.Request.Context(), gatewaydomain.Callback{
		GatewayRef: strings.TrimSpace(req.GatewayRef),
		Status:     strings.TrimSpace(req.Status),
		Method:     strings.TrimSpace(req.Method),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	gateway := strings.TrimSpace(c.Param("gateway"))
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if _, err := s.paymentSvc.HandleWebhook(c.Request.Context(), gateway, payload, c.Request.Header); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ConfirmManualPayment accepts a transfer proof image for a manual bank transfer.
func (s *Server) ConfirmManualPayment(c *gin.Context) {
	maxProof := s.storefront.Get().MaxProofBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxProof+multipartOverhead)

	header, err := c.FormFile("proof")
	orderNumber := strings.TrimSpace(c.PostForm("orderNumber"))
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			AbortWithError(c, paymentdomain.ErrProofTooLarge)
		case errors.Is(err, http.ErrMissingFile):
			if orderNumber == "" {
				AbortWithError(c, paymentdomain.ErrMissingOrder)
				return
			}
			AbortWithError(c, paymentdomain.ErrMissingProof)
		default:
			AbortWithError(c, invalidRequestError())
		}
		return
	}

	file, err := header.Open()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	defer file.Close()

	payment, err := s.paymentSvc.ConfirmManualTransfer(c.Request.Context(), paymentdomain.ManualProofRequest{
		OrderNumber: orderNumber,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(obstracing.OrderNumberKey, orderNumber)
	c.JSON(http.StatusOK, gin.H{"success": true, "payment": payment})
}

func (s *Server) ListPayments(c *gin.Context) {
	var req paymentdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Pagination = clampPagination(req.Pagination)

	resp, err := s.paymentSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) VerifyPayment(c *gin.Context) {
	var req paymentdomain.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.Verify(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
