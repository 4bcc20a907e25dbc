package server

import (
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	claimdomain "github.com/textcraft/creditgate/internal/claim/domain"
	gwdomain "github.com/textcraft/creditgate/internal/gateway/domain"
)

type createPaymentRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	ReturnURL   string  `json:"returnUrl"`
	PackageID   string  `json:"packageId"`
}

func (s *Server) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Amount <= 0 {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "amount must be positive"))
		return
	}
	if strings.TrimSpace(req.ReturnURL) == "" {
		AbortWithError(c, newValidationError("returnUrl", "invalid_return_url", "returnUrl is required"))
		return
	}

	var metadata map[string]string
	if packageID := strings.TrimSpace(req.PackageID); packageID != "" {
		metadata = map[string]string{"packageId": packageID}
	}

	resp, err := s.gateway.CreatePayment(c.Request.Context(), gwdomain.CreatePaymentRequest{
		AmountMinor: int64(math.Round(req.Amount * 100)),
		Currency:    "RUB",
		Description: req.Description,
		ReturnURL:   req.ReturnURL,
		Metadata:    metadata,
	})
	if err != nil {
		s.recordPaymentCreated(c, "error")
		AbortWithError(c, err)
		return
	}
	s.recordPaymentCreated(c, "ok")

	c.JSON(http.StatusOK, gin.H{
		"paymentId":       resp.PaymentID,
		"confirmationUrl": resp.ConfirmationURL,
	})
}

func (s *Server) CheckPayment(c *gin.Context) {
	paymentID := strings.TrimSpace(c.Param("paymentId"))
	if paymentID == "" {
		AbortWithError(c, newValidationError("paymentId", "invalid_payment_id", "paymentId is required"))
		return
	}

	status, err := s.gateway.GetStatus(c.Request.Context(), paymentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status.Status,
		"metadata": status.Metadata,
	})
}

type claimPackageRequest struct {
	PaymentID string `json:"paymentId"`
	PackageID string `json:"packageId"`
}

func (s *Server) ClaimPackage(c *gin.Context) {
	var req claimPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.claimSvc.Claim(c.Request.Context(), claimdomain.ClaimRequest{
		PaymentID: req.PaymentID,
		PackageID: req.PackageID,
	})
	if err != nil {
		s.recordClaim(c, "error")
		AbortWithError(c, err)
		return
	}
	s.recordClaim(c, "ok")

	c.JSON(http.StatusOK, gin.H{"purchasedCode": resp.Code})
}

func (s *Server) recordPaymentCreated(c *gin.Context, result string) {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordPaymentCreated(c.Request.Context(), result)
	}
}

func (s *Server) recordClaim(c *gin.Context, result string) {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordClaim(c.Request.Context(), result)
	}
}
