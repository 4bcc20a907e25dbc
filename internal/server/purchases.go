package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	purchasedomain "github.com/textcraft/creditgate/internal/purchase/domain"
)

type startPurchaseRequest struct {
	PackageID string `json:"packageId"`
	ReturnURL string `json:"returnUrl"`
}

func (s *Server) StartPurchase(c *gin.Context) {
	var req startPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.ReturnURL) == "" {
		AbortWithError(c, newValidationError("returnUrl", "invalid_return_url", "returnUrl is required"))
		return
	}

	purchase, err := s.purchaseSvc.Start(c.Request.Context(), purchasedomain.StartRequest{
		PackageID: req.PackageID,
		ReturnURL: req.ReturnURL,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"purchaseId":      purchase.ID.String(),
		"paymentId":       purchase.PaymentID,
		"confirmationUrl": purchase.ConfirmationURL,
	})
}

type purchaseStatusResponse struct {
	PurchaseID    string               `json:"purchaseId"`
	State         purchasedomain.State `json:"state"`
	PurchasedCode string               `json:"purchasedCode,omitempty"`
	Reason        string               `json:"reason,omitempty"`
}

func (s *Server) GetPurchase(c *gin.Context) {
	purchase, err := s.purchaseSvc.Get(c.Request.Context(), c.Param("purchaseId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, purchaseStatusResponse{
		PurchaseID:    purchase.ID.String(),
		State:         purchase.State,
		PurchasedCode: purchase.Code,
		Reason:        purchase.Reason,
	})
}
