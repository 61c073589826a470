package server

import (
	"net/http"
	"strings"
	"time"

	lifecycledomain "github.com/casalist/casalist/internal/lifecycle/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// paymentWebhookPayload is the normalized event the payment gateway
// collaborator posts once a listing-fee charge settles. Gateway-specific
// verification happens upstream; only the settled fact reaches the engine.
type paymentWebhookPayload struct {
	ListingID string    `json:"listing_id" binding:"required"`
	Amount    string    `json:"amount" binding:"required"`
	PaidAt    time.Time `json:"paid_at" binding:"required"`
}

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))

	var payload paymentWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}

	listingID, err := parseID(payload.ListingID)
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}

	status, err := s.lifecycleSvc.RecordPayment(c.Request.Context(), listingID, amount, payload.PaidAt)
	if err != nil {
		s.log.Warn("payment webhook rejected",
			zap.String("provider", provider),
			zap.String("listing_id", payload.ListingID),
			zap.Error(err),
		)
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}
