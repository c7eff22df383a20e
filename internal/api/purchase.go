package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quintave/quintave/internal/revenuecat"
)

func (s *Server) handlePurchaseStatus(c *gin.Context) {
	status, err := s.engine.PurchaseStatus(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

type purchaseRequest struct {
	RevenueCatAppUserID string `json:"revenueCatAppUserId" binding:"required"`
}

func (s *Server) handleConfirmPurchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "revenueCatAppUserId is required")
		return
	}

	status, err := s.engine.ConfirmPurchase(c.Request.Context(), currentUser(c).ID, req.RevenueCatAppUserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": status})
}

func (s *Server) handleLinkPurchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "revenueCatAppUserId is required")
		return
	}

	if err := s.engine.LinkPurchaseProvider(c.Request.Context(), currentUser(c).ID, req.RevenueCatAppUserID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleRevenueCatWebhook applies purchase events. Anything the provider
// should not retry is acknowledged with 200.
func (s *Server) handleRevenueCatWebhook(c *gin.Context) {
	err := revenuecat.Authorize(c.GetHeader("Authorization"), s.config.WebhookSecret)
	switch {
	case errors.Is(err, revenuecat.ErrNotConfigured):
		s.logger.Error("revenuecat webhook secret is not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook not configured"})
		return
	case err != nil:
		s.logger.Warn("rejected revenuecat webhook", zap.String("request_id", requestID(c)))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		s.badRequest(c, "could not read body")
		return
	}

	payload, err := revenuecat.ParsePayload(body)
	if err != nil {
		if errors.Is(err, revenuecat.ErrMissingEvent) {
			s.badRequest(c, "Missing event")
			return
		}
		s.badRequest(c, "Malformed payload")
		return
	}

	outcome, err := s.engine.HandleWebhookEvent(c.Request.Context(), payload.Event)
	if err != nil {
		s.logger.Error("failed to apply revenuecat event",
			zap.String("event_id", payload.Event.ID),
			zap.String("type", string(payload.Event.Type)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": internalErrorMessage})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
}
