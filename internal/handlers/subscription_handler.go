package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/campuscove/internal/models"
	"github.com/joshua-takyi/campuscove/internal/services"
)

type subscribeRequest struct {
	MessID string `json:"messId" binding:"required"`
}

type subscriptionStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func Subscribe(s *services.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		var req subscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("messId is required"))
			return
		}

		sub, err := s.Subscribe(c.Request.Context(), claims, req.MessID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.SuccessResponse(sub, "Subscription requested successfully"))
	}
}

func ListSubscriptions(s *services.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		subs, err := s.ListSubscriptions(c.Request.Context(), claims)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.ListResponse(subs, len(subs)))
	}
}

func RespondToSubscription(s *services.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		var req subscriptionStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("Invalid status. Must be accepted or rejected"))
			return
		}

		sub, err := s.RespondToSubscription(c.Request.Context(), claims, c.Param("id"), req.Status)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(sub, "Subscription "+string(sub.Status)+" successfully"))
	}
}
