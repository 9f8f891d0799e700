package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/campuscove/internal/helpers"
	"github.com/joshua-takyi/campuscove/internal/models"
	"github.com/joshua-takyi/campuscove/internal/services"
)

// currentUser returns the claims AuthMiddleware stored on the context, or
// writes a 401 and returns false.
func currentUser(c *gin.Context) (*helpers.EnhancedClaims, bool) {
	userClaims, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized"))
		return nil, false
	}

	claims, ok := userClaims.(*helpers.EnhancedClaims)
	if !ok || claims == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("invalid user claims"))
		return nil, false
	}
	return claims, true
}

func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindBadRequest, services.KindNotImplemented:
		return http.StatusBadRequest
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error envelope for a service error. Internal causes
// are attached to the context for ErrorHandler to log and never reach the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(services.KindOf(err))
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, models.ErrorResponse("Internal server error"))
		return
	}

	msg := err.Error()
	var se *services.Error
	if errors.As(err, &se) {
		msg = se.Message
	}
	c.JSON(status, models.ErrorResponse(msg))
}
