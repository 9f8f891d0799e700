package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/campuscove/internal/helpers"
	"github.com/joshua-takyi/campuscove/internal/models"
	"github.com/joshua-takyi/campuscove/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TokenCookie is the cookie read when no Authorization header is sent.
const TokenCookie = "token"

type TokenValidator interface {
	ValidateToken(token string) (*helpers.CustomClaims, error)
}

type UserLookup interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// StructuredLogger provides structured logging middleware
func StructuredLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		requestID, _ := c.Get("request_id")

		attrs := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if claims, ok := c.Get("user"); ok {
			if ec, ok := claims.(*helpers.EnhancedClaims); ok {
				attrs = append(attrs, "user_id", ec.UserID.Hex(), "role", ec.Role)
			}
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("HTTP Request", attrs...)
			return
		}
		logger.Info("HTTP Request", attrs...)
	}
}

// ErrorHandler provides centralized error handling
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		requestID, _ := c.Get("request_id")

		logger.Error("Request error",
			"request_id", requestID,
			"error", err.Error(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		// Handlers that already answered only attached the error for logging.
		if c.Writer.Written() {
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":    false,
			"error":      "Internal server error",
			"request_id": requestID,
		})
	}
}

// AuthMiddleware resolves the caller from a bearer token (or the token
// cookie) and stores *helpers.EnhancedClaims under "user". The role always
// comes from the stored user, never from the token.
func AuthMiddleware(validator TokenValidator, users UserLookup, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := helpers.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			if cookie, err := c.Cookie(TokenCookie); err == nil {
				token = cookie
			}
		}
		if token == "" {
			unauthorized(c, "Authentication required")
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			logger.Debug("Token rejected", "error", err)
			unauthorized(c, "Invalid or expired token")
			return
		}

		userID, err := models.ParseObjectID(claims.AccountID())
		if err != nil {
			logger.Info("Invalid user ID in token", "user_id", claims.AccountID(), "error", err)
			unauthorized(c, "Invalid or expired token")
			return
		}

		user, err := users.GetUser(c.Request.Context(), userID)
		if err != nil {
			if isUserNotFound(err) {
				logger.Info("User not found for token", "user_id", userID.Hex())
				unauthorized(c, "User not found")
				return
			}
			requestID, _ := c.Get("request_id")
			logger.Error("User lookup failed",
				"request_id", requestID,
				"user_id", userID.Hex(),
				"error", err,
			)
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse("Internal server error"))
			return
		}

		enhancedClaims := &helpers.EnhancedClaims{
			CustomClaims: claims,
			UserID:       user.ID,
			Role:         user.Role,
			Name:         user.Name,
			Email:        user.Email,
		}

		c.Set("user", enhancedClaims)
		c.Next()
	}
}

func isUserNotFound(err error) bool {
	return services.KindOf(err) == services.KindNotFound || errors.Is(err, models.ErrNotFound)
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse(msg))
}
