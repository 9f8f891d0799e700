package helpers

import (
	"github.com/joshua-takyi/campuscove/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EnhancedClaims is the authenticated identity handlers read from the gin context.
type EnhancedClaims struct {
	*CustomClaims
	UserID primitive.ObjectID `json:"id"`
	Role   string             `json:"role"`
	Name   string             `json:"name,omitempty"`
	Email  string             `json:"email,omitempty"`
}

// Helper methods for role checking
func (ec *EnhancedClaims) IsAdmin() bool {
	return ec.Role == models.RoleAdmin
}

func (ec *EnhancedClaims) IsStudent() bool {
	return ec.Role == models.RoleStudent
}

func (ec *EnhancedClaims) HasOwnerRole() bool {
	return models.IsOwnerRole(ec.Role)
}

// Is reports whether the claims belong to the given user.
func (ec *EnhancedClaims) Is(userID primitive.ObjectID) bool {
	return !ec.UserID.IsZero() && ec.UserID == userID
}
