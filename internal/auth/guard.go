package auth

import (
	"ms-marketplace/internal/apperror"
	"ms-marketplace/internal/models"
)

// RequireAdmin succeeds only for the admin role.
func RequireAdmin(claims *Claims) error {
	if claims == nil {
		return apperror.Unauthorized("authentication required")
	}
	if claims.Role != models.RoleAdmin {
		return apperror.Forbidden("admin access required")
	}
	return nil
}

// RequireOwnerOrAdmin succeeds when the caller owns the resource or is admin.
func RequireOwnerOrAdmin(claims *Claims, ownerID string) error {
	if claims == nil {
		return apperror.Unauthorized("authentication required")
	}
	if claims.Role == models.RoleAdmin {
		return nil
	}
	if ownerID != "" && claims.ID == ownerID {
		return nil
	}
	return apperror.Forbidden("you do not have access to this resource")
}

func RequireRole(claims *Claims, roles ...models.Role) error {
	if claims == nil {
		return apperror.Unauthorized("authentication required")
	}
	for _, role := range roles {
		if claims.Role == role {
			return nil
		}
	}
	return apperror.Forbidden("insufficient role")
}
