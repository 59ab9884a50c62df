package handlers

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/user/brokerage/backend/internal/models"
)

// ResolveEffectiveCustomerID decides which customer a request acts on.
// Admins must name a target customer explicitly; customers may omit the
// parameter or name only themselves. The core services below this layer
// never see roles; they receive the already-resolved id.
func ResolveEffectiveCustomerID(authedID uuid.UUID, role models.Role, requested string) (uuid.UUID, error) {
	if role == models.RoleAdmin {
		if requested == "" {
			return uuid.Nil, fmt.Errorf("%w: admin must provide a customer id", models.ErrInvalidArgument)
		}
		id, err := uuid.Parse(requested)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: malformed customer id", models.ErrInvalidArgument)
		}
		return id, nil
	}

	if requested == "" {
		return authedID, nil
	}
	id, err := uuid.Parse(requested)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed customer id", models.ErrInvalidArgument)
	}
	if id != authedID {
		return uuid.Nil, models.ErrPermissionDenied
	}
	return authedID, nil
}
