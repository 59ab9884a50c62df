package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/user/brokerage/backend/internal/auth"
	"github.com/user/brokerage/backend/internal/ledger"
	"github.com/user/brokerage/backend/internal/models"
	"github.com/user/brokerage/backend/internal/orderbook"
)

// CustomerStore is the slice of customer persistence the handlers need.
type CustomerStore interface {
	Create(ctx context.Context, username, passwordHash, iban string, role models.Role) (models.Customer, error)
	GetByUsername(ctx context.Context, username string) (models.Customer, error)
	GetByID(ctx context.Context, customerID uuid.UUID) (models.Customer, error)
}

// API bundles the services the HTTP layer exposes.
type API struct {
	Customers CustomerStore
	Ledger    *ledger.Ledger
	Book      *orderbook.Book
	Tokens    *auth.TokenIssuer
}

// authedCustomer pulls the identity the auth middleware stashed in locals.
func authedCustomer(c *fiber.Ctx) (uuid.UUID, models.Role, bool) {
	customerID, ok := c.Locals("customerID").(uuid.UUID)
	role, ok2 := c.Locals("role").(models.Role)
	return customerID, role, ok && ok2
}

// fail translates sentinel errors into HTTP responses. Unknown errors are
// reported as a generic 500 so internals never leak to clients.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrInsufficientFunds):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrInvalidOrderState):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrPermissionDenied):
		status, message = fiber.StatusForbidden, err.Error()
	case errors.Is(err, models.ErrOrderNotFound):
		status, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrCustomerNotFound):
		status, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrUsernameTaken):
		status, message = fiber.StatusConflict, err.Error()
	}

	return c.Status(status).JSON(fiber.Map{"error": message})
}
