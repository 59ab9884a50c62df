package handlers

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/user/brokerage/backend/internal/models"
)

// CreateOrderRequest defines the expected JSON body for placing an order.
type CreateOrderRequest struct {
	AssetName string          `json:"asset_name"`
	Side      string          `json:"side"` // "BUY" or "SELL"
	Size      decimal.Decimal `json:"size"`
	Price     decimal.Decimal `json:"price"`
}

// CreateOrder places a new order for the effective customer.
func (a *API) CreateOrder(c *fiber.Ctx) error {
	customerID, role, ok := authedCustomer(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid identity in token"})
	}
	effectiveID, err := ResolveEffectiveCustomerID(customerID, role, c.Query("customer_id"))
	if err != nil {
		return fail(c, err)
	}

	req := new(CreateOrderRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}

	side := models.Side(strings.ToUpper(strings.TrimSpace(req.Side)))
	assetName := strings.ToUpper(strings.TrimSpace(req.AssetName))

	order, err := a.Book.PlaceOrder(c.Context(), effectiveID, assetName, side, req.Size, req.Price)
	if err != nil {
		log.Printf("PlaceOrder failed for customer %s: %v", effectiveID, err)
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// GetOrders lists the effective customer's orders created within the
// [start, end] window (RFC 3339 timestamps).
func (a *API) GetOrders(c *fiber.Ctx) error {
	customerID, role, ok := authedCustomer(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid identity in token"})
	}
	effectiveID, err := ResolveEffectiveCustomerID(customerID, role, c.Query("customer_id"))
	if err != nil {
		return fail(c, err)
	}

	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid or missing start time, expected RFC 3339"})
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid or missing end time, expected RFC 3339"})
	}

	orders, err := a.Book.ListOrders(c.Context(), effectiveID, start, end)
	if err != nil {
		log.Printf("ListOrders failed for customer %s: %v", effectiveID, err)
		return fail(c, err)
	}
	if orders == nil {
		orders = make([]models.Order, 0)
	}
	return c.Status(fiber.StatusOK).JSON(orders)
}

// GetOrderByID retrieves a single order owned by the effective customer.
func (a *API) GetOrderByID(c *fiber.Ctx) error {
	customerID, role, ok := authedCustomer(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid identity in token"})
	}
	effectiveID, err := ResolveEffectiveCustomerID(customerID, role, c.Query("customer_id"))
	if err != nil {
		return fail(c, err)
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID format"})
	}

	order, err := a.Book.GetOrder(c.Context(), effectiveID, orderID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(order)
}

// CancelOrder cancels a PENDING order and releases its reservation.
func (a *API) CancelOrder(c *fiber.Ctx) error {
	customerID, role, ok := authedCustomer(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid identity in token"})
	}
	effectiveID, err := ResolveEffectiveCustomerID(customerID, role, c.Query("customer_id"))
	if err != nil {
		return fail(c, err)
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID format"})
	}

	if err := a.Book.CancelOrder(c.Context(), effectiveID, orderID); err != nil {
		log.Printf("CancelOrder failed for customer %s, order %s: %v", effectiveID, orderID, err)
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Order canceled successfully"})
}
