package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/user/brokerage/backend/internal/models"
)

// DepositRequest defines the JSON body for deposits.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// WithdrawRequest defines the JSON body for withdrawals. The IBAN names the
// destination account; the transfer itself is outside this system.
type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
	IBAN   string          `json:"iban"`
}

// ListAssets returns every balance the effective customer holds.
func (a *API) ListAssets(c *fiber.Ctx) error {
	customerID, role, ok := authedCustomer(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid identity in token"})
	}
	effectiveID, err := ResolveEffectiveCustomerID(customerID, role, c.Query("customer_id"))
	if err != nil {
		return fail(c, err)
	}

	balances, err := a.Ledger.ListBalances(c.Context(), effectiveID)
	if err != nil {
		log.Printf("Error fetching balances for customer %s: %v", effectiveID, err)
		return fail(c, err)
	}
	if balances == nil {
		balances = make([]models.Balance, 0)
	}
	return c.Status(fiber.StatusOK).JSON(balances)
}

// Deposit credits the settlement asset. A deposit is a plain positive
// adjustment with no order semantics.
func (a *API) Deposit(c *fiber.Ctx) error {
	customerID, role, ok := authedCustomer(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid identity in token"})
	}
	effectiveID, err := ResolveEffectiveCustomerID(customerID, role, c.Query("customer_id"))
	if err != nil {
		return fail(c, err)
	}

	req := new(DepositRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}
	if !req.Amount.IsPositive() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Amount must be positive"})
	}

	balance, err := a.Ledger.Adjust(c.Context(), effectiveID, models.SettlementAsset, req.Amount)
	if err != nil {
		log.Printf("Deposit failed for customer %s: %v", effectiveID, err)
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(balance)
}

// Withdraw debits the settlement asset. The adjustment fails with
// insufficient funds if it would drive the balance negative, so withdrawals
// never overdraw.
func (a *API) Withdraw(c *fiber.Ctx) error {
	customerID, role, ok := authedCustomer(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid identity in token"})
	}
	effectiveID, err := ResolveEffectiveCustomerID(customerID, role, c.Query("customer_id"))
	if err != nil {
		return fail(c, err)
	}

	req := new(WithdrawRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}
	if !req.Amount.IsPositive() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Amount must be positive"})
	}
	if req.IBAN == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "IBAN is required"})
	}

	balance, err := a.Ledger.Adjust(c.Context(), effectiveID, models.SettlementAsset, req.Amount.Neg())
	if err != nil {
		log.Printf("Withdraw failed for customer %s: %v", effectiveID, err)
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(balance)
}
