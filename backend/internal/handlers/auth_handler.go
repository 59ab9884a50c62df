package handlers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/user/brokerage/backend/internal/auth"
	"github.com/user/brokerage/backend/internal/models"
)

// RegisterRequest defines the expected JSON body for registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IBAN     string `json:"iban"`
}

// LoginRequest defines the expected JSON body for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse defines the JSON response for successful auth.
type AuthResponse struct {
	Token    string          `json:"token"`
	Customer models.Customer `json:"customer"`
	IssuedAt time.Time       `json:"issued_at"`
}

// RegisterCustomer creates a CUSTOMER account.
func (a *API) RegisterCustomer(c *fiber.Ctx) error {
	return a.register(c, models.RoleCustomer)
}

// RegisterAdmin creates an ADMIN account.
func (a *API) RegisterAdmin(c *fiber.Ctx) error {
	return a.register(c, models.RoleAdmin)
}

func (a *API) register(c *fiber.Ctx, role models.Role) error {
	req := new(RegisterRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}

	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Password) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Username and password cannot be empty"})
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for %s: %v", req.Username, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process password"})
	}

	customer, err := a.Customers.Create(c.Context(), req.Username, hashedPassword, req.IBAN, role)
	if err != nil {
		log.Printf("Error creating customer %s: %v", req.Username, err)
		return fail(c, err)
	}

	token, err := a.Tokens.Generate(customer)
	if err != nil {
		log.Printf("Error generating JWT for customer %s: %v", customer.Username, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Customer created, but failed to generate token"})
	}

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{
		Token:    token,
		Customer: customer,
		IssuedAt: time.Now(),
	})
}

// Login authenticates a customer and issues a token.
func (a *API) Login(c *fiber.Ctx) error {
	req := new(LoginRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}

	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Password) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Username and password cannot be empty"})
	}

	customer, err := a.Customers.GetByUsername(c.Context(), req.Username)
	if err != nil {
		if errors.Is(err, models.ErrCustomerNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid username or password"})
		}
		log.Printf("Error finding customer %s: %v", req.Username, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error finding customer"})
	}

	if !auth.CheckPasswordHash(req.Password, customer.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid username or password"})
	}

	token, err := a.Tokens.Generate(customer)
	if err != nil {
		log.Printf("Error generating JWT for customer %s: %v", customer.Username, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.Status(fiber.StatusOK).JSON(AuthResponse{
		Token:    token,
		Customer: customer,
		IssuedAt: time.Now(),
	})
}

// Me returns the authenticated customer's account.
func (a *API) Me(c *fiber.Ctx) error {
	customerID, _, ok := authedCustomer(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid identity in token"})
	}

	customer, err := a.Customers.GetByID(c.Context(), customerID)
	if err != nil {
		log.Printf("Error fetching customer %s: %v", customerID, err)
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(customer)
}
