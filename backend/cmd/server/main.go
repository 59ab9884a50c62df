package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/user/brokerage/backend/internal/auth"
	"github.com/user/brokerage/backend/internal/clock"
	"github.com/user/brokerage/backend/internal/config"
	"github.com/user/brokerage/backend/internal/database"
	"github.com/user/brokerage/backend/internal/handlers"
	"github.com/user/brokerage/backend/internal/ledger"
	"github.com/user/brokerage/backend/internal/middleware"
	"github.com/user/brokerage/backend/internal/orderbook"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Successfully connected to the database")

	balances := database.NewBalanceStore(pool)
	orders := database.NewOrderStore(pool)
	customers := database.NewCustomerStore(pool)

	ldg := ledger.New(balances)
	book := orderbook.New(orders, ldg, clock.NewSystem())
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	api := &handlers.API{
		Customers: customers,
		Ledger:    ldg,
		Book:      book,
		Tokens:    tokens,
	}

	app := fiber.New()

	root := app.Group("/api")

	// Health check (public)
	root.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("Brokerage API is healthy!")
	})

	// Registration and login (public)
	customersGroup := root.Group("/customers")
	customersGroup.Post("/register", api.RegisterCustomer)
	customersGroup.Post("/register/admin", api.RegisterAdmin)
	customersGroup.Post("/login", api.Login)

	// Everything below requires a valid token
	root.Use(middleware.Protected(tokens))

	root.Get("/me", api.Me)

	assetsGroup := root.Group("/assets")
	assetsGroup.Get("/", api.ListAssets)
	assetsGroup.Post("/deposit", api.Deposit)
	assetsGroup.Post("/withdraw", api.Withdraw)

	ordersGroup := root.Group("/orders")
	ordersGroup.Post("/", api.CreateOrder)
	ordersGroup.Get("/", api.GetOrders)
	ordersGroup.Get("/:id", api.GetOrderByID)
	ordersGroup.Delete("/:id", api.CancelOrder)

	log.Printf("Starting server on %s", cfg.Addr)
	log.Fatal(app.Listen(cfg.Addr))
}
