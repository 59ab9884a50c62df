package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/user/brokerage/backend/internal/auth"
	"github.com/user/brokerage/backend/internal/clock"
	"github.com/user/brokerage/backend/internal/ledger"
	"github.com/user/brokerage/backend/internal/middleware"
	"github.com/user/brokerage/backend/internal/models"
	"github.com/user/brokerage/backend/internal/orderbook"
)

type fakeBalanceStore struct {
	mu       sync.Mutex
	balances map[string]models.Balance
}

func (s *fakeBalanceStore) key(customerID uuid.UUID, assetName string) string {
	return customerID.String() + "/" + assetName
}

func (s *fakeBalanceStore) Get(_ context.Context, customerID uuid.UUID, assetName string) (models.Balance, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, ok := s.balances[s.key(customerID, assetName)]
	return bal, ok, nil
}

func (s *fakeBalanceStore) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Balance, 0)
	for _, bal := range s.balances {
		if bal.CustomerID == customerID {
			out = append(out, bal)
		}
	}
	return out, nil
}

func (s *fakeBalanceStore) ApplyDelta(_ context.Context, customerID uuid.UUID, assetName string, delta decimal.Decimal) (models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.key(customerID, assetName)
	bal, ok := s.balances[key]
	if !ok {
		bal = models.Balance{CustomerID: customerID, AssetName: assetName, Total: decimal.Zero, Usable: decimal.Zero}
	}
	total := bal.Total.Add(delta)
	usable := bal.Usable.Add(delta)
	if total.IsNegative() || usable.IsNegative() {
		return models.Balance{}, models.ErrInsufficientFunds
	}
	bal.Total, bal.Usable, bal.UpdatedAt = total, usable, time.Now().UTC()
	s.balances[key] = bal
	return bal, nil
}

type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]models.Order
}

func (s *fakeOrderStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *fakeOrderStore) Create(_ context.Context, order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order
	return nil
}

func (s *fakeOrderStore) Get(_ context.Context, orderID uuid.UUID) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}
	return order, nil
}

func (s *fakeOrderStore) List(_ context.Context, customerID uuid.UUID, from, to time.Time) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Order, 0)
	for _, order := range s.orders {
		if order.CustomerID == customerID && !order.CreatedAt.Before(from) && !order.CreatedAt.After(to) {
			out = append(out, order)
		}
	}
	return out, nil
}

func (s *fakeOrderStore) SetStatus(_ context.Context, orderID uuid.UUID, from, to models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return models.ErrOrderNotFound
	}
	if order.Status != from {
		return models.ErrInvalidOrderState
	}
	order.Status = to
	s.orders[orderID] = order
	return nil
}

type fakeCustomerStore struct {
	mu        sync.Mutex
	customers map[uuid.UUID]models.Customer
}

func (s *fakeCustomerStore) Create(_ context.Context, username, passwordHash, iban string, role models.Role) (models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.customers {
		if c.Username == username {
			return models.Customer{}, models.ErrUsernameTaken
		}
	}
	customer := models.Customer{
		ID:        uuid.New(),
		Username:  username,
		Password:  passwordHash,
		IBAN:      iban,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	s.customers[customer.ID] = customer
	return customer, nil
}

func (s *fakeCustomerStore) GetByUsername(_ context.Context, username string) (models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.customers {
		if c.Username == username {
			return c, nil
		}
	}
	return models.Customer{}, models.ErrCustomerNotFound
}

func (s *fakeCustomerStore) GetByID(_ context.Context, customerID uuid.UUID) (models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customer, ok := s.customers[customerID]
	if !ok {
		return models.Customer{}, models.ErrCustomerNotFound
	}
	return customer, nil
}

func newTestApp(t *testing.T) (*fiber.App, *API) {
	t.Helper()

	ldg := ledger.New(&fakeBalanceStore{balances: make(map[string]models.Balance)})
	book := orderbook.New(&fakeOrderStore{orders: make(map[uuid.UUID]models.Order)}, ldg, clock.NewSystem())
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	api := &API{
		Customers: &fakeCustomerStore{customers: make(map[uuid.UUID]models.Customer)},
		Ledger:    ldg,
		Book:      book,
		Tokens:    tokens,
	}

	app := fiber.New()
	root := app.Group("/api")
	root.Post("/customers/register", api.RegisterCustomer)
	root.Post("/customers/register/admin", api.RegisterAdmin)
	root.Post("/customers/login", api.Login)
	root.Use(middleware.Protected(tokens))
	root.Get("/me", api.Me)
	root.Get("/assets", api.ListAssets)
	root.Post("/assets/deposit", api.Deposit)
	root.Post("/assets/withdraw", api.Withdraw)
	root.Post("/orders", api.CreateOrder)
	root.Get("/orders", api.GetOrders)
	root.Get("/orders/:id", api.GetOrderByID)
	root.Delete("/orders/:id", api.CancelOrder)

	return app, api
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func register(t *testing.T, app *fiber.App, path, username string) AuthResponse {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, path, "", RegisterRequest{
		Username: username,
		Password: "secret123",
		IBAN:     "TR000000000000000000000001",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status = %d, want 201", username, resp.StatusCode)
	}
	return decode[AuthResponse](t, resp)
}

func TestAPIRequiresToken(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t)
	resp := doJSON(t, app, http.MethodGet, "/api/assets", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated request status = %d, want 401", resp.StatusCode)
	}
}

func TestAPIOrderLifecycle(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t)
	account := register(t, app, "/api/customers/register", "alice")
	token := account.Token

	// Fund the account.
	resp := doJSON(t, app, http.MethodPost, "/api/assets/deposit", token, DepositRequest{Amount: decimal.NewFromInt(100000)})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deposit status = %d, want 200", resp.StatusCode)
	}

	// Place a BUY order reserving 50000 TRY.
	resp = doJSON(t, app, http.MethodPost, "/api/orders", token, CreateOrderRequest{
		AssetName: "BTC",
		Side:      "BUY",
		Size:      decimal.NewFromInt(1),
		Price:     decimal.NewFromInt(50000),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("place order status = %d, want 201", resp.StatusCode)
	}
	order := decode[models.Order](t, resp)
	if order.Status != models.StatusPending {
		t.Fatalf("order status = %s, want PENDING", order.Status)
	}

	// An order that would overdraw the remaining 50000 is rejected.
	resp = doJSON(t, app, http.MethodPost, "/api/orders", token, CreateOrderRequest{
		AssetName: "BTC",
		Side:      "BUY",
		Size:      decimal.NewFromInt(2),
		Price:     decimal.NewFromInt(50000),
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("overdrawing order status = %d, want 400", resp.StatusCode)
	}

	// Cancel releases the reservation.
	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/orders/%s", order.ID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200", resp.StatusCode)
	}
	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/orders/%s", order.ID), token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("second cancel status = %d, want 400", resp.StatusCode)
	}

	// Full balance is usable again.
	resp = doJSON(t, app, http.MethodGet, "/api/assets", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list assets status = %d, want 200", resp.StatusCode)
	}
	balances := decode[[]models.Balance](t, resp)
	if len(balances) != 1 || !balances[0].Usable.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("balances after round trip = %+v, want one TRY balance of 100000 usable", balances)
	}
}

func TestAPIEffectiveCustomerResolution(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t)
	alice := register(t, app, "/api/customers/register", "alice")
	mallory := register(t, app, "/api/customers/register", "mallory")
	admin := register(t, app, "/api/customers/register/admin", "root")

	// A customer cannot act on another customer's account.
	path := fmt.Sprintf("/api/assets/deposit?customer_id=%s", alice.Customer.ID)
	resp := doJSON(t, app, http.MethodPost, path, mallory.Token, DepositRequest{Amount: decimal.NewFromInt(10)})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("cross-customer deposit status = %d, want 403", resp.StatusCode)
	}

	// An admin must name a target.
	resp = doJSON(t, app, http.MethodPost, "/api/assets/deposit", admin.Token, DepositRequest{Amount: decimal.NewFromInt(10)})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("admin deposit without target status = %d, want 400", resp.StatusCode)
	}

	// An admin can act on a named customer.
	resp = doJSON(t, app, http.MethodPost, path, admin.Token, DepositRequest{Amount: decimal.NewFromInt(500)})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin deposit status = %d, want 200", resp.StatusCode)
	}
	balance := decode[models.Balance](t, resp)
	if balance.CustomerID != alice.Customer.ID || !balance.Usable.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("admin deposit landed on %+v, want 500 TRY for alice", balance)
	}
}

func TestAPILogin(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t)
	register(t, app, "/api/customers/register", "alice")

	resp := doJSON(t, app, http.MethodPost, "/api/customers/login", "", LoginRequest{Username: "alice", Password: "secret123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	session := decode[AuthResponse](t, resp)

	resp = doJSON(t, app, http.MethodGet, "/api/me", session.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d, want 200", resp.StatusCode)
	}
	me := decode[models.Customer](t, resp)
	if me.Username != "alice" {
		t.Fatalf("me.Username = %s, want alice", me.Username)
	}

	resp = doJSON(t, app, http.MethodPost, "/api/customers/login", "", LoginRequest{Username: "alice", Password: "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad-password login status = %d, want 401", resp.StatusCode)
	}
}
