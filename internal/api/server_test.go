package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"campaign-wallet-go/internal/auth"
	"campaign-wallet-go/internal/database"
	"campaign-wallet-go/internal/engine"
	"campaign-wallet-go/internal/models"
	"campaign-wallet-go/internal/store"

	"github.com/shopspring/decimal"
)

type testEnv struct {
	server       *httptest.Server
	service      *database.Service
	adminToken   string
	trainerToken string
	trainerId    string
	otherToken   string
	otherId      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	service, err := database.NewService(ctx, models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "api_test.db"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: 30 * time.Second,
		PingTimeout:     5 * time.Second,
		BusyTimeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(service.Close)

	if _, err := service.ProvisionWallet(ctx, decimal.NewFromInt(10000)); err != nil {
		t.Fatalf("ProvisionWallet: %v", err)
	}

	tokens := auth.NewTokenService(models.AuthConfig{JWTSecret: "test_secret", TokenTTL: time.Hour})

	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	admin, err := service.CreateUser(ctx, store.CreateUserParams{
		FullName: "Admin", Email: "admin@test.local", PasswordHash: hash, Role: models.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("CreateUser(admin): %v", err)
	}
	trainer, err := service.CreateUser(ctx, store.CreateUserParams{
		FullName: "Trainer One", Email: "trainer1@test.local", PasswordHash: hash, Role: models.RoleTrainer,
	})
	if err != nil {
		t.Fatalf("CreateUser(trainer): %v", err)
	}
	other, err := service.CreateUser(ctx, store.CreateUserParams{
		FullName: "Trainer Two", Email: "trainer2@test.local", PasswordHash: hash, Role: models.RoleTrainer,
	})
	if err != nil {
		t.Fatalf("CreateUser(other): %v", err)
	}

	adminToken, err := tokens.Issue(admin)
	if err != nil {
		t.Fatalf("Issue(admin): %v", err)
	}
	trainerToken, err := tokens.Issue(trainer)
	if err != nil {
		t.Fatalf("Issue(trainer): %v", err)
	}
	otherToken, err := tokens.Issue(other)
	if err != nil {
		t.Fatalf("Issue(other): %v", err)
	}

	srv := NewServer(engine.New(service), service, tokens, models.ServerConfig{
		Port:           0,
		RequestTimeout: 30 * time.Second,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{
		server:       ts,
		service:      service,
		adminToken:   adminToken,
		trainerToken: trainerToken,
		trainerId:    trainer.Id,
		otherToken:   otherToken,
		otherId:      other.Id,
	}
}

// do issues a request with an optional bearer token and JSON body, decoding
// the response into out when out is non-nil.
func (env *testEnv) do(t *testing.T, method, path, token string, body, out interface{}) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, env.server.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response of %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (env *testEnv) createSession(t *testing.T, facilitatorId, allocated string) string {
	t.Helper()
	var resp models.CreateSessionResponse
	status := env.do(t, http.MethodPost, "/sessions", env.adminToken, map[string]interface{}{
		"facilitator_id": facilitatorId,
		"allocated":      allocated,
	}, &resp)
	if status != http.StatusCreated {
		t.Fatalf("create session: status %d", status)
	}
	return resp.Id
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	if status := env.do(t, http.MethodGet, "/db/health", "", nil, nil); status != http.StatusOK {
		t.Fatalf("health: status %d", status)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	var resp models.LoginResponse
	status := env.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{
		Email: "Admin@Test.Local", Password: "password123",
	}, &resp)
	if status != http.StatusOK {
		t.Fatalf("login: status %d", status)
	}
	if resp.Token == "" || resp.Role != models.RoleAdmin {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	if status := env.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{
		Email: "admin@test.local", Password: "wrong",
	}, nil); status != http.StatusUnauthorized {
		t.Fatalf("wrong password: status %d", status)
	}
	if status := env.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{
		Email: "nobody@test.local", Password: "password123",
	}, nil); status != http.StatusUnauthorized {
		t.Fatalf("unknown email: status %d", status)
	}
	if status := env.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{}, nil); status != http.StatusBadRequest {
		t.Fatalf("empty credentials: status %d", status)
	}
}

func TestAuthGates(t *testing.T) {
	env := newTestEnv(t)

	if status := env.do(t, http.MethodGet, "/admin/summary", "", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d", status)
	}
	if status := env.do(t, http.MethodGet, "/admin/summary", "garbage-token", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d", status)
	}
	if status := env.do(t, http.MethodGet, "/admin/summary", env.trainerToken, nil, nil); status != http.StatusForbidden {
		t.Fatalf("trainer on admin route: status %d", status)
	}
	if status := env.do(t, http.MethodPost, "/sessions", env.trainerToken, map[string]interface{}{
		"facilitator_id": env.trainerId, "allocated": "100",
	}, nil); status != http.StatusForbidden {
		t.Fatalf("trainer creating session: status %d", status)
	}
}

func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t)
	sessionId := env.createSession(t, env.trainerId, "1000")

	// Trainer spends within the allocation.
	var spendResp models.SpendResponse
	status := env.do(t, http.MethodPost, "/sessions/"+sessionId+"/spend", env.trainerToken,
		map[string]interface{}{"amount": "600", "vendor": "Venue Hire"}, &spendResp)
	if status != http.StatusCreated {
		t.Fatalf("spend: status %d", status)
	}
	if !spendResp.Spent.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("spend response spent = %s", spendResp.Spent.String())
	}

	// Overspend is rejected with 400.
	if status := env.do(t, http.MethodPost, "/sessions/"+sessionId+"/spend", env.trainerToken,
		map[string]interface{}{"amount": "600"}, nil); status != http.StatusBadRequest {
		t.Fatalf("overspend: status %d", status)
	}

	// Another trainer cannot spend this session.
	if status := env.do(t, http.MethodPost, "/sessions/"+sessionId+"/spend", env.otherToken,
		map[string]interface{}{"amount": "10"}, nil); status != http.StatusForbidden {
		t.Fatalf("foreign spend: status %d", status)
	}

	// Admin (not TRAINER role) cannot hit the spend route at all.
	if status := env.do(t, http.MethodPost, "/sessions/"+sessionId+"/spend", env.adminToken,
		map[string]interface{}{"amount": "10"}, nil); status != http.StatusForbidden {
		t.Fatalf("admin spend: status %d", status)
	}

	// Close releases the unused 400.
	var closeResp models.CloseSessionResponse
	if status := env.do(t, http.MethodPost, "/sessions/"+sessionId+"/close", env.adminToken, nil, &closeResp); status != http.StatusOK {
		t.Fatalf("close: status %d", status)
	}
	if closeResp.Wallet == nil {
		t.Fatal("close response missing wallet snapshot")
	}
	if !closeResp.Wallet.Available.Equal(decimal.NewFromInt(9400)) {
		t.Fatalf("available after close = %s", closeResp.Wallet.Available.String())
	}

	// Closing again is an acknowledged no-op.
	var secondClose models.CloseSessionResponse
	if status := env.do(t, http.MethodPost, "/sessions/"+sessionId+"/close", env.adminToken, nil, &secondClose); status != http.StatusOK {
		t.Fatalf("second close: status %d", status)
	}
	if secondClose.Message != "Session already closed" {
		t.Fatalf("second close message = %q", secondClose.Message)
	}

	// Spending a closed session is forbidden.
	if status := env.do(t, http.MethodPost, "/sessions/"+sessionId+"/spend", env.trainerToken,
		map[string]interface{}{"amount": "1"}, nil); status != http.StatusForbidden {
		t.Fatalf("spend after close: status %d", status)
	}
}

func TestSessionValidationStatuses(t *testing.T) {
	env := newTestEnv(t)

	if status := env.do(t, http.MethodPost, "/sessions", env.adminToken, map[string]interface{}{
		"facilitator_id": env.trainerId, "allocated": "10.001",
	}, nil); status != http.StatusBadRequest {
		t.Fatalf("sub-cent allocation: status %d", status)
	}
	if status := env.do(t, http.MethodPost, "/sessions", env.adminToken, map[string]interface{}{
		"facilitator_id": env.trainerId, "allocated": "999999",
	}, nil); status != http.StatusBadRequest {
		t.Fatalf("insufficient funds: status %d", status)
	}
	if status := env.do(t, http.MethodPost, "/sessions/no-such-id/spend", env.trainerToken,
		map[string]interface{}{"amount": "10"}, nil); status != http.StatusNotFound {
		t.Fatalf("unknown session: status %d", status)
	}
}

func TestSessionTransactionsOwnership(t *testing.T) {
	env := newTestEnv(t)
	sessionId := env.createSession(t, env.trainerId, "500")

	var entries []models.LedgerEntryRecord
	if status := env.do(t, http.MethodGet, "/sessions/"+sessionId+"/transactions", env.trainerToken, nil, &entries); status != http.StatusOK {
		t.Fatalf("owner transactions: status %d", status)
	}
	if len(entries) != 1 || entries[0].Type != models.EntryTypeReserve {
		t.Fatalf("expected one RESERVE entry, got %+v", entries)
	}

	if status := env.do(t, http.MethodGet, "/sessions/"+sessionId+"/transactions", env.otherToken, nil, nil); status != http.StatusForbidden {
		t.Fatalf("foreign transactions: status %d", status)
	}
	if status := env.do(t, http.MethodGet, "/sessions/"+sessionId+"/transactions", env.adminToken, nil, nil); status != http.StatusOK {
		t.Fatalf("admin transactions: status %d", status)
	}
}

func TestAdminReadModels(t *testing.T) {
	env := newTestEnv(t)
	sessionId := env.createSession(t, env.trainerId, "1000")
	if status := env.do(t, http.MethodPost, "/sessions/"+sessionId+"/spend", env.trainerToken,
		map[string]interface{}{"amount": "250"}, nil); status != http.StatusCreated {
		t.Fatalf("spend: status %d", status)
	}

	var entries []models.LedgerEntryRecord
	if status := env.do(t, http.MethodGet, "/admin/transactions", env.adminToken, nil, &entries); status != http.StatusOK {
		t.Fatalf("ledger: status %d", status)
	}
	// seed + reserve + spend
	if len(entries) != 3 {
		t.Fatalf("expected 3 ledger entries, got %d", len(entries))
	}

	var summary models.WalletSummary
	if status := env.do(t, http.MethodGet, "/admin/summary", env.adminToken, nil, &summary); status != http.StatusOK {
		t.Fatalf("summary: status %d", status)
	}
	if !summary.TotalSpent.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("summary total spent = %s", summary.TotalSpent.String())
	}

	var reconciliation models.Reconciliation
	if status := env.do(t, http.MethodGet, "/admin/reconcile", env.adminToken, nil, &reconciliation); status != http.StatusOK {
		t.Fatalf("reconcile: status %d", status)
	}
	if !reconciliation.WalletTotal.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("wallet total = %s", reconciliation.WalletTotal.String())
	}
}

func TestVendorEndpoints(t *testing.T) {
	env := newTestEnv(t)

	var vendor models.Vendor
	if status := env.do(t, http.MethodPost, "/api/vendors", env.adminToken, models.CreateVendorRequest{
		Name: "Print Works", Location: "Harare",
	}, &vendor); status != http.StatusCreated {
		t.Fatalf("create vendor: status %d", status)
	}

	if status := env.do(t, http.MethodPost, "/api/vendors", env.adminToken, models.CreateVendorRequest{
		Name: "print works",
	}, nil); status != http.StatusConflict {
		t.Fatalf("duplicate vendor: status %d", status)
	}
	if status := env.do(t, http.MethodPost, "/api/vendors", env.adminToken, models.CreateVendorRequest{}, nil); status != http.StatusBadRequest {
		t.Fatalf("nameless vendor: status %d", status)
	}
	if status := env.do(t, http.MethodPost, "/api/vendors", env.trainerToken, models.CreateVendorRequest{
		Name: "Not Allowed",
	}, nil); status != http.StatusForbidden {
		t.Fatalf("trainer creating vendor: status %d", status)
	}

	// Trainers may read the registry.
	var vendors []models.Vendor
	if status := env.do(t, http.MethodGet, "/api/vendors", env.trainerToken, nil, &vendors); status != http.StatusOK {
		t.Fatalf("list vendors: status %d", status)
	}
	if len(vendors) != 1 {
		t.Fatalf("expected 1 vendor, got %d", len(vendors))
	}

	var updated models.Vendor
	if status := env.do(t, http.MethodPut, "/api/vendors/"+vendor.Id, env.adminToken, models.CreateVendorRequest{
		Location: "Bulawayo",
	}, &updated); status != http.StatusOK {
		t.Fatalf("update vendor: status %d", status)
	}
	if updated.Location != "Bulawayo" || updated.Name != "Print Works" {
		t.Fatalf("update lost fields: %+v", updated)
	}

	if status := env.do(t, http.MethodDelete, "/api/vendors/"+vendor.Id, env.adminToken, nil, nil); status != http.StatusOK {
		t.Fatalf("delete vendor: status %d", status)
	}
	if status := env.do(t, http.MethodGet, "/api/vendors/"+vendor.Id, env.adminToken, nil, nil); status != http.StatusNotFound {
		t.Fatalf("get deleted vendor: status %d", status)
	}
}

func TestReceiptEndpoints(t *testing.T) {
	env := newTestEnv(t)
	sessionId := env.createSession(t, env.trainerId, "1000")
	if status := env.do(t, http.MethodPost, "/sessions/"+sessionId+"/spend", env.trainerToken,
		map[string]interface{}{"amount": "300", "vendor": "Alpha"}, nil); status != http.StatusCreated {
		t.Fatalf("spend: status %d", status)
	}

	var entries []models.LedgerEntryRecord
	if status := env.do(t, http.MethodGet, "/sessions/"+sessionId+"/transactions", env.trainerToken, nil, &entries); status != http.StatusOK {
		t.Fatalf("transactions: status %d", status)
	}
	var spendId int64
	var reserveId int64
	for _, entry := range entries {
		switch entry.Type {
		case models.EntryTypeSpend:
			spendId = entry.Id
		case models.EntryTypeReserve:
			reserveId = entry.Id
		}
	}
	if spendId == 0 || reserveId == 0 {
		t.Fatalf("missing entries: %+v", entries)
	}

	// Receipts attach to spends only.
	if status := env.do(t, http.MethodPost, "/api/receipts", env.trainerToken, models.CreateReceiptRequest{
		TransactionId: reserveId, FileUrl: "https://files.test/r.pdf",
	}, nil); status != http.StatusBadRequest {
		t.Fatalf("receipt on reserve entry: status %d", status)
	}

	// Another trainer cannot attach to a foreign spend.
	if status := env.do(t, http.MethodPost, "/api/receipts", env.otherToken, models.CreateReceiptRequest{
		TransactionId: spendId, FileUrl: "https://files.test/r.pdf",
	}, nil); status != http.StatusForbidden {
		t.Fatalf("foreign receipt: status %d", status)
	}

	var receipt models.Receipt
	if status := env.do(t, http.MethodPost, "/api/receipts", env.trainerToken, models.CreateReceiptRequest{
		TransactionId: spendId, FileUrl: "https://files.test/r.pdf",
	}, &receipt); status != http.StatusCreated {
		t.Fatalf("create receipt: status %d", status)
	}
	if status := env.do(t, http.MethodPost, "/api/receipts", env.trainerToken, models.CreateReceiptRequest{
		TransactionId: spendId, FileUrl: "https://files.test/other.pdf",
	}, nil); status != http.StatusConflict {
		t.Fatalf("duplicate receipt: status %d", status)
	}

	var record models.ReceiptRecord
	path := fmt.Sprintf("/api/receipts/transaction/%d", spendId)
	if status := env.do(t, http.MethodGet, path, env.trainerToken, nil, &record); status != http.StatusOK {
		t.Fatalf("get receipt: status %d", status)
	}
	if record.Vendor != "Alpha" || !record.Amount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("receipt record wrong: %+v", record)
	}

	// Other trainers get the same answer as for a missing receipt.
	if status := env.do(t, http.MethodGet, path, env.otherToken, nil, nil); status != http.StatusNotFound {
		t.Fatalf("foreign get receipt: status %d", status)
	}

	var records []models.ReceiptRecord
	if status := env.do(t, http.MethodGet, "/api/receipts/session/"+sessionId, env.trainerToken, nil, &records); status != http.StatusOK {
		t.Fatalf("session receipts: status %d", status)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 receipt, got %d", len(records))
	}
	if status := env.do(t, http.MethodGet, "/api/receipts/session/"+sessionId, env.otherToken, nil, nil); status != http.StatusForbidden {
		t.Fatalf("foreign session receipts: status %d", status)
	}
}
