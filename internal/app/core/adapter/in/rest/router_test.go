package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/token"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

type stubVerifier struct {
	verifyFn func(string) (string, error)
}

func (s stubVerifier) Verify(tok string) (string, error) {
	return s.verifyFn(tok)
}

func newLedgerRouter(t *testing.T, checkers map[string]Checker) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := memory.NewStore(nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	issuer, err := token.NewIssuer("router-test-secret-0123456789abcdef", "go-bank-ledger", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	core := usecase.NewCoreUseCase(store, nil, issuer, zerolog.Nop())
	return NewRouter(NewHandlerFromCore(core), NewHealthHandler("test", checkers), issuer, zerolog.Nop())
}

func authedRequest(router http.Handler, method, url, bearer string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, url, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func onboard(t *testing.T, router http.Handler, customerID string) (*domain.Account, string) {
	t.Helper()
	w := authedRequest(router, http.MethodPost, "/v1/onboarding", "", map[string]any{
		"customerId":    customerID,
		"accountTypeId": "checking",
		"documentType":  "national_id",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("onboarding: status = %d, body %s", w.Code, w.Body.String())
	}
	var resp OnboardingResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode onboarding: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("onboarding returned no token")
	}
	return resp.Account, resp.Token
}

func balanceOf(t *testing.T, router http.Handler, bearer string, account *domain.Account) string {
	t.Helper()
	w := authedRequest(router, http.MethodGet, "/v1/accounts/"+account.ID.String()+"/balance", bearer, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("balance: status = %d, body %s", w.Code, w.Body.String())
	}
	var resp BalanceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	return resp.Balance
}

func TestRouterDepositThenTransfer(t *testing.T) {
	router := newLedgerRouter(t, nil)
	a, tokenA := onboard(t, router, "cust-a")
	b, _ := onboard(t, router, "cust-b")

	w := authedRequest(router, http.MethodPost, "/v1/deposits", tokenA, map[string]any{
		"accountId": a.ID.String(),
		"amount":    "500",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("deposit: status = %d, body %s", w.Code, w.Body.String())
	}

	w = authedRequest(router, http.MethodPost, "/v1/transfers", tokenA, map[string]any{
		"outcomeAccountId": a.ID.String(),
		"incomeAccountId":  b.ID.String(),
		"amount":           "200",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("transfer: status = %d, body %s", w.Code, w.Body.String())
	}

	if got := balanceOf(t, router, tokenA, a); got != "300" {
		t.Fatalf("balance A = %s, want 300", got)
	}
	if got := balanceOf(t, router, tokenA, b); got != "200" {
		t.Fatalf("balance B = %s, want 200", got)
	}

	w = authedRequest(router, http.MethodPost, "/v1/transfers", tokenA, map[string]any{
		"outcomeAccountId": a.ID.String(),
		"incomeAccountId":  a.ID.String(),
		"amount":           "1",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("same account transfer: status = %d, want 400", w.Code)
	}
	if got := balanceOf(t, router, tokenA, a); got != "300" {
		t.Fatalf("balance A after rejected transfer = %s, want 300", got)
	}

	w = authedRequest(router, http.MethodGet, "/v1/accounts/"+a.ID.String()+"/transfers?direction=out", tokenA, nil)
	var history ListResponse[*domain.Transfer]
	if err := json.Unmarshal(w.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Items) != 1 {
		t.Fatalf("outgoing transfers = %d, want 1", len(history.Items))
	}
}

func TestRouterListAccountsUsesTokenCustomer(t *testing.T) {
	router := newLedgerRouter(t, nil)
	_, tokenA := onboard(t, router, "cust-a")
	onboard(t, router, "cust-b")

	w := authedRequest(router, http.MethodGet, "/v1/accounts", tokenA, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp ListResponse[*domain.Account]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].CustomerID != "cust-a" {
		t.Fatalf("unexpected accounts %+v", resp.Items)
	}
}

func TestRouterRequiresToken(t *testing.T) {
	router := newLedgerRouter(t, nil)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "empty bearer", header: "Bearer "},
		{name: "garbage token", header: "Bearer not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/accounts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestRouterRejectsTokenFromOtherIssuer(t *testing.T) {
	router := newLedgerRouter(t, nil)
	other, err := token.NewIssuer("another-secret-0123456789abcdefgh", "go-bank-ledger", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	forged, err := other.Issue("cust-a")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if w := authedRequest(router, http.MethodGet, "/v1/accounts", forged, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthSetsCustomerID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	verifier := stubVerifier{verifyFn: func(tok string) (string, error) {
		if tok != "good" {
			return "", errors.New("bad token")
		}
		return "cust-9", nil
	}}
	r.GET("/me", Auth(verifier, zerolog.Nop()), func(c *gin.Context) {
		id, _ := CustomerID(c)
		c.String(http.StatusOK, id)
	})

	w := authedRequest(r, http.MethodGet, "/me", "good", nil)
	if w.Code != http.StatusOK || w.Body.String() != "cust-9" {
		t.Fatalf("status = %d, body %q", w.Code, w.Body.String())
	}
	if w := authedRequest(r, http.MethodGet, "/me", "bad", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d", w.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	healthy := newLedgerRouter(t, map[string]Checker{
		"store": func(context.Context) error { return nil },
	})
	if w := authedRequest(healthy, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("health: status = %d", w.Code)
	}
	if w := authedRequest(healthy, http.MethodGet, "/ready", "", nil); w.Code != http.StatusOK {
		t.Fatalf("ready: status = %d", w.Code)
	}

	degraded := newLedgerRouter(t, map[string]Checker{
		"store": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	w := authedRequest(degraded, http.MethodGet, "/ready", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready: status = %d, want 503", w.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "not_ready" || body.Checks["redis"] != "connection refused" || body.Checks["store"] != "ok" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrAccountNotFound, http.StatusNotFound},
		{domain.ErrInvalidPagination, http.StatusBadRequest},
		{domain.ErrAccountNotEmpty, http.StatusUnprocessableEntity},
		{domain.ErrBalanceLimitExceeded, http.StatusUnprocessableEntity},
		{domain.ErrIdempotencyConflict, http.StatusConflict},
		{domain.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{domain.ErrConsistencyFailure, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
