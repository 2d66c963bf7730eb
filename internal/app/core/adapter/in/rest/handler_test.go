package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// ---- mock implementations ----

type mockOnboarder struct {
	onboardFn func(usecase.OnboardCommand) (*domain.Account, string, error)
}

func (m *mockOnboarder) Onboard(_ context.Context, cmd usecase.OnboardCommand) (*domain.Account, string, error) {
	if m.onboardFn != nil {
		return m.onboardFn(cmd)
	}
	return nil, "", fmt.Errorf("not configured")
}

type mockAccounts struct {
	getFn        func(uuid.UUID) (*domain.Account, error)
	balanceFn    func(uuid.UUID) (decimal.Decimal, error)
	byCustomerFn func(string, domain.Pagination) ([]*domain.Account, error)
	creditFn     func(uuid.UUID, decimal.Decimal) (*domain.Account, error)
	debitFn      func(uuid.UUID, decimal.Decimal) (*domain.Account, error)
	changeTypeFn func(uuid.UUID, string) (*domain.Account, error)
	stateFn      func(uuid.UUID, bool) (*domain.Account, error)
	deleteFn     func(uuid.UUID, bool) error
}

var errNotConfigured = fmt.Errorf("not configured")

func (m *mockAccounts) Get(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	if m.getFn != nil {
		return m.getFn(id)
	}
	return nil, errNotConfigured
}
func (m *mockAccounts) GetBalance(_ context.Context, id uuid.UUID) (decimal.Decimal, error) {
	if m.balanceFn != nil {
		return m.balanceFn(id)
	}
	return decimal.Zero, errNotConfigured
}
func (m *mockAccounts) FindByCustomer(_ context.Context, customerID string, p domain.Pagination) ([]*domain.Account, error) {
	if m.byCustomerFn != nil {
		return m.byCustomerFn(customerID, p)
	}
	return nil, errNotConfigured
}
func (m *mockAccounts) Credit(_ context.Context, id uuid.UUID, amount decimal.Decimal) (*domain.Account, error) {
	if m.creditFn != nil {
		return m.creditFn(id, amount)
	}
	return nil, errNotConfigured
}
func (m *mockAccounts) Debit(_ context.Context, id uuid.UUID, amount decimal.Decimal) (*domain.Account, error) {
	if m.debitFn != nil {
		return m.debitFn(id, amount)
	}
	return nil, errNotConfigured
}
func (m *mockAccounts) ChangeAccountType(_ context.Context, id uuid.UUID, typeID string) (*domain.Account, error) {
	if m.changeTypeFn != nil {
		return m.changeTypeFn(id, typeID)
	}
	return nil, errNotConfigured
}
func (m *mockAccounts) ChangeState(_ context.Context, id uuid.UUID, active bool) (*domain.Account, error) {
	if m.stateFn != nil {
		return m.stateFn(id, active)
	}
	return nil, errNotConfigured
}
func (m *mockAccounts) Delete(_ context.Context, id uuid.UUID, soft bool) error {
	if m.deleteFn != nil {
		return m.deleteFn(id, soft)
	}
	return errNotConfigured
}

type mockDeposits struct {
	createFn  func(usecase.CreateDepositCommand) (*domain.Deposit, error)
	getFn     func(uuid.UUID) (*domain.Deposit, error)
	findAllFn func(domain.Pagination) ([]*domain.Deposit, error)
	historyFn func(uuid.UUID, domain.Pagination, domain.DateRange) ([]*domain.Deposit, error)
	deleteFn  func(uuid.UUID, bool) error
}

func (m *mockDeposits) CreateDeposit(_ context.Context, cmd usecase.CreateDepositCommand) (*domain.Deposit, error) {
	if m.createFn != nil {
		return m.createFn(cmd)
	}
	return nil, errNotConfigured
}
func (m *mockDeposits) Get(_ context.Context, id uuid.UUID) (*domain.Deposit, error) {
	if m.getFn != nil {
		return m.getFn(id)
	}
	return nil, errNotConfigured
}
func (m *mockDeposits) FindAll(_ context.Context, p domain.Pagination) ([]*domain.Deposit, error) {
	if m.findAllFn != nil {
		return m.findAllFn(p)
	}
	return nil, errNotConfigured
}
func (m *mockDeposits) GetAccountHistory(_ context.Context, id uuid.UUID, p domain.Pagination, r domain.DateRange) ([]*domain.Deposit, error) {
	if m.historyFn != nil {
		return m.historyFn(id, p, r)
	}
	return nil, errNotConfigured
}
func (m *mockDeposits) DeleteDeposit(_ context.Context, id uuid.UUID, soft bool) error {
	if m.deleteFn != nil {
		return m.deleteFn(id, soft)
	}
	return errNotConfigured
}

type mockTransfers struct {
	createFn  func(usecase.CreateTransferCommand) (*domain.Transfer, error)
	getFn     func(uuid.UUID) (*domain.Transfer, error)
	findAllFn func(domain.Pagination) ([]*domain.Transfer, error)
	historyFn func(usecase.HistoryDirection, uuid.UUID, domain.Pagination, domain.DateRange) ([]*domain.Transfer, error)
	deleteFn  func(uuid.UUID, bool) error
}

func (m *mockTransfers) CreateTransfer(_ context.Context, cmd usecase.CreateTransferCommand) (*domain.Transfer, error) {
	if m.createFn != nil {
		return m.createFn(cmd)
	}
	return nil, errNotConfigured
}
func (m *mockTransfers) Get(_ context.Context, id uuid.UUID) (*domain.Transfer, error) {
	if m.getFn != nil {
		return m.getFn(id)
	}
	return nil, errNotConfigured
}
func (m *mockTransfers) FindAll(_ context.Context, p domain.Pagination) ([]*domain.Transfer, error) {
	if m.findAllFn != nil {
		return m.findAllFn(p)
	}
	return nil, errNotConfigured
}
func (m *mockTransfers) History(_ context.Context, dir usecase.HistoryDirection, id uuid.UUID, p domain.Pagination, r domain.DateRange) ([]*domain.Transfer, error) {
	if m.historyFn != nil {
		return m.historyFn(dir, id, p, r)
	}
	return nil, errNotConfigured
}
func (m *mockTransfers) DeleteTransfer(_ context.Context, id uuid.UUID, soft bool) error {
	if m.deleteFn != nil {
		return m.deleteFn(id, soft)
	}
	return errNotConfigured
}

// ---- helpers ----

type testDeps struct {
	onboarder *mockOnboarder
	accounts  *mockAccounts
	deposits  *mockDeposits
	transfers *mockTransfers
}

func newTestDeps() *testDeps {
	return &testDeps{
		onboarder: &mockOnboarder{},
		accounts:  &mockAccounts{},
		deposits:  &mockDeposits{},
		transfers: &mockTransfers{},
	}
}

func fakeAuth(customerID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(customerIDKey, customerID)
		c.Next()
	}
}

// newTestRouter 掛上與 NewRouter 相同的路由，但以 fakeAuth 取代 Token 驗證
func newTestRouter(d *testDeps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(d.onboarder, d.accounts, d.deposits, d.transfers)
	r.POST("/v1/onboarding", h.Onboard)

	v1 := r.Group("/v1", fakeAuth("cust-1"))
	v1.GET("/accounts", h.ListAccounts)
	v1.GET("/accounts/:id", h.GetAccount)
	v1.GET("/accounts/:id/balance", h.GetBalance)
	v1.PATCH("/accounts/:id/type", h.ChangeAccountType)
	v1.PATCH("/accounts/:id/state", h.ChangeState)
	v1.DELETE("/accounts/:id", h.DeleteAccount)
	v1.POST("/accounts/:id/credit", h.Credit)
	v1.POST("/accounts/:id/debit", h.Debit)
	v1.GET("/accounts/:id/deposits", h.AccountDeposits)
	v1.GET("/accounts/:id/transfers", h.AccountTransfers)
	v1.POST("/deposits", h.CreateDeposit)
	v1.GET("/deposits", h.ListDeposits)
	v1.GET("/deposits/:id", h.GetDeposit)
	v1.DELETE("/deposits/:id", h.DeleteDeposit)
	v1.POST("/transfers", h.CreateTransfer)
	v1.GET("/transfers", h.ListTransfers)
	v1.GET("/transfers/:id", h.GetTransfer)
	v1.DELETE("/transfers/:id", h.DeleteTransfer)
	return r
}

func doRequest(router http.Handler, method, url string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, url, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return resp
}

func testAccount(balance string) *domain.Account {
	return &domain.Account{
		ID:            uuid.New(),
		CustomerID:    "cust-1",
		AccountTypeID: "checking",
		Balance:       decimal.RequireFromString(balance),
		Active:        true,
		CreatedAt:     1_000,
		UpdatedAt:     1_000,
	}
}

// ---- tests ----

func TestOnboard(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		onboardFn      func(usecase.OnboardCommand) (*domain.Account, string, error)
		expectedStatus int
	}{
		{
			name: "success",
			body: map[string]any{"customerId": "cust-1", "accountTypeId": "checking", "documentType": "passport"},
			onboardFn: func(cmd usecase.OnboardCommand) (*domain.Account, string, error) {
				if cmd.DocumentType != "passport" {
					return nil, "", fmt.Errorf("unexpected document type %q", cmd.DocumentType)
				}
				return testAccount("0"), "signed-token", nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing fields",
			body:           map[string]any{"customerId": "cust-1"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unsupported document type",
			body: map[string]any{"customerId": "cust-1", "accountTypeId": "checking", "documentType": "library_card"},
			onboardFn: func(usecase.OnboardCommand) (*domain.Account, string, error) {
				return nil, "", domain.ErrUnsupportedDocumentType
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			d.onboarder.onboardFn = tt.onboardFn
			w := doRequest(newTestRouter(d), http.MethodPost, "/v1/onboarding", tt.body)
			if w.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.expectedStatus, w.Body.String())
			}
			if tt.expectedStatus != http.StatusCreated {
				return
			}
			var resp OnboardingResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Token != "signed-token" || resp.Account == nil {
				t.Fatalf("unexpected response %+v", resp)
			}
		})
	}
}

func TestOnboardValidationDetails(t *testing.T) {
	w := doRequest(newTestRouter(newTestDeps()), http.MethodPost, "/v1/onboarding", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decodeError(t, w)
	fields := map[string]bool{}
	for _, d := range resp.Details {
		fields[d.Field] = true
	}
	for _, f := range []string{"customerId", "accountTypeId", "documentType"} {
		if !fields[f] {
			t.Errorf("missing validation detail for %q in %+v", f, resp.Details)
		}
	}
}

func TestListAccountsScopedToCustomer(t *testing.T) {
	d := newTestDeps()
	var gotCustomer string
	var gotPage domain.Pagination
	d.accounts.byCustomerFn = func(customerID string, p domain.Pagination) ([]*domain.Account, error) {
		gotCustomer, gotPage = customerID, p
		return []*domain.Account{testAccount("5")}, nil
	}

	w := doRequest(newTestRouter(d), http.MethodGet, "/v1/accounts?offset=2&limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if gotCustomer != "cust-1" {
		t.Fatalf("customer = %q, want cust-1", gotCustomer)
	}
	if gotPage != (domain.Pagination{Offset: 2, Limit: 5}) {
		t.Fatalf("pagination = %+v", gotPage)
	}
	var resp ListResponse[*domain.Account]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Limit != 5 || resp.Offset != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestListAccountsRejectsBadPagination(t *testing.T) {
	for _, url := range []string{"/v1/accounts?offset=-1", "/v1/accounts?limit=abc", "/v1/accounts?limit=5000"} {
		w := doRequest(newTestRouter(newTestDeps()), http.MethodGet, url, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", url, w.Code)
		}
	}
}

func TestGetAccount(t *testing.T) {
	account := testAccount("42.5")
	tests := []struct {
		name           string
		path           string
		getFn          func(uuid.UUID) (*domain.Account, error)
		expectedStatus int
	}{
		{
			name:           "found",
			path:           "/v1/accounts/" + account.ID.String(),
			getFn:          func(uuid.UUID) (*domain.Account, error) { return account, nil },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "not found",
			path:           "/v1/accounts/" + uuid.NewString(),
			getFn:          func(uuid.UUID) (*domain.Account, error) { return nil, domain.ErrAccountNotFound },
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "malformed id",
			path:           "/v1/accounts/not-a-uuid",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "storage down",
			path:           "/v1/accounts/" + uuid.NewString(),
			getFn:          func(uuid.UUID) (*domain.Account, error) { return nil, domain.ErrStorageUnavailable },
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			d.accounts.getFn = tt.getFn
			w := doRequest(newTestRouter(d), http.MethodGet, tt.path, nil)
			if w.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.expectedStatus, w.Body.String())
			}
		})
	}
}

func TestGetBalance(t *testing.T) {
	d := newTestDeps()
	id := uuid.New()
	d.accounts.balanceFn = func(got uuid.UUID) (decimal.Decimal, error) {
		if got != id {
			return decimal.Zero, domain.ErrAccountNotFound
		}
		return decimal.RequireFromString("300"), nil
	}

	w := doRequest(newTestRouter(d), http.MethodGet, "/v1/accounts/"+id.String()+"/balance", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp BalanceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Balance != "300" || resp.AccountID != id.String() {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCreditAndDebit(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           any
		debitErr       error
		expectedStatus int
	}{
		{name: "credit", path: "credit", body: map[string]any{"amount": "10.25"}, expectedStatus: http.StatusOK},
		{name: "debit", path: "debit", body: map[string]any{"amount": "1"}, expectedStatus: http.StatusOK},
		{name: "debit insufficient funds", path: "debit", body: map[string]any{"amount": "1"}, debitErr: domain.ErrInsufficientFunds, expectedStatus: http.StatusUnprocessableEntity},
		{name: "zero amount", path: "credit", body: map[string]any{"amount": "0"}, expectedStatus: http.StatusBadRequest},
		{name: "negative amount", path: "debit", body: map[string]any{"amount": "-5"}, expectedStatus: http.StatusBadRequest},
		{name: "too many decimals", path: "credit", body: map[string]any{"amount": "1.00001"}, expectedStatus: http.StatusBadRequest},
		{name: "not a number", path: "credit", body: map[string]any{"amount": "ten"}, expectedStatus: http.StatusBadRequest},
		{name: "numeric json instead of string", path: "credit", body: map[string]any{"amount": 10}, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			account := testAccount("100")
			d.accounts.creditFn = func(_ uuid.UUID, amount decimal.Decimal) (*domain.Account, error) {
				account.Balance = account.Balance.Add(amount)
				return account, nil
			}
			d.accounts.debitFn = func(_ uuid.UUID, amount decimal.Decimal) (*domain.Account, error) {
				if tt.debitErr != nil {
					return nil, tt.debitErr
				}
				account.Balance = account.Balance.Sub(amount)
				return account, nil
			}
			url := "/v1/accounts/" + account.ID.String() + "/" + tt.path
			w := doRequest(newTestRouter(d), http.MethodPost, url, tt.body)
			if w.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.expectedStatus, w.Body.String())
			}
		})
	}
}

func TestChangeAccountTypeAndState(t *testing.T) {
	d := newTestDeps()
	account := testAccount("0")
	d.accounts.changeTypeFn = func(_ uuid.UUID, typeID string) (*domain.Account, error) {
		account.AccountTypeID = typeID
		return account, nil
	}
	d.accounts.stateFn = func(_ uuid.UUID, active bool) (*domain.Account, error) {
		account.Active = active
		return account, nil
	}
	router := newTestRouter(d)
	base := "/v1/accounts/" + account.ID.String()

	if w := doRequest(router, http.MethodPatch, base+"/type", map[string]any{"accountTypeId": "savings"}); w.Code != http.StatusOK {
		t.Fatalf("type: status = %d", w.Code)
	}
	if account.AccountTypeID != "savings" {
		t.Fatalf("account type = %q", account.AccountTypeID)
	}

	if w := doRequest(router, http.MethodPatch, base+"/state", map[string]any{"active": false}); w.Code != http.StatusOK {
		t.Fatalf("state: status = %d", w.Code)
	}
	if account.Active {
		t.Fatalf("account still active")
	}

	// active 必填，false 也要能送出
	if w := doRequest(router, http.MethodPatch, base+"/state", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing active: status = %d, want 400", w.Code)
	}
}

func TestDeleteAccount(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		deleteErr      error
		expectedSoft   bool
		expectedStatus int
	}{
		{name: "hard delete", query: "", expectedStatus: http.StatusNoContent},
		{name: "soft delete", query: "?soft=true", expectedSoft: true, expectedStatus: http.StatusNoContent},
		{name: "balance not zero", query: "", deleteErr: domain.ErrAccountNotEmpty, expectedStatus: http.StatusUnprocessableEntity},
		{name: "bad soft flag", query: "?soft=maybe", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			var gotSoft bool
			d.accounts.deleteFn = func(_ uuid.UUID, soft bool) error {
				gotSoft = soft
				return tt.deleteErr
			}
			w := doRequest(newTestRouter(d), http.MethodDelete, "/v1/accounts/"+uuid.NewString()+tt.query, nil)
			if w.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.expectedStatus, w.Body.String())
			}
			if w.Code == http.StatusNoContent && gotSoft != tt.expectedSoft {
				t.Fatalf("soft = %v, want %v", gotSoft, tt.expectedSoft)
			}
		})
	}
}

func TestCreateDeposit(t *testing.T) {
	accountID := uuid.New()
	tests := []struct {
		name           string
		body           any
		createErr      error
		expectedStatus int
	}{
		{
			name:           "success",
			body:           map[string]any{"accountId": accountID.String(), "amount": "500", "idempotencyKey": "dep-1"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid account id",
			body:           map[string]any{"accountId": "abc", "amount": "500"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "account not found",
			body:           map[string]any{"accountId": accountID.String(), "amount": "500"},
			createErr:      domain.ErrAccountNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "idempotency key reused",
			body:           map[string]any{"accountId": accountID.String(), "amount": "1", "idempotencyKey": "dep-1"},
			createErr:      domain.ErrIdempotencyConflict,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "inactive account",
			body:           map[string]any{"accountId": accountID.String(), "amount": "1"},
			createErr:      domain.ErrAccountInactive,
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			var got usecase.CreateDepositCommand
			d.deposits.createFn = func(cmd usecase.CreateDepositCommand) (*domain.Deposit, error) {
				got = cmd
				if tt.createErr != nil {
					return nil, tt.createErr
				}
				return &domain.Deposit{ID: uuid.New(), AccountID: cmd.AccountID, Amount: cmd.Amount, CreatedAt: 1_000, IdempotencyKey: cmd.IdempotencyKey}, nil
			}
			w := doRequest(newTestRouter(d), http.MethodPost, "/v1/deposits", tt.body)
			if w.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.expectedStatus, w.Body.String())
			}
			if w.Code == http.StatusCreated {
				if got.AccountID != accountID || !got.Amount.Equal(decimal.NewFromInt(500)) || got.IdempotencyKey != "dep-1" {
					t.Fatalf("unexpected command %+v", got)
				}
			}
		})
	}
}

func TestAccountDepositHistoryQuery(t *testing.T) {
	d := newTestDeps()
	id := uuid.New()
	var gotRange domain.DateRange
	var gotPage domain.Pagination
	d.deposits.historyFn = func(accountID uuid.UUID, p domain.Pagination, r domain.DateRange) ([]*domain.Deposit, error) {
		gotPage, gotRange = p, r
		return []*domain.Deposit{}, nil
	}

	url := fmt.Sprintf("/v1/accounts/%s/deposits?dateStart=100&dateEnd=200&limit=20", id)
	w := doRequest(newTestRouter(d), http.MethodGet, url, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if gotRange != (domain.DateRange{Start: 100, End: 200}) {
		t.Fatalf("range = %+v", gotRange)
	}
	if gotPage.Limit != 20 {
		t.Fatalf("limit = %d", gotPage.Limit)
	}

	d.deposits.historyFn = func(uuid.UUID, domain.Pagination, domain.DateRange) ([]*domain.Deposit, error) {
		return nil, domain.ErrInvalidDateRange
	}
	url = fmt.Sprintf("/v1/accounts/%s/deposits?dateStart=300&dateEnd=200", id)
	if w := doRequest(newTestRouter(d), http.MethodGet, url, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("inverted range: status = %d, want 400", w.Code)
	}
}

func TestAccountTransferHistoryDirection(t *testing.T) {
	tests := []struct {
		query    string
		expected usecase.HistoryDirection
		status   int
	}{
		{query: "", expected: usecase.HistoryAll, status: http.StatusOK},
		{query: "?direction=all", expected: usecase.HistoryAll, status: http.StatusOK},
		{query: "?direction=out", expected: usecase.HistoryOut, status: http.StatusOK},
		{query: "?direction=in", expected: usecase.HistoryIn, status: http.StatusOK},
		{query: "?direction=sideways", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			d := newTestDeps()
			var got usecase.HistoryDirection = 255
			d.transfers.historyFn = func(dir usecase.HistoryDirection, _ uuid.UUID, _ domain.Pagination, _ domain.DateRange) ([]*domain.Transfer, error) {
				got = dir
				return []*domain.Transfer{}, nil
			}
			w := doRequest(newTestRouter(d), http.MethodGet, "/v1/accounts/"+uuid.NewString()+"/transfers"+tt.query, nil)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.status == http.StatusOK && got != tt.expected {
				t.Fatalf("direction = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestCreateTransfer(t *testing.T) {
	from, to := uuid.New(), uuid.New()
	tests := []struct {
		name           string
		body           any
		createErr      error
		expectedStatus int
	}{
		{
			name:           "success",
			body:           map[string]any{"outcomeAccountId": from.String(), "incomeAccountId": to.String(), "amount": "200", "reason": "rent"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "same account",
			body:           map[string]any{"outcomeAccountId": from.String(), "incomeAccountId": from.String(), "amount": "1"},
			createErr:      domain.ErrSameAccountTransfer,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "insufficient funds",
			body:           map[string]any{"outcomeAccountId": from.String(), "incomeAccountId": to.String(), "amount": "1000"},
			createErr:      domain.ErrInsufficientFunds,
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "consistency failure",
			body:           map[string]any{"outcomeAccountId": from.String(), "incomeAccountId": to.String(), "amount": "1"},
			createErr:      fmt.Errorf("transfer %s: %w", uuid.NewString(), domain.ErrConsistencyFailure),
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "missing income account",
			body:           map[string]any{"outcomeAccountId": from.String(), "amount": "1"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed json",
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			d.transfers.createFn = func(cmd usecase.CreateTransferCommand) (*domain.Transfer, error) {
				if tt.createErr != nil {
					return nil, tt.createErr
				}
				return &domain.Transfer{
					ID:               uuid.New(),
					OutcomeAccountID: cmd.OutcomeAccountID,
					IncomeAccountID:  cmd.IncomeAccountID,
					Amount:           cmd.Amount,
					Reason:           cmd.Reason,
					CreatedAt:        1_000,
				}, nil
			}
			w := doRequest(newTestRouter(d), http.MethodPost, "/v1/transfers", tt.body)
			if w.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.expectedStatus, w.Body.String())
			}
			if w.Code == http.StatusCreated {
				var got domain.Transfer
				if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if got.OutcomeAccountID != from || got.IncomeAccountID != to || got.Reason != "rent" || !got.Amount.Equal(decimal.NewFromInt(200)) {
					t.Fatalf("unexpected transfer %+v", got)
				}
			}
		})
	}
}

func TestRecordEndpoints(t *testing.T) {
	d := newTestDeps()
	depositID, transferID := uuid.New(), uuid.New()
	d.deposits.getFn = func(id uuid.UUID) (*domain.Deposit, error) {
		if id != depositID {
			return nil, domain.ErrDepositNotFound
		}
		return &domain.Deposit{ID: id, Amount: decimal.NewFromInt(1)}, nil
	}
	d.deposits.findAllFn = func(domain.Pagination) ([]*domain.Deposit, error) { return []*domain.Deposit{}, nil }
	d.deposits.deleteFn = func(id uuid.UUID, soft bool) error {
		if !soft {
			return errors.New("expected soft delete")
		}
		return nil
	}
	d.transfers.getFn = func(id uuid.UUID) (*domain.Transfer, error) {
		if id != transferID {
			return nil, domain.ErrTransferNotFound
		}
		return &domain.Transfer{ID: id, Amount: decimal.NewFromInt(1)}, nil
	}
	d.transfers.findAllFn = func(domain.Pagination) ([]*domain.Transfer, error) { return []*domain.Transfer{}, nil }
	d.transfers.deleteFn = func(uuid.UUID, bool) error { return domain.ErrTransferNotFound }

	router := newTestRouter(d)
	cases := []struct {
		method string
		url    string
		status int
	}{
		{http.MethodGet, "/v1/deposits/" + depositID.String(), http.StatusOK},
		{http.MethodGet, "/v1/deposits/" + uuid.NewString(), http.StatusNotFound},
		{http.MethodGet, "/v1/deposits", http.StatusOK},
		{http.MethodDelete, "/v1/deposits/" + depositID.String() + "?soft=true", http.StatusNoContent},
		{http.MethodGet, "/v1/transfers/" + transferID.String(), http.StatusOK},
		{http.MethodGet, "/v1/transfers/" + uuid.NewString(), http.StatusNotFound},
		{http.MethodGet, "/v1/transfers?limit=3", http.StatusOK},
		{http.MethodDelete, "/v1/transfers/" + uuid.NewString(), http.StatusNotFound},
	}
	for _, tc := range cases {
		w := doRequest(router, tc.method, tc.url, nil)
		if w.Code != tc.status {
			t.Errorf("%s %s: status = %d, want %d (body %s)", tc.method, tc.url, w.Code, tc.status, w.Body.String())
		}
	}
}

func TestListResponseReportsEffectiveLimit(t *testing.T) {
	d := newTestDeps()
	d.deposits.findAllFn = func(domain.Pagination) ([]*domain.Deposit, error) { return []*domain.Deposit{}, nil }
	w := doRequest(newTestRouter(d), http.MethodGet, "/v1/deposits", nil)
	var resp ListResponse[*domain.Deposit]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Limit != domain.DefaultLimit {
		t.Fatalf("limit = %d, want %d", resp.Limit, domain.DefaultLimit)
	}
}
