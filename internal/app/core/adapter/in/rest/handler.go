package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/validation"
)

// Handler 處理 /v1 底下的帳戶、存款、轉帳請求
type Handler struct {
	onboarder Onboarder
	accounts  AccountService
	deposits  DepositService
	transfers TransferService
}

func NewHandler(onboarder Onboarder, accounts AccountService, deposits DepositService, transfers TransferService) *Handler {
	return &Handler{
		onboarder: onboarder,
		accounts:  accounts,
		deposits:  deposits,
		transfers: transfers,
	}
}

// NewHandlerFromCore 以 CoreUseCase 組出 Handler
func NewHandlerFromCore(core *usecase.CoreUseCase) *Handler {
	return NewHandler(core, core.Accounts, core.Deposits, core.Transfers)
}

// bindJSON 解析並驗證 body，失敗時已寫入回應
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if errs := validation.Struct(req); errs != nil {
		respondWithValidationError(c, errs)
		return false
	}
	return true
}

func bindQuery(c *gin.Context, q any) bool {
	if err := c.ShouldBindQuery(q); err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return false
	}
	if errs := validation.Struct(q); errs != nil {
		respondWithValidationError(c, errs)
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondWithValidationError(c, []validation.FieldError{{
			Field:   name,
			Message: "Must be a valid UUID",
			Type:    "uuid",
		}})
		return uuid.Nil, false
	}
	return id, true
}

// Onboard POST /v1/onboarding
func (h *Handler) Onboard(c *gin.Context) {
	var req OnboardingRequest
	if !bindJSON(c, &req) {
		return
	}
	account, token, err := h.onboarder.Onboard(c.Request.Context(), usecase.OnboardCommand{
		CustomerID:    req.CustomerID,
		AccountTypeID: req.AccountTypeID,
		DocumentType:  req.DocumentType,
	})
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, OnboardingResponse{Account: account, Token: token})
}

// ListAccounts GET /v1/accounts，只列出 Token 所屬客戶的帳戶
func (h *Handler) ListAccounts(c *gin.Context) {
	customerID, ok := CustomerID(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, "Authorization token required")
		return
	}
	var q pageQuery
	if !bindQuery(c, &q) {
		return
	}
	accounts, err := h.accounts.FindByCustomer(c.Request.Context(), customerID, q.pagination())
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, newList(accounts, q.pagination()))
}

func (h *Handler) GetAccount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	account, err := h.accounts.Get(c.Request.Context(), id)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *Handler) GetBalance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	balance, err := h.accounts.GetBalance(c.Request.Context(), id)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{AccountID: id.String(), Balance: balance.String()})
}

func (h *Handler) ChangeAccountType(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ChangeAccountTypeRequest
	if !bindJSON(c, &req) {
		return
	}
	account, err := h.accounts.ChangeAccountType(c.Request.Context(), id, req.AccountTypeID)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *Handler) ChangeState(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ChangeStateRequest
	if !bindJSON(c, &req) {
		return
	}
	account, err := h.accounts.ChangeState(c.Request.Context(), id, *req.Active)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// DeleteAccount DELETE /v1/accounts/:id?soft=true
func (h *Handler) DeleteAccount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var q deleteQuery
	if !bindQuery(c, &q) {
		return
	}
	if err := h.accounts.Delete(c.Request.Context(), id, q.Soft); err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Credit(c *gin.Context) {
	h.post(c, h.accounts.Credit)
}

func (h *Handler) Debit(c *gin.Context) {
	h.post(c, h.accounts.Debit)
}

type postingFunc = func(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*domain.Account, error)

func (h *Handler) post(c *gin.Context, fn postingFunc) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AmountRequest
	if !bindJSON(c, &req) {
		return
	}
	account, err := fn(c.Request.Context(), id, decimal.RequireFromString(req.Amount))
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// AccountDeposits GET /v1/accounts/:id/deposits
func (h *Handler) AccountDeposits(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var q historyQuery
	if !bindQuery(c, &q) {
		return
	}
	deposits, err := h.deposits.GetAccountHistory(c.Request.Context(), id, q.pagination(), q.dateRange())
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, newList(deposits, q.pagination()))
}

// AccountTransfers GET /v1/accounts/:id/transfers?direction=out|in|all
func (h *Handler) AccountTransfers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var q historyQuery
	if !bindQuery(c, &q) {
		return
	}
	transfers, err := h.transfers.History(c.Request.Context(), q.direction(), id, q.pagination(), q.dateRange())
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, newList(transfers, q.pagination()))
}

func (h *Handler) CreateDeposit(c *gin.Context) {
	var req CreateDepositRequest
	if !bindJSON(c, &req) {
		return
	}
	deposit, err := h.deposits.CreateDeposit(c.Request.Context(), usecase.CreateDepositCommand{
		AccountID:      uuid.MustParse(req.AccountID),
		Amount:         decimal.RequireFromString(req.Amount),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, deposit)
}

func (h *Handler) ListDeposits(c *gin.Context) {
	var q pageQuery
	if !bindQuery(c, &q) {
		return
	}
	deposits, err := h.deposits.FindAll(c.Request.Context(), q.pagination())
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, newList(deposits, q.pagination()))
}

func (h *Handler) GetDeposit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	deposit, err := h.deposits.Get(c.Request.Context(), id)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, deposit)
}

// DeleteDeposit 只刪除紀錄，不沖回餘額
func (h *Handler) DeleteDeposit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var q deleteQuery
	if !bindQuery(c, &q) {
		return
	}
	if err := h.deposits.DeleteDeposit(c.Request.Context(), id, q.Soft); err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateTransfer(c *gin.Context) {
	var req CreateTransferRequest
	if !bindJSON(c, &req) {
		return
	}
	transfer, err := h.transfers.CreateTransfer(c.Request.Context(), usecase.CreateTransferCommand{
		OutcomeAccountID: uuid.MustParse(req.OutcomeAccountID),
		IncomeAccountID:  uuid.MustParse(req.IncomeAccountID),
		Amount:           decimal.RequireFromString(req.Amount),
		Reason:           req.Reason,
		IdempotencyKey:   req.IdempotencyKey,
	})
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, transfer)
}

func (h *Handler) ListTransfers(c *gin.Context) {
	var q pageQuery
	if !bindQuery(c, &q) {
		return
	}
	transfers, err := h.transfers.FindAll(c.Request.Context(), q.pagination())
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, newList(transfers, q.pagination()))
}

func (h *Handler) GetTransfer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	transfer, err := h.transfers.Get(c.Request.Context(), id)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, transfer)
}

// DeleteTransfer 只刪除紀錄，不沖回餘額
func (h *Handler) DeleteTransfer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var q deleteQuery
	if !bindQuery(c, &q) {
		return
	}
	if err := h.transfers.DeleteTransfer(c.Request.Context(), id, q.Soft); err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
