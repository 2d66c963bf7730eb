package rest

import (
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

type OnboardingRequest struct {
	CustomerID    string `json:"customerId" validate:"required,max=64"`
	AccountTypeID string `json:"accountTypeId" validate:"required,max=64"`
	DocumentType  string `json:"documentType" validate:"required"`
}

type OnboardingResponse struct {
	Account *domain.Account `json:"account"`
	Token   string          `json:"token,omitempty"`
}

type ChangeAccountTypeRequest struct {
	AccountTypeID string `json:"accountTypeId" validate:"required,max=64"`
}

type ChangeStateRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type AmountRequest struct {
	Amount string `json:"amount" validate:"required,amount"`
}

type CreateDepositRequest struct {
	AccountID      string `json:"accountId" validate:"required,uuid"`
	Amount         string `json:"amount" validate:"required,amount"`
	IdempotencyKey string `json:"idempotencyKey,omitempty" validate:"max=128"`
}

type CreateTransferRequest struct {
	OutcomeAccountID string `json:"outcomeAccountId" validate:"required,uuid"`
	IncomeAccountID  string `json:"incomeAccountId" validate:"required,uuid"`
	Amount           string `json:"amount" validate:"required,amount"`
	Reason           string `json:"reason,omitempty" validate:"max=255"`
	IdempotencyKey   string `json:"idempotencyKey,omitempty" validate:"max=128"`
}

type BalanceResponse struct {
	AccountID string `json:"accountId"`
	Balance   string `json:"balance"`
}

type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

func newList[T any](items []T, p domain.Pagination) ListResponse[T] {
	if n, err := p.Normalize(); err == nil {
		p = n
	}
	return ListResponse[T]{Items: items, Offset: p.Offset, Limit: p.Limit}
}

// pageQuery ?offset=&limit=
type pageQuery struct {
	Offset int `form:"offset" json:"offset" validate:"gte=0"`
	Limit  int `form:"limit" json:"limit" validate:"gte=0,lte=1000"`
}

func (q pageQuery) pagination() domain.Pagination {
	return domain.Pagination{Offset: q.Offset, Limit: q.Limit}
}

// historyQuery ?offset=&limit=&dateStart=&dateEnd=&direction=
type historyQuery struct {
	pageQuery
	DateStart int64  `form:"dateStart" json:"dateStart" validate:"gte=0"`
	DateEnd   int64  `form:"dateEnd" json:"dateEnd" validate:"gte=0"`
	Direction string `form:"direction" json:"direction" validate:"omitempty,oneof=in out all"`
}

func (q historyQuery) dateRange() domain.DateRange {
	return domain.DateRange{Start: q.DateStart, End: q.DateEnd}
}

func (q historyQuery) direction() usecase.HistoryDirection {
	switch q.Direction {
	case "in":
		return usecase.HistoryIn
	case "out":
		return usecase.HistoryOut
	default:
		return usecase.HistoryAll
	}
}

type deleteQuery struct {
	Soft bool `form:"soft"`
}
