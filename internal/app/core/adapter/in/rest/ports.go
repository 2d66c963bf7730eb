package rest

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// Onboarder 開戶流程
type Onboarder interface {
	Onboard(ctx context.Context, cmd usecase.OnboardCommand) (*domain.Account, string, error)
}

// AccountService 帳戶相關操作 (由 usecase.AccountLedger 實作)
type AccountService interface {
	Get(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	FindByCustomer(ctx context.Context, customerID string, p domain.Pagination) ([]*domain.Account, error)
	Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*domain.Account, error)
	Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*domain.Account, error)
	ChangeAccountType(ctx context.Context, accountID uuid.UUID, accountTypeID string) (*domain.Account, error)
	ChangeState(ctx context.Context, accountID uuid.UUID, active bool) (*domain.Account, error)
	Delete(ctx context.Context, accountID uuid.UUID, soft bool) error
}

// DepositService 存款相關操作 (由 usecase.DepositService 實作)
type DepositService interface {
	CreateDeposit(ctx context.Context, cmd usecase.CreateDepositCommand) (*domain.Deposit, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Deposit, error)
	FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Deposit, error)
	GetAccountHistory(ctx context.Context, accountID uuid.UUID, p domain.Pagination, r domain.DateRange) ([]*domain.Deposit, error)
	DeleteDeposit(ctx context.Context, id uuid.UUID, soft bool) error
}

// TransferService 轉帳相關操作 (由 usecase.TransferService 實作)
type TransferService interface {
	CreateTransfer(ctx context.Context, cmd usecase.CreateTransferCommand) (*domain.Transfer, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Transfer, error)
	FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Transfer, error)
	History(ctx context.Context, direction usecase.HistoryDirection, accountID uuid.UUID, p domain.Pagination, r domain.DateRange) ([]*domain.Transfer, error)
	DeleteTransfer(ctx context.Context, id uuid.UUID, soft bool) error
}

// TokenVerifier 驗證客戶 Token，回傳 customer id
type TokenVerifier interface {
	Verify(token string) (string, error)
}

var (
	_ AccountService  = (*usecase.AccountLedger)(nil)
	_ DepositService  = (*usecase.DepositService)(nil)
	_ TransferService = (*usecase.TransferService)(nil)
	_ Onboarder       = (*usecase.CoreUseCase)(nil)
)
