package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// ErrCommitOutcomeUnknown 儲存層無法確認提交是否成功 (例如 COMMIT 時連線中斷)
// 由 AccountLedger 依紀錄是否存在決定最終結果
var ErrCommitOutcomeUnknown = errors.New("commit outcome unknown")

// AccountRepository 帳戶儲存介面
type AccountRepository interface {
	Register(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindOneByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Account, error)
	FindByCustomer(ctx context.Context, p domain.Pagination, customerID string) ([]*domain.Account, error)
	Update(ctx context.Context, id uuid.UUID, account *domain.Account) (*domain.Account, error)
	// Delete soft=true 時標記為停用，否則移除紀錄
	Delete(ctx context.Context, id uuid.UUID, soft bool) error
}

// DepositRepository 存款紀錄儲存介面
// 紀錄不可修改，因此沒有 Update
type DepositRepository interface {
	Register(ctx context.Context, deposit *domain.Deposit) (*domain.Deposit, error)
	FindOneByID(ctx context.Context, id uuid.UUID) (*domain.Deposit, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Deposit, error)
	FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Deposit, error)
	FindByAccountIDAndDateRange(ctx context.Context, p domain.Pagination, accountID uuid.UUID, r domain.DateRange) ([]*domain.Deposit, error)
	Delete(ctx context.Context, id uuid.UUID, soft bool) error
}

// TransferRepository 轉帳紀錄儲存介面
type TransferRepository interface {
	Register(ctx context.Context, transfer *domain.Transfer) (*domain.Transfer, error)
	FindOneByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transfer, error)
	FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Transfer, error)
	// FindByAccountIDAndDateRange 轉出或轉入任一方為該帳戶
	FindByAccountIDAndDateRange(ctx context.Context, p domain.Pagination, accountID uuid.UUID, r domain.DateRange) ([]*domain.Transfer, error)
	FindOutcomeByDateRange(ctx context.Context, p domain.Pagination, accountID uuid.UUID, r domain.DateRange) ([]*domain.Transfer, error)
	FindIncomeByDateRange(ctx context.Context, p domain.Pagination, accountID uuid.UUID, r domain.DateRange) ([]*domain.Transfer, error)
	Delete(ctx context.Context, id uuid.UUID, soft bool) error
}

// Repositories 同一個交易範圍內的 Repository 組合
type Repositories struct {
	Accounts  AccountRepository
	Deposits  DepositRepository
	Transfers TransferRepository
}

// Store 帳務儲存層
//
// 列表類查詢 (歷史紀錄) 的排序規則:
//
//	FindAll: Sequence 遞增 (寫入順序)
//	其他區間查詢: CreatedAt 遞減，再以 Sequence 遞減 (最新的在前)
//	已軟刪除的存款 / 轉帳紀錄不出現在列表中，但仍可用 FindOneByID 取得
type Store interface {
	// Repositories 回傳不在交易內的 Repository (每次寫入自動提交)
	Repositories() Repositories

	// Atomically 以 lockIDs 由小到大取得帳戶排他鎖後執行 fn
	// fn 回傳錯誤時所有寫入都不生效；成功時一次提交，讀取端不會看到中間狀態
	Atomically(ctx context.Context, lockIDs []uuid.UUID, fn func(ctx context.Context, repos Repositories) error) error
}

// Notifier 餘額異動通知，必須是非阻塞的 (fire-and-forget)
type Notifier interface {
	Notify(ctx context.Context, event domain.BalanceChanged)
}

// TokenIssuer 外部憑證服務：依客戶 ID 產生不透明的簽章 Token
type TokenIssuer interface {
	Issue(customerID string) (string, error)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, domain.BalanceChanged) {}
