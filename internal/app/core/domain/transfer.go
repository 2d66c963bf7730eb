package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferState 單次轉帳的狀態機
//
//	Validating -> Debiting -> Crediting -> Recording -> Committed
//	Validating / Debiting 失敗 -> Rejected
type TransferState uint8

const (
	TransferValidating TransferState = iota + 1
	TransferDebiting
	TransferCrediting
	TransferRecording
	TransferCommitted
	TransferRejected
)

func (s TransferState) String() string {
	switch s {
	case TransferValidating:
		return "validating"
	case TransferDebiting:
		return "debiting"
	case TransferCrediting:
		return "crediting"
	case TransferRecording:
		return "recording"
	case TransferCommitted:
		return "committed"
	case TransferRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Transfer 轉帳紀錄 (Outcome 轉出, Income 轉入)
type Transfer struct {
	ID               uuid.UUID       `json:"id"`
	OutcomeAccountID uuid.UUID       `json:"outcomeAccountId"`
	IncomeAccountID  uuid.UUID       `json:"incomeAccountId"`
	Amount           decimal.Decimal `json:"amount"`
	Reason           string          `json:"reason"`
	CreatedAt        int64           `json:"createdAt"`
	Sequence         uint64          `json:"sequence"`
	IdempotencyKey   string          `json:"idempotencyKey,omitempty"`
	DeletedAt        *int64          `json:"deletedAt,omitempty"`
}

// ValidateTransfer 在任何餘額異動前檢查轉帳參數
func ValidateTransfer(outcome, income uuid.UUID, amount decimal.Decimal) error {
	if outcome == income {
		return ErrSameAccountTransfer
	}
	return ValidateAmount(amount)
}

// Deleted 是否已軟刪除
func (t *Transfer) Deleted() bool {
	return t.DeletedAt != nil
}

// SamePayload 冪等重送時比對內容是否一致
func (t *Transfer) SamePayload(outcome, income uuid.UUID, amount decimal.Decimal) bool {
	return t.OutcomeAccountID == outcome && t.IncomeAccountID == income && t.Amount.Equal(amount)
}

// GetLockIDs 回傳需要鎖定的帳號 ID，並確保順序以避免死鎖
func (t *Transfer) GetLockIDs() []uuid.UUID {
	return SortIDs([]uuid.UUID{t.OutcomeAccountID, t.IncomeAccountID})
}

func (t *Transfer) Clone() *Transfer {
	cp := *t
	if t.DeletedAt != nil {
		at := *t.DeletedAt
		cp.DeletedAt = &at
	}
	return &cp
}
