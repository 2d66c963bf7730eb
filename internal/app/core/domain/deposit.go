package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Deposit 存款紀錄，建立後除了軟刪除標記外不可修改
type Deposit struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      uuid.UUID       `json:"accountId"`
	Amount         decimal.Decimal `json:"amount"`
	CreatedAt      int64           `json:"createdAt"`
	Sequence       uint64          `json:"sequence"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	DeletedAt      *int64          `json:"deletedAt,omitempty"`
}

// Deleted 是否已軟刪除
func (d *Deposit) Deleted() bool {
	return d.DeletedAt != nil
}

// SamePayload 冪等重送時比對內容是否一致
func (d *Deposit) SamePayload(accountID uuid.UUID, amount decimal.Decimal) bool {
	return d.AccountID == accountID && d.Amount.Equal(amount)
}

func (d *Deposit) Clone() *Deposit {
	cp := *d
	if d.DeletedAt != nil {
		at := *d.DeletedAt
		cp.DeletedAt = &at
	}
	return &cp
}
