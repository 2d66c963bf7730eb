package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account 銀行帳戶
//
// Balance 只能透過 Credit / Debit 異動，且永遠 >= 0
type Account struct {
	ID            uuid.UUID       `json:"id"`
	CustomerID    string          `json:"customerId"`
	AccountTypeID string          `json:"accountTypeId"`
	Balance       decimal.Decimal `json:"balance"`
	Active        bool            `json:"active"`
	CreatedAt     int64           `json:"createdAt"`
	UpdatedAt     int64           `json:"updatedAt"`
}

// NewAccount 建立餘額為 0 的啟用帳戶
//
// 參數:
//
//	customerID: 客戶參照
//	accountTypeID: 帳戶類型參照
//	now: 建立時間 (epoch millis)
//
// 回傳:
//
//	*Account: 新帳戶 (已分配 ID)
//	error: 參照為空時回傳 ErrInvalidReference
func NewAccount(customerID, accountTypeID string, now int64) (*Account, error) {
	if customerID == "" || accountTypeID == "" {
		return nil, ErrInvalidReference
	}
	return &Account{
		ID:            uuid.New(),
		CustomerID:    customerID,
		AccountTypeID: accountTypeID,
		Balance:       decimal.Zero,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Credit 入帳，入帳後餘額超過 MaxBalance 時不做任何異動
func (a *Account) Credit(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if !a.Active {
		return ErrAccountInactive
	}
	next := a.Balance.Add(amount)
	if next.GreaterThan(MaxBalance) {
		return ErrBalanceLimitExceeded
	}
	a.Balance = next
	return nil
}

// Debit 扣款，餘額不足時不做任何異動
func (a *Account) Debit(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if !a.Active {
		return ErrAccountInactive
	}
	if a.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// CanDelete 餘額為 0 才可刪除
func (a *Account) CanDelete() error {
	if !a.Balance.IsZero() {
		return ErrAccountNotEmpty
	}
	return nil
}

// Clone 複製一份帳戶，避免呼叫端改到儲存層持有的物件
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}
