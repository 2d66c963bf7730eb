package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceChangeReason 餘額異動原因
type BalanceChangeReason string

const (
	ReasonDeposit     BalanceChangeReason = "deposit"
	ReasonTransferOut BalanceChangeReason = "transfer_out"
	ReasonTransferIn  BalanceChangeReason = "transfer_in"
	ReasonCredit      BalanceChangeReason = "credit"
	ReasonDebit       BalanceChangeReason = "debit"
)

// BalanceChanged 提交後發出的餘額異動事件
// Delta 為有號數：入帳為正、扣款為負
type BalanceChanged struct {
	AccountID  uuid.UUID           `json:"accountId"`
	Delta      decimal.Decimal     `json:"delta"`
	Balance    decimal.Decimal     `json:"balance"`
	Reason     BalanceChangeReason `json:"reason"`
	Reference  uuid.UUID           `json:"reference"`
	OccurredAt int64               `json:"occurredAt"`
}
