package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// CurrencyScale 金額精度：小數點後 4 位
// 資料庫以 int64 儲存 (乘上 10^CurrencyScale)
const CurrencyScale int32 = 4

var (
	// MaxAmount 單筆存款 / 轉帳上限
	MaxAmount = decimal.New(1, 12)

	// MaxBalance 帳戶餘額上限，換算成最小單位後仍在 int64 範圍內
	MaxBalance = decimal.New(9, 14)

	maxUnits = decimal.NewFromInt(math.MaxInt64)
	minUnits = decimal.NewFromInt(math.MinInt64)
)

// ValidateAmount 檢查金額是否為正數、不超過精度且不超過 MaxAmount
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(CurrencyScale)) {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(MaxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// ToUnits 將金額轉為最小單位整數 (儲存用)
//
// 超出 int64 範圍時回傳 ErrBalanceLimitExceeded，不會默默溢位
func ToUnits(amount decimal.Decimal) (int64, error) {
	units := amount.Shift(CurrencyScale).Truncate(0)
	if units.GreaterThan(maxUnits) || units.LessThan(minUnits) {
		return 0, ErrBalanceLimitExceeded
	}
	return units.IntPart(), nil
}

// FromUnits 將最小單位整數轉回金額
func FromUnits(units int64) decimal.Decimal {
	return decimal.New(units, -CurrencyScale)
}
