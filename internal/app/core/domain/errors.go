package domain

import "errors"

var (
	// ErrInvalidAmount 金額必須為正數、不超過 MaxAmount，且小數位數不可超過 CurrencyScale
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrBalanceLimitExceeded 入帳後餘額超過 MaxBalance
	ErrBalanceLimitExceeded = errors.New("balance limit exceeded")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountInactive 帳戶已停用，不可再異動餘額
	ErrAccountInactive = errors.New("account inactive")

	// ErrAccountNotEmpty 帳戶餘額不為零，不可刪除
	ErrAccountNotEmpty = errors.New("account not empty")

	// ErrSameAccountTransfer 轉出與轉入帳戶相同
	ErrSameAccountTransfer = errors.New("same account transfer")

	// ErrInvalidReference 客戶或帳戶類型參照為空
	ErrInvalidReference = errors.New("invalid reference")

	// ErrDepositNotFound 找不到存款紀錄
	ErrDepositNotFound = errors.New("deposit not found")

	// ErrTransferNotFound 找不到轉帳紀錄
	ErrTransferNotFound = errors.New("transfer not found")

	// ErrIdempotencyConflict 相同冪等鍵但內容不同
	ErrIdempotencyConflict = errors.New("idempotency key reused with different payload")

	// ErrInvalidPagination offset 不可為負數，limit 不可為負數
	ErrInvalidPagination = errors.New("invalid pagination")

	// ErrInvalidDateRange 起始時間晚於結束時間
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrUnsupportedDocumentType 不支援的證件類型
	ErrUnsupportedDocumentType = errors.New("unsupported document type")

	// ErrStorageUnavailable 儲存層錯誤 (連線、逾時、WAL 寫入失敗)，不可視為業務錯誤
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrConsistencyFailure 提交結果無法確認，需人工對帳
	ErrConsistencyFailure = errors.New("consistency failure")
)
