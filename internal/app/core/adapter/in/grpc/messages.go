package grpc

// LedgerService 的請求 / 回應訊息，以 JSON codec 傳輸
// 金額一律使用十進位字串，避免浮點誤差

type Account struct {
	ID            string `json:"id"`
	CustomerID    string `json:"customerId"`
	AccountTypeID string `json:"accountTypeId"`
	Balance       string `json:"balance"`
	Active        bool   `json:"active"`
	CreatedAt     int64  `json:"createdAt"`
	UpdatedAt     int64  `json:"updatedAt"`
}

type Deposit struct {
	ID        string `json:"id"`
	AccountID string `json:"accountId"`
	Amount    string `json:"amount"`
	CreatedAt int64  `json:"createdAt"`
}

type Transfer struct {
	ID               string `json:"id"`
	OutcomeAccountID string `json:"outcomeAccountId"`
	IncomeAccountID  string `json:"incomeAccountId"`
	Amount           string `json:"amount"`
	Reason           string `json:"reason,omitempty"`
	CreatedAt        int64  `json:"createdAt"`
}

type CreateAccountRequest struct {
	CustomerID    string `json:"customerId" validate:"required,max=64"`
	AccountTypeID string `json:"accountTypeId" validate:"required,max=64"`
	DocumentType  string `json:"documentType" validate:"required"`
}

type CreateAccountResponse struct {
	Account *Account `json:"account"`
	Token   string   `json:"token,omitempty"`
}

type GetBalanceRequest struct {
	AccountID string `json:"accountId" validate:"required,uuid"`
}

type GetBalanceResponse struct {
	AccountID string `json:"accountId"`
	Balance   string `json:"balance"`
}

type DepositRequest struct {
	AccountID      string `json:"accountId" validate:"required,uuid"`
	Amount         string `json:"amount" validate:"required"`
	IdempotencyKey string `json:"idempotencyKey,omitempty" validate:"max=128"`
}

type DepositResponse struct {
	Deposit *Deposit `json:"deposit"`
	Balance string   `json:"balance"`
}

type TransferRequest struct {
	OutcomeAccountID string `json:"outcomeAccountId" validate:"required,uuid"`
	IncomeAccountID  string `json:"incomeAccountId" validate:"required,uuid"`
	Amount           string `json:"amount" validate:"required"`
	Reason           string `json:"reason,omitempty" validate:"max=255"`
	IdempotencyKey   string `json:"idempotencyKey,omitempty" validate:"max=128"`
}

type TransferResponse struct {
	Transfer       *Transfer `json:"transfer"`
	OutcomeBalance string    `json:"outcomeBalance"`
}

// HistoryKind 歷史紀錄種類
const (
	HistoryDeposits  = "deposits"
	HistoryTransfers = "transfers"
)

type AccountHistoryRequest struct {
	AccountID string `json:"accountId" validate:"required,uuid"`
	Kind      string `json:"kind" validate:"required,oneof=deposits transfers"`
	Direction string `json:"direction,omitempty" validate:"omitempty,oneof=all in out"`
	Offset    int    `json:"offset" validate:"gte=0"`
	Limit     int    `json:"limit" validate:"gte=0"`
	DateStart int64  `json:"dateStart" validate:"gte=0"`
	DateEnd   int64  `json:"dateEnd" validate:"gte=0"`
}

type AccountHistoryResponse struct {
	Deposits  []*Deposit  `json:"deposits,omitempty"`
	Transfers []*Transfer `json:"transfers,omitempty"`
}
