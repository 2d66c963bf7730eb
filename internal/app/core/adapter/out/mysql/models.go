package mysql

import (
	"github.com/google/uuid"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// sqlAccount 對應資料庫的 accounts 表
// 金額以最小單位 (10^-4) 的整數儲存
type sqlAccount struct {
	ID            string `gorm:"primaryKey;type:char(36)"`
	CustomerID    string `gorm:"type:varchar(64);index;not null"`
	AccountTypeID string `gorm:"type:varchar(64);not null"`
	Balance       int64  `gorm:"not null"`
	Active        bool   `gorm:"not null"`
	CreatedAt     int64  `gorm:"autoCreateTime:false;not null"`
	UpdatedAt     int64  `gorm:"autoUpdateTime:false;not null"`
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlDeposit 對應資料庫的 deposits 表，Seq 為寫入順序
type sqlDeposit struct {
	Seq            uint64  `gorm:"primaryKey;autoIncrement"`
	ID             string  `gorm:"type:char(36);uniqueIndex;not null"`
	AccountID      string  `gorm:"type:char(36);index:idx_deposits_account_created,priority:1;not null"`
	Amount         int64   `gorm:"not null"`
	CreatedAt      int64   `gorm:"autoCreateTime:false;index:idx_deposits_account_created,priority:2;not null"`
	IdempotencyKey *string `gorm:"type:varchar(128);uniqueIndex"`
	DeletedAt      *int64
}

func (*sqlDeposit) TableName() string {
	return "deposits"
}

// sqlTransfer 對應資料庫的 transfers 表
type sqlTransfer struct {
	Seq              uint64  `gorm:"primaryKey;autoIncrement"`
	ID               string  `gorm:"type:char(36);uniqueIndex;not null"`
	OutcomeAccountID string  `gorm:"type:char(36);index:idx_transfers_outcome_created,priority:1;not null"`
	IncomeAccountID  string  `gorm:"type:char(36);index:idx_transfers_income_created,priority:1;not null"`
	Amount           int64   `gorm:"not null"`
	Reason           string  `gorm:"type:varchar(255)"`
	CreatedAt        int64   `gorm:"autoCreateTime:false;index:idx_transfers_outcome_created,priority:2;index:idx_transfers_income_created,priority:2;not null"`
	IdempotencyKey   *string `gorm:"type:varchar(128);uniqueIndex"`
	DeletedAt        *int64
}

func (*sqlTransfer) TableName() string {
	return "transfers"
}

func nullableKey(key string) *string {
	if key == "" {
		return nil
	}
	return &key
}

func keyValue(key *string) string {
	if key == nil {
		return ""
	}
	return *key
}

func parseID(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}

func toSQLAccount(a *domain.Account) (*sqlAccount, error) {
	balance, err := domain.ToUnits(a.Balance)
	if err != nil {
		return nil, err
	}
	return &sqlAccount{
		ID:            a.ID.String(),
		CustomerID:    a.CustomerID,
		AccountTypeID: a.AccountTypeID,
		Balance:       balance,
		Active:        a.Active,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}, nil
}

func (m *sqlAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:            parseID(m.ID),
		CustomerID:    m.CustomerID,
		AccountTypeID: m.AccountTypeID,
		Balance:       domain.FromUnits(m.Balance),
		Active:        m.Active,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toSQLDeposit(d *domain.Deposit) (*sqlDeposit, error) {
	amount, err := domain.ToUnits(d.Amount)
	if err != nil {
		return nil, err
	}
	return &sqlDeposit{
		ID:             d.ID.String(),
		AccountID:      d.AccountID.String(),
		Amount:         amount,
		CreatedAt:      d.CreatedAt,
		IdempotencyKey: nullableKey(d.IdempotencyKey),
		DeletedAt:      d.DeletedAt,
	}, nil
}

func (m *sqlDeposit) toDomain() *domain.Deposit {
	return &domain.Deposit{
		ID:             parseID(m.ID),
		AccountID:      parseID(m.AccountID),
		Amount:         domain.FromUnits(m.Amount),
		CreatedAt:      m.CreatedAt,
		Sequence:       m.Seq,
		IdempotencyKey: keyValue(m.IdempotencyKey),
		DeletedAt:      m.DeletedAt,
	}
}

func toSQLTransfer(t *domain.Transfer) (*sqlTransfer, error) {
	amount, err := domain.ToUnits(t.Amount)
	if err != nil {
		return nil, err
	}
	return &sqlTransfer{
		ID:               t.ID.String(),
		OutcomeAccountID: t.OutcomeAccountID.String(),
		IncomeAccountID:  t.IncomeAccountID.String(),
		Amount:           amount,
		Reason:           t.Reason,
		CreatedAt:        t.CreatedAt,
		IdempotencyKey:   nullableKey(t.IdempotencyKey),
		DeletedAt:        t.DeletedAt,
	}, nil
}

func (m *sqlTransfer) toDomain() *domain.Transfer {
	return &domain.Transfer{
		ID:               parseID(m.ID),
		OutcomeAccountID: parseID(m.OutcomeAccountID),
		IncomeAccountID:  parseID(m.IncomeAccountID),
		Amount:           domain.FromUnits(m.Amount),
		Reason:           m.Reason,
		CreatedAt:        m.CreatedAt,
		Sequence:         m.Seq,
		IdempotencyKey:   keyValue(m.IdempotencyKey),
		DeletedAt:        m.DeletedAt,
	}
}
