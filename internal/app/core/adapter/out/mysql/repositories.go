package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// newestFirst 區間查詢排序
const newestFirst = "created_at DESC, seq DESC"

func page(db *gorm.DB, p domain.Pagination) *gorm.DB {
	return db.Offset(p.Offset).Limit(p.Limit)
}

func inRange(db *gorm.DB, r domain.DateRange) *gorm.DB {
	return db.Where("created_at BETWEEN ? AND ?", r.Start, r.End)
}

type accountRepository struct {
	db *gorm.DB
}

func (r *accountRepository) Register(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	row, err := toSQLAccount(account)
	if err != nil {
		return nil, err
	}
	if account.ID == uuid.Nil {
		row.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, storageError(err)
	}
	return row.toDomain(), nil
}

func (r *accountRepository) FindOneByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var row sqlAccount
	err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	return row.toDomain(), nil
}

func (r *accountRepository) FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Account, error) {
	return r.find(page(r.db.WithContext(ctx), p))
}

func (r *accountRepository) FindByCustomer(ctx context.Context, p domain.Pagination, customerID string) ([]*domain.Account, error) {
	return r.find(page(r.db.WithContext(ctx).Where("customer_id = ?", customerID), p))
}

func (r *accountRepository) find(q *gorm.DB) ([]*domain.Account, error) {
	var rows []sqlAccount
	if err := q.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, storageError(err)
	}
	out := make([]*domain.Account, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (r *accountRepository) Update(ctx context.Context, id uuid.UUID, account *domain.Account) (*domain.Account, error) {
	row, err := toSQLAccount(account)
	if err != nil {
		return nil, err
	}
	row.ID = id.String()
	res := r.db.WithContext(ctx).Model(&sqlAccount{}).Where("id = ?", row.ID).Updates(map[string]any{
		"customer_id":     row.CustomerID,
		"account_type_id": row.AccountTypeID,
		"balance":         row.Balance,
		"active":          row.Active,
		"updated_at":      row.UpdatedAt,
	})
	if res.Error != nil {
		return nil, storageError(res.Error)
	}
	// MySQL 對內容未變的列回報 0 筆，需再確認是否存在
	if res.RowsAffected == 0 {
		if err := r.exists(ctx, row.ID); err != nil {
			return nil, err
		}
	}
	return row.toDomain(), nil
}

func (r *accountRepository) exists(ctx context.Context, id string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&sqlAccount{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return storageError(err)
	}
	if count == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID, soft bool) error {
	db := r.db.WithContext(ctx)
	var res *gorm.DB
	if soft {
		res = db.Model(&sqlAccount{}).Where("id = ?", id.String()).Updates(map[string]any{
			"active":     false,
			"updated_at": time.Now().UnixMilli(),
		})
	} else {
		res = db.Where("id = ?", id.String()).Delete(&sqlAccount{})
	}
	if res.Error != nil {
		return storageError(res.Error)
	}
	if res.RowsAffected == 0 {
		return r.exists(ctx, id.String())
	}
	return nil
}

type depositRepository struct {
	db *gorm.DB
}

func (r *depositRepository) Register(ctx context.Context, deposit *domain.Deposit) (*domain.Deposit, error) {
	row, err := toSQLDeposit(deposit)
	if err != nil {
		return nil, err
	}
	if deposit.ID == uuid.Nil {
		row.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrIdempotencyConflict
		}
		return nil, storageError(err)
	}
	return row.toDomain(), nil
}

func (r *depositRepository) FindOneByID(ctx context.Context, id uuid.UUID) (*domain.Deposit, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id.String()))
}

func (r *depositRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Deposit, error) {
	return r.first(r.db.WithContext(ctx).Where("idempotency_key = ?", key))
}

func (r *depositRepository) first(q *gorm.DB) (*domain.Deposit, error) {
	var row sqlDeposit
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDepositNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	return row.toDomain(), nil
}

func (r *depositRepository) FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Deposit, error) {
	return r.find(page(r.live(ctx), p).Order("seq"))
}

func (r *depositRepository) FindByAccountIDAndDateRange(ctx context.Context, p domain.Pagination, accountID uuid.UUID, dr domain.DateRange) ([]*domain.Deposit, error) {
	q := inRange(r.live(ctx).Where("account_id = ?", accountID.String()), dr)
	return r.find(page(q, p).Order(newestFirst))
}

func (r *depositRepository) live(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Where("deleted_at IS NULL")
}

func (r *depositRepository) find(q *gorm.DB) ([]*domain.Deposit, error) {
	var rows []sqlDeposit
	if err := q.Find(&rows).Error; err != nil {
		return nil, storageError(err)
	}
	out := make([]*domain.Deposit, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (r *depositRepository) Delete(ctx context.Context, id uuid.UUID, soft bool) error {
	return deleteRecord(r.db.WithContext(ctx), &sqlDeposit{}, id, soft, domain.ErrDepositNotFound)
}

type transferRepository struct {
	db *gorm.DB
}

func (r *transferRepository) Register(ctx context.Context, transfer *domain.Transfer) (*domain.Transfer, error) {
	row, err := toSQLTransfer(transfer)
	if err != nil {
		return nil, err
	}
	if transfer.ID == uuid.Nil {
		row.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrIdempotencyConflict
		}
		return nil, storageError(err)
	}
	return row.toDomain(), nil
}

func (r *transferRepository) FindOneByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id.String()))
}

func (r *transferRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transfer, error) {
	return r.first(r.db.WithContext(ctx).Where("idempotency_key = ?", key))
}

func (r *transferRepository) first(q *gorm.DB) (*domain.Transfer, error) {
	var row sqlTransfer
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTransferNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	return row.toDomain(), nil
}

func (r *transferRepository) FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Transfer, error) {
	return r.find(page(r.live(ctx), p).Order("seq"))
}

func (r *transferRepository) FindByAccountIDAndDateRange(ctx context.Context, p domain.Pagination, accountID uuid.UUID, dr domain.DateRange) ([]*domain.Transfer, error) {
	id := accountID.String()
	q := inRange(r.live(ctx).Where("(outcome_account_id = ? OR income_account_id = ?)", id, id), dr)
	return r.find(page(q, p).Order(newestFirst))
}

func (r *transferRepository) FindOutcomeByDateRange(ctx context.Context, p domain.Pagination, accountID uuid.UUID, dr domain.DateRange) ([]*domain.Transfer, error) {
	q := inRange(r.live(ctx).Where("outcome_account_id = ?", accountID.String()), dr)
	return r.find(page(q, p).Order(newestFirst))
}

func (r *transferRepository) FindIncomeByDateRange(ctx context.Context, p domain.Pagination, accountID uuid.UUID, dr domain.DateRange) ([]*domain.Transfer, error) {
	q := inRange(r.live(ctx).Where("income_account_id = ?", accountID.String()), dr)
	return r.find(page(q, p).Order(newestFirst))
}

func (r *transferRepository) live(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Where("deleted_at IS NULL")
}

func (r *transferRepository) find(q *gorm.DB) ([]*domain.Transfer, error) {
	var rows []sqlTransfer
	if err := q.Find(&rows).Error; err != nil {
		return nil, storageError(err)
	}
	out := make([]*domain.Transfer, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (r *transferRepository) Delete(ctx context.Context, id uuid.UUID, soft bool) error {
	return deleteRecord(r.db.WithContext(ctx), &sqlTransfer{}, id, soft, domain.ErrTransferNotFound)
}

// deleteRecord 刪除存款 / 轉帳紀錄；軟刪除只設定 deleted_at，重複軟刪除視為成功
func deleteRecord(db *gorm.DB, model any, id uuid.UUID, soft bool, notFound error) error {
	var res *gorm.DB
	if soft {
		res = db.Model(model).
			Where("id = ? AND deleted_at IS NULL", id.String()).
			Update("deleted_at", time.Now().UnixMilli())
	} else {
		res = db.Where("id = ?", id.String()).Delete(model)
	}
	if res.Error != nil {
		return storageError(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(model).Where("id = ?", id.String()).Count(&count).Error; err != nil {
		return storageError(err)
	}
	if count == 0 || !soft {
		return notFound
	}
	return nil
}

var (
	_ usecase.AccountRepository  = (*accountRepository)(nil)
	_ usecase.DepositRepository  = (*depositRepository)(nil)
	_ usecase.TransferRepository = (*transferRepository)(nil)
)
