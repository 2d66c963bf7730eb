package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

const (
	accountColumns  = "id, customer_id, account_type_id, balance, active, created_at, updated_at"
	depositColumns  = "seq, id, account_id, amount, created_at, idempotency_key, deleted_at"
	transferColumns = "seq, id, outcome_account_id, income_account_id, amount, reason, created_at, idempotency_key, deleted_at"
	newestFirst     = " ORDER BY created_at DESC, seq DESC"
)

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

type accountRepository struct {
	q querier
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var balance int64
	if err := row.Scan(&a.ID, &a.CustomerID, &a.AccountTypeID, &balance, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Balance = domain.FromUnits(balance)
	return &a, nil
}

func (r *accountRepository) Register(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	cp := account.Clone()
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	balance, err := domain.ToUnits(cp.Balance)
	if err != nil {
		return nil, err
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, cp.ID.String(), cp.CustomerID, cp.AccountTypeID, balance, cp.Active, cp.CreatedAt, cp.UpdatedAt)
	if err != nil {
		return nil, storageError(err)
	}
	return cp, nil
}

func (r *accountRepository) FindOneByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	a, err := scanAccount(r.q.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = $1", id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	return a, nil
}

func (r *accountRepository) FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Account, error) {
	return r.list(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY created_at, id OFFSET $1 LIMIT $2", p.Offset, p.Limit)
}

func (r *accountRepository) FindByCustomer(ctx context.Context, p domain.Pagination, customerID string) ([]*domain.Account, error) {
	return r.list(ctx, "SELECT "+accountColumns+" FROM accounts WHERE customer_id = $1 ORDER BY created_at, id OFFSET $2 LIMIT $3", customerID, p.Offset, p.Limit)
}

func (r *accountRepository) list(ctx context.Context, sql string, args ...any) ([]*domain.Account, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, storageError(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Account, error) {
		return scanAccount(row)
	})
	if err != nil {
		return nil, storageError(err)
	}
	return out, nil
}

func (r *accountRepository) Update(ctx context.Context, id uuid.UUID, account *domain.Account) (*domain.Account, error) {
	cp := account.Clone()
	cp.ID = id
	balance, err := domain.ToUnits(cp.Balance)
	if err != nil {
		return nil, err
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE accounts
		SET customer_id = $2, account_type_id = $3, balance = $4, active = $5, updated_at = $6
		WHERE id = $1
	`, id.String(), cp.CustomerID, cp.AccountTypeID, balance, cp.Active, cp.UpdatedAt)
	if err != nil {
		return nil, storageError(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrAccountNotFound
	}
	return cp, nil
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID, soft bool) error {
	var (
		sql  = "DELETE FROM accounts WHERE id = $1"
		args = []any{id.String()}
	)
	if soft {
		sql = "UPDATE accounts SET active = FALSE, updated_at = $2 WHERE id = $1"
		args = append(args, time.Now().UnixMilli())
	}
	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return storageError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

type depositRepository struct {
	q querier
}

func scanDeposit(row pgx.Row) (*domain.Deposit, error) {
	var (
		d      domain.Deposit
		amount int64
		key    *string
	)
	if err := row.Scan(&d.Sequence, &d.ID, &d.AccountID, &amount, &d.CreatedAt, &key, &d.DeletedAt); err != nil {
		return nil, err
	}
	d.Amount = domain.FromUnits(amount)
	d.IdempotencyKey = keyValue(key)
	return &d, nil
}

func (r *depositRepository) Register(ctx context.Context, deposit *domain.Deposit) (*domain.Deposit, error) {
	id := deposit.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	amount, err := domain.ToUnits(deposit.Amount)
	if err != nil {
		return nil, err
	}
	created, err := scanDeposit(r.q.QueryRow(ctx, `
		INSERT INTO deposits (id, account_id, amount, created_at, idempotency_key, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+depositColumns,
		id.String(), deposit.AccountID.String(), amount, deposit.CreatedAt, nullableKey(deposit.IdempotencyKey), deposit.DeletedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrIdempotencyConflict
		}
		return nil, storageError(err)
	}
	return created, nil
}

func (r *depositRepository) FindOneByID(ctx context.Context, id uuid.UUID) (*domain.Deposit, error) {
	return r.first(ctx, "SELECT "+depositColumns+" FROM deposits WHERE id = $1", id.String())
}

func (r *depositRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Deposit, error) {
	return r.first(ctx, "SELECT "+depositColumns+" FROM deposits WHERE idempotency_key = $1", key)
}

func (r *depositRepository) first(ctx context.Context, sql string, args ...any) (*domain.Deposit, error) {
	d, err := scanDeposit(r.q.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDepositNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	return d, nil
}

func (r *depositRepository) FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Deposit, error) {
	return r.list(ctx, "SELECT "+depositColumns+" FROM deposits WHERE deleted_at IS NULL ORDER BY seq OFFSET $1 LIMIT $2", p.Offset, p.Limit)
}

func (r *depositRepository) FindByAccountIDAndDateRange(ctx context.Context, p domain.Pagination, accountID uuid.UUID, dr domain.DateRange) ([]*domain.Deposit, error) {
	return r.list(ctx, `
		SELECT `+depositColumns+` FROM deposits
		WHERE account_id = $1 AND deleted_at IS NULL AND created_at BETWEEN $2 AND $3`+newestFirst+`
		OFFSET $4 LIMIT $5
	`, accountID.String(), dr.Start, dr.End, p.Offset, p.Limit)
}

func (r *depositRepository) list(ctx context.Context, sql string, args ...any) ([]*domain.Deposit, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, storageError(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Deposit, error) {
		return scanDeposit(row)
	})
	if err != nil {
		return nil, storageError(err)
	}
	return out, nil
}

func (r *depositRepository) Delete(ctx context.Context, id uuid.UUID, soft bool) error {
	return deleteRecord(ctx, r.q, "deposits", id, soft, domain.ErrDepositNotFound)
}

type transferRepository struct {
	q querier
}

func scanTransfer(row pgx.Row) (*domain.Transfer, error) {
	var (
		t      domain.Transfer
		amount int64
		key    *string
	)
	if err := row.Scan(&t.Sequence, &t.ID, &t.OutcomeAccountID, &t.IncomeAccountID, &amount, &t.Reason, &t.CreatedAt, &key, &t.DeletedAt); err != nil {
		return nil, err
	}
	t.Amount = domain.FromUnits(amount)
	t.IdempotencyKey = keyValue(key)
	return &t, nil
}

func (r *transferRepository) Register(ctx context.Context, transfer *domain.Transfer) (*domain.Transfer, error) {
	id := transfer.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	amount, err := domain.ToUnits(transfer.Amount)
	if err != nil {
		return nil, err
	}
	created, err := scanTransfer(r.q.QueryRow(ctx, `
		INSERT INTO transfers (id, outcome_account_id, income_account_id, amount, reason, created_at, idempotency_key, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+transferColumns,
		id.String(), transfer.OutcomeAccountID.String(), transfer.IncomeAccountID.String(), amount,
		transfer.Reason, transfer.CreatedAt, nullableKey(transfer.IdempotencyKey), transfer.DeletedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrIdempotencyConflict
		}
		return nil, storageError(err)
	}
	return created, nil
}

func (r *transferRepository) FindOneByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	return r.first(ctx, "SELECT "+transferColumns+" FROM transfers WHERE id = $1", id.String())
}

func (r *transferRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transfer, error) {
	return r.first(ctx, "SELECT "+transferColumns+" FROM transfers WHERE idempotency_key = $1", key)
}

func (r *transferRepository) first(ctx context.Context, sql string, args ...any) (*domain.Transfer, error) {
	t, err := scanTransfer(r.q.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransferNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	return t, nil
}

func (r *transferRepository) FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Transfer, error) {
	return r.list(ctx, "SELECT "+transferColumns+" FROM transfers WHERE deleted_at IS NULL ORDER BY seq OFFSET $1 LIMIT $2", p.Offset, p.Limit)
}

func (r *transferRepository) FindByAccountIDAndDateRange(ctx context.Context, p domain.Pagination, accountID uuid.UUID, dr domain.DateRange) ([]*domain.Transfer, error) {
	return r.byRange(ctx, "(outcome_account_id = $1 OR income_account_id = $1)", p, accountID, dr)
}

func (r *transferRepository) FindOutcomeByDateRange(ctx context.Context, p domain.Pagination, accountID uuid.UUID, dr domain.DateRange) ([]*domain.Transfer, error) {
	return r.byRange(ctx, "outcome_account_id = $1", p, accountID, dr)
}

func (r *transferRepository) FindIncomeByDateRange(ctx context.Context, p domain.Pagination, accountID uuid.UUID, dr domain.DateRange) ([]*domain.Transfer, error) {
	return r.byRange(ctx, "income_account_id = $1", p, accountID, dr)
}

func (r *transferRepository) byRange(ctx context.Context, accountFilter string, p domain.Pagination, accountID uuid.UUID, dr domain.DateRange) ([]*domain.Transfer, error) {
	return r.list(ctx, `
		SELECT `+transferColumns+` FROM transfers
		WHERE `+accountFilter+` AND deleted_at IS NULL AND created_at BETWEEN $2 AND $3`+newestFirst+`
		OFFSET $4 LIMIT $5
	`, accountID.String(), dr.Start, dr.End, p.Offset, p.Limit)
}

func (r *transferRepository) list(ctx context.Context, sql string, args ...any) ([]*domain.Transfer, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, storageError(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Transfer, error) {
		return scanTransfer(row)
	})
	if err != nil {
		return nil, storageError(err)
	}
	return out, nil
}

func (r *transferRepository) Delete(ctx context.Context, id uuid.UUID, soft bool) error {
	return deleteRecord(ctx, r.q, "transfers", id, soft, domain.ErrTransferNotFound)
}

// deleteRecord 軟刪除只設定 deleted_at (重複軟刪除視為成功)，硬刪除移除整列
func deleteRecord(ctx context.Context, q querier, table string, id uuid.UUID, soft bool, notFound error) error {
	if !soft {
		tag, err := q.Exec(ctx, "DELETE FROM "+table+" WHERE id = $1", id.String())
		if err != nil {
			return storageError(err)
		}
		if tag.RowsAffected() == 0 {
			return notFound
		}
		return nil
	}

	tag, err := q.Exec(ctx, "UPDATE "+table+" SET deleted_at = COALESCE(deleted_at, $2) WHERE id = $1", id.String(), time.Now().UnixMilli())
	if err != nil {
		return storageError(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

var (
	_ usecase.AccountRepository  = (*accountRepository)(nil)
	_ usecase.DepositRepository  = (*depositRepository)(nil)
	_ usecase.TransferRepository = (*transferRepository)(nil)
)
