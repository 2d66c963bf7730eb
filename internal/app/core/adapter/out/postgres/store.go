package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

//go:embed schema.sql
var schema string

// querier pgxpool.Pool 與 pgx.Tx 共用的查詢介面
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store PostgreSQL 帳務儲存層 (pgx)
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate 執行內嵌的 schema.sql
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: apply schema: %v", domain.ErrStorageUnavailable, err)
		}
	}
	return nil
}

func (s *Store) Repositories() usecase.Repositories {
	return repositories(s.pool)
}

// Atomically 開啟交易，依 ID 遞增以 FOR UPDATE 鎖定帳戶後執行 fn；COMMIT 失敗回傳 ErrCommitOutcomeUnknown
func (s *Store) Atomically(ctx context.Context, lockIDs []uuid.UUID, fn func(ctx context.Context, repos usecase.Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storageError(err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if ids := domain.SortIDs(lockIDs); len(ids) > 0 {
		if _, err := tx.Exec(ctx, "SELECT id FROM accounts WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE", idStrings(ids)); err != nil {
			return storageError(err)
		}
	}

	if err := fn(ctx, repositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", usecase.ErrCommitOutcomeUnknown, err)
	}
	return nil
}

func repositories(q querier) usecase.Repositories {
	return usecase.Repositories{
		Accounts:  &accountRepository{q: q},
		Deposits:  &depositRepository{q: q},
		Transfers: &transferRepository{q: q},
	}
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505"
}

func storageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrStorageUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}

var _ usecase.Store = (*Store)(nil)
