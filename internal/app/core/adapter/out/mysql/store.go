package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
)

// Store MySQL 帳務儲存層 (GORM)
//
// Atomically 在單一資料庫交易內以 SELECT ... FOR UPDATE 依 ID 遞增鎖定帳戶列，
// 多個交易以相同順序取鎖，不會互相死結
type Store struct {
	db *gorm.DB
}

func NewStore(client *mysql.Client) *Store {
	return &Store{db: client.DB()}
}

// Migrate 建立或更新資料表
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&sqlAccount{}, &sqlDeposit{}, &sqlTransfer{}); err != nil {
		return fmt.Errorf("%w: migrate: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) Repositories() usecase.Repositories {
	return repositories(s.db)
}

func (s *Store) Atomically(ctx context.Context, lockIDs []uuid.UUID, fn func(ctx context.Context, repos usecase.Repositories) error) error {
	ids := domain.SortIDs(lockIDs)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	// fnSucceeded 為 true 但 Transaction 仍失敗，代表 COMMIT 本身出錯，結果不明
	var fnSucceeded bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(keys) > 0 {
			var locked []sqlAccount
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id IN ?", keys).
				Order("id").
				Find(&locked).Error; err != nil {
				return storageError(err)
			}
		}
		if err := fn(ctx, repositories(tx)); err != nil {
			return err
		}
		fnSucceeded = true
		return nil
	})
	if err != nil && fnSucceeded {
		return fmt.Errorf("%w: %v", usecase.ErrCommitOutcomeUnknown, err)
	}
	return err
}

func repositories(db *gorm.DB) usecase.Repositories {
	return usecase.Repositories{
		Accounts:  &accountRepository{db: db},
		Deposits:  &depositRepository{db: db},
		Transfers: &transferRepository{db: db},
	}
}

// storageError 將 driver 錯誤包成 ErrStorageUnavailable，保留業務錯誤
func storageError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrStorageUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}

var _ usecase.Store = (*Store)(nil)
