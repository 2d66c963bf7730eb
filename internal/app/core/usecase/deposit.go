package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// CreateDepositCommand 存款請求
type CreateDepositCommand struct {
	AccountID      uuid.UUID
	Amount         decimal.Decimal
	IdempotencyKey string
}

// DepositService 存款服務
// 存款紀錄與入帳在同一個交易內完成；刪除紀錄不會沖回餘額
type DepositService struct {
	ledger *AccountLedger
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewDepositService(ledger *AccountLedger, store Store, logger zerolog.Logger, opts ...Option) *DepositService {
	o := newOptions(opts)
	return &DepositService{
		ledger: ledger,
		store:  store,
		logger: logger.With().Str("component", "deposit_service").Logger(),
		now:    o.now,
	}
}

// CreateDeposit 建立存款
//
// 參數:
//
//	cmd: 存款請求，IdempotencyKey 可為空
//
// 回傳:
//
//	*domain.Deposit: 存款紀錄 (冪等重送時回傳第一次的紀錄)
//	error: ErrInvalidAmount / ErrAccountNotFound / ErrAccountInactive / ErrIdempotencyConflict / 儲存錯誤
func (s *DepositService) CreateDeposit(ctx context.Context, cmd CreateDepositCommand) (*domain.Deposit, error) {
	if err := domain.ValidateAmount(cmd.Amount); err != nil {
		return nil, err
	}
	if cmd.IdempotencyKey != "" {
		if existing, err := s.replay(ctx, cmd); existing != nil || err != nil {
			return existing, err
		}
	}

	deposit := &domain.Deposit{
		ID:             uuid.New(),
		AccountID:      cmd.AccountID,
		Amount:         cmd.Amount,
		IdempotencyKey: cmd.IdempotencyKey,
	}
	_, err := s.ledger.apply(ctx, entry{
		reference: deposit.ID,
		postings: []Posting{
			{AccountID: cmd.AccountID, Amount: cmd.Amount, Direction: DirectionCredit, Reason: domain.ReasonDeposit},
		},
		record: func(ctx context.Context, repos Repositories, at int64) error {
			deposit.CreatedAt = at
			created, err := repos.Deposits.Register(ctx, deposit)
			if err != nil {
				return err
			}
			deposit = created
			return nil
		},
		committed: func(ctx context.Context, repos Repositories) (bool, error) {
			_, err := repos.Deposits.FindOneByID(ctx, deposit.ID)
			if errors.Is(err, domain.ErrDepositNotFound) {
				return false, nil
			}
			return err == nil, err
		},
	})
	if errors.Is(err, domain.ErrIdempotencyConflict) && cmd.IdempotencyKey != "" {
		// 同一個 key 併發送出，另一筆已先提交
		if existing, rerr := s.replay(ctx, cmd); existing != nil || rerr != nil {
			return existing, rerr
		}
	}
	if err != nil {
		s.logger.Info().Err(err).Str("account_id", cmd.AccountID.String()).Msg("deposit rejected")
		return nil, err
	}

	s.logger.Info().
		Str("deposit_id", deposit.ID.String()).
		Str("account_id", deposit.AccountID.String()).
		Str("amount", deposit.Amount.String()).
		Msg("deposit created")
	return deposit, nil
}

// replay 依冪等鍵找回既有紀錄，找不到時回傳 (nil, nil)
func (s *DepositService) replay(ctx context.Context, cmd CreateDepositCommand) (*domain.Deposit, error) {
	existing, err := s.store.Repositories().Deposits.FindByIdempotencyKey(ctx, cmd.IdempotencyKey)
	if errors.Is(err, domain.ErrDepositNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !existing.SamePayload(cmd.AccountID, cmd.Amount) {
		return nil, domain.ErrIdempotencyConflict
	}
	return existing, nil
}

// Get 取得單筆存款 (包含已軟刪除)
func (s *DepositService) Get(ctx context.Context, id uuid.UUID) (*domain.Deposit, error) {
	return s.store.Repositories().Deposits.FindOneByID(ctx, id)
}

// FindAll 依寫入順序列出存款
func (s *DepositService) FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Deposit, error) {
	p, err := p.Normalize()
	if err != nil {
		return nil, err
	}
	return s.store.Repositories().Deposits.FindAll(ctx, p)
}

// GetAccountHistory 帳戶存款歷史，最新的在前
//
// 預設值: offset 0, limit 10, dateStart 0, dateEnd 現在
func (s *DepositService) GetAccountHistory(ctx context.Context, accountID uuid.UUID, p domain.Pagination, r domain.DateRange) ([]*domain.Deposit, error) {
	p, r, err := normalizeHistory(p, r, s.now)
	if err != nil {
		return nil, err
	}
	return s.store.Repositories().Deposits.FindByAccountIDAndDateRange(ctx, p, accountID, r)
}

// DeleteDeposit 刪除存款紀錄 (管理用途)，不會沖回已入帳的金額
func (s *DepositService) DeleteDeposit(ctx context.Context, id uuid.UUID, soft bool) error {
	if err := s.store.Repositories().Deposits.Delete(ctx, id, soft); err != nil {
		return err
	}
	s.logger.Info().Str("deposit_id", id.String()).Bool("soft", soft).Msg("deposit deleted")
	return nil
}

func normalizeHistory(p domain.Pagination, r domain.DateRange, now func() time.Time) (domain.Pagination, domain.DateRange, error) {
	p, err := p.Normalize()
	if err != nil {
		return p, r, err
	}
	r, err = r.Normalize(now().UnixMilli())
	return p, r, err
}
