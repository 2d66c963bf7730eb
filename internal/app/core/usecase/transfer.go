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

// HistoryDirection 轉帳歷史方向
type HistoryDirection uint8

const (
	HistoryAll HistoryDirection = iota
	HistoryOut
	HistoryIn
)

// CreateTransferCommand 轉帳請求
type CreateTransferCommand struct {
	OutcomeAccountID uuid.UUID
	IncomeAccountID  uuid.UUID
	Amount           decimal.Decimal
	Reason           string
	IdempotencyKey   string
}

// TransferService 轉帳服務
type TransferService struct {
	ledger *AccountLedger
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewTransferService(ledger *AccountLedger, store Store, logger zerolog.Logger, opts ...Option) *TransferService {
	o := newOptions(opts)
	return &TransferService{
		ledger: ledger,
		store:  store,
		logger: logger.With().Str("component", "transfer_service").Logger(),
		now:    o.now,
	}
}

// transferAttempt 追蹤單次轉帳的狀態
type transferAttempt struct {
	id     uuid.UUID
	state  domain.TransferState
	logger zerolog.Logger
}

func (a *transferAttempt) enter(state domain.TransferState) {
	a.state = state
	a.logger.Debug().Str("state", state.String()).Msg("transfer state")
}

// CreateTransfer 建立轉帳
//
// 在任何餘額異動前先檢查轉出與轉入帳戶不同；
// 扣款、入帳、紀錄寫入在同一個交易內，兩個帳戶鎖依 ID 由小到大取得
//
// 參數:
//
//	cmd: 轉帳請求
//
// 回傳:
//
//	*domain.Transfer: 轉帳紀錄
//	error: ErrSameAccountTransfer / ErrInvalidAmount / ErrAccountNotFound / ErrInsufficientFunds / 儲存錯誤
func (s *TransferService) CreateTransfer(ctx context.Context, cmd CreateTransferCommand) (*domain.Transfer, error) {
	transfer := &domain.Transfer{
		ID:               uuid.New(),
		OutcomeAccountID: cmd.OutcomeAccountID,
		IncomeAccountID:  cmd.IncomeAccountID,
		Amount:           cmd.Amount,
		Reason:           cmd.Reason,
		IdempotencyKey:   cmd.IdempotencyKey,
	}
	attempt := &transferAttempt{
		id: transfer.ID,
		logger: s.logger.With().
			Str("transfer_id", transfer.ID.String()).
			Str("outcome_account_id", cmd.OutcomeAccountID.String()).
			Str("income_account_id", cmd.IncomeAccountID.String()).
			Logger(),
	}
	attempt.enter(domain.TransferValidating)

	if err := domain.ValidateTransfer(cmd.OutcomeAccountID, cmd.IncomeAccountID, cmd.Amount); err != nil {
		return nil, s.reject(attempt, err)
	}
	if cmd.IdempotencyKey != "" {
		if existing, err := s.replay(ctx, cmd); existing != nil || err != nil {
			return existing, err
		}
	}

	_, err := s.ledger.apply(ctx, entry{
		reference: transfer.ID,
		lockIDs:   transfer.GetLockIDs(),
		postings: []Posting{
			{AccountID: cmd.OutcomeAccountID, Amount: cmd.Amount, Direction: DirectionDebit, Reason: domain.ReasonTransferOut},
			{AccountID: cmd.IncomeAccountID, Amount: cmd.Amount, Direction: DirectionCredit, Reason: domain.ReasonTransferIn},
		},
		record: func(ctx context.Context, repos Repositories, at int64) error {
			transfer.CreatedAt = at
			created, err := repos.Transfers.Register(ctx, transfer)
			if err != nil {
				return err
			}
			transfer = created
			return nil
		},
		committed: func(ctx context.Context, repos Repositories) (bool, error) {
			_, err := repos.Transfers.FindOneByID(ctx, attempt.id)
			if errors.Is(err, domain.ErrTransferNotFound) {
				return false, nil
			}
			return err == nil, err
		},
		enter: attempt.enter,
	})
	if errors.Is(err, domain.ErrIdempotencyConflict) && cmd.IdempotencyKey != "" {
		if existing, rerr := s.replay(ctx, cmd); existing != nil || rerr != nil {
			return existing, rerr
		}
	}
	if err != nil {
		if attempt.state >= domain.TransferCrediting {
			// 已進入入帳階段後失敗：整個交易已回滾，扣款不會生效
			attempt.logger.Error().Err(err).Str("state", attempt.state.String()).Msg("transfer failed after debit, unit rolled back")
		}
		return nil, s.reject(attempt, err)
	}

	attempt.enter(domain.TransferCommitted)
	attempt.logger.Info().Str("amount", transfer.Amount.String()).Msg("transfer committed")
	return transfer, nil
}

func (s *TransferService) reject(attempt *transferAttempt, err error) error {
	attempt.state = domain.TransferRejected
	attempt.logger.Info().Err(err).Msg("transfer rejected")
	return err
}

func (s *TransferService) replay(ctx context.Context, cmd CreateTransferCommand) (*domain.Transfer, error) {
	existing, err := s.store.Repositories().Transfers.FindByIdempotencyKey(ctx, cmd.IdempotencyKey)
	if errors.Is(err, domain.ErrTransferNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !existing.SamePayload(cmd.OutcomeAccountID, cmd.IncomeAccountID, cmd.Amount) {
		return nil, domain.ErrIdempotencyConflict
	}
	return existing, nil
}

// Get 取得單筆轉帳 (包含已軟刪除)
func (s *TransferService) Get(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	return s.store.Repositories().Transfers.FindOneByID(ctx, id)
}

// FindAll 依寫入順序列出轉帳
func (s *TransferService) FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Transfer, error) {
	p, err := p.Normalize()
	if err != nil {
		return nil, err
	}
	return s.store.Repositories().Transfers.FindAll(ctx, p)
}

// GetHistoryOut 帳戶轉出歷史
func (s *TransferService) GetHistoryOut(ctx context.Context, accountID uuid.UUID, p domain.Pagination, r domain.DateRange) ([]*domain.Transfer, error) {
	return s.history(ctx, HistoryOut, accountID, p, r)
}

// GetHistoryIn 帳戶轉入歷史
func (s *TransferService) GetHistoryIn(ctx context.Context, accountID uuid.UUID, p domain.Pagination, r domain.DateRange) ([]*domain.Transfer, error) {
	return s.history(ctx, HistoryIn, accountID, p, r)
}

// GetHistory 帳戶轉出與轉入歷史
func (s *TransferService) GetHistory(ctx context.Context, accountID uuid.UUID, p domain.Pagination, r domain.DateRange) ([]*domain.Transfer, error) {
	return s.history(ctx, HistoryAll, accountID, p, r)
}

// History 依方向查詢歷史，供 Adapter 使用
func (s *TransferService) History(ctx context.Context, direction HistoryDirection, accountID uuid.UUID, p domain.Pagination, r domain.DateRange) ([]*domain.Transfer, error) {
	return s.history(ctx, direction, accountID, p, r)
}

func (s *TransferService) history(ctx context.Context, direction HistoryDirection, accountID uuid.UUID, p domain.Pagination, r domain.DateRange) ([]*domain.Transfer, error) {
	p, r, err := normalizeHistory(p, r, s.now)
	if err != nil {
		return nil, err
	}
	repo := s.store.Repositories().Transfers
	switch direction {
	case HistoryOut:
		return repo.FindOutcomeByDateRange(ctx, p, accountID, r)
	case HistoryIn:
		return repo.FindIncomeByDateRange(ctx, p, accountID, r)
	default:
		return repo.FindByAccountIDAndDateRange(ctx, p, accountID, r)
	}
}

// DeleteTransfer 刪除轉帳紀錄 (管理用途)，不會沖回餘額
func (s *TransferService) DeleteTransfer(ctx context.Context, id uuid.UUID, soft bool) error {
	if err := s.store.Repositories().Transfers.Delete(ctx, id, soft); err != nil {
		return err
	}
	s.logger.Info().Str("transfer_id", id.String()).Bool("soft", soft).Msg("transfer deleted")
	return nil
}
