package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// Direction 分錄方向
type Direction uint8

const (
	DirectionCredit Direction = 1
	DirectionDebit  Direction = 2
)

// Posting 單筆餘額異動
type Posting struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
	Direction Direction
	Reason    domain.BalanceChangeReason
}

// entry 一個原子帳務單位：多筆 Posting + 紀錄寫入，一起提交或一起放棄
type entry struct {
	reference uuid.UUID
	postings  []Posting
	// lockIDs 需鎖定的帳戶，空值時取 postings 的帳戶
	lockIDs []uuid.UUID
	// record 在所有 Posting 套用後、同一個交易內寫入存款/轉帳紀錄
	record func(ctx context.Context, repos Repositories, at int64) error
	// committed 提交結果不明時用來確認紀錄是否存在
	committed func(ctx context.Context, repos Repositories) (bool, error)
	// enter 狀態機轉換通知 (轉帳使用)
	enter func(state domain.TransferState)
}

func (e *entry) transition(state domain.TransferState) {
	if e.enter != nil {
		e.enter(state)
	}
}

// Option AccountLedger / CoreUseCase 的可選設定
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock 替換時間來源 (測試用)
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// AccountLedger 帳戶餘額的唯一異動入口
//
// 所有入帳、扣款 (包含存款與轉帳) 都經過 apply，
// 在同一個儲存交易內持有帳戶鎖並檢查餘額不為負
type AccountLedger struct {
	store    Store
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAccountLedger 建立 AccountLedger
//
// 參數:
//
//	store: 儲存層
//	notifier: 餘額異動通知 (可為 nil)
//	logger: zerolog Logger
//
// 回傳:
//
//	*AccountLedger: AccountLedger 實例
func NewAccountLedger(store Store, notifier Notifier, logger zerolog.Logger, opts ...Option) *AccountLedger {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	o := newOptions(opts)
	return &AccountLedger{
		store:    store,
		notifier: notifier,
		logger:   logger.With().Str("component", "account_ledger").Logger(),
		now:      o.now,
	}
}

// Create 建立餘額為 0 的帳戶
func (l *AccountLedger) Create(ctx context.Context, customerID, accountTypeID string) (*domain.Account, error) {
	account, err := domain.NewAccount(customerID, accountTypeID, l.now().UnixMilli())
	if err != nil {
		return nil, err
	}
	created, err := l.store.Repositories().Accounts.Register(ctx, account)
	if err != nil {
		return nil, err
	}
	l.logger.Info().Str("account_id", created.ID.String()).Str("customer_id", customerID).Msg("account created")
	return created, nil
}

// Get 取得帳戶
func (l *AccountLedger) Get(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	return l.store.Repositories().Accounts.FindOneByID(ctx, accountID)
}

// GetBalance 取得帳戶餘額
func (l *AccountLedger) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	account, err := l.Get(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// FindAll 依建立順序列出帳戶
func (l *AccountLedger) FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Account, error) {
	p, err := p.Normalize()
	if err != nil {
		return nil, err
	}
	return l.store.Repositories().Accounts.FindAll(ctx, p)
}

// FindByCustomer 列出某客戶的帳戶
func (l *AccountLedger) FindByCustomer(ctx context.Context, customerID string, p domain.Pagination) ([]*domain.Account, error) {
	p, err := p.Normalize()
	if err != nil {
		return nil, err
	}
	return l.store.Repositories().Accounts.FindByCustomer(ctx, p, customerID)
}

// Credit 入帳
func (l *AccountLedger) Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*domain.Account, error) {
	return l.postSingle(ctx, Posting{AccountID: accountID, Amount: amount, Direction: DirectionCredit, Reason: domain.ReasonCredit})
}

// Debit 扣款，餘額不足回傳 ErrInsufficientFunds
func (l *AccountLedger) Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*domain.Account, error) {
	return l.postSingle(ctx, Posting{AccountID: accountID, Amount: amount, Direction: DirectionDebit, Reason: domain.ReasonDebit})
}

func (l *AccountLedger) postSingle(ctx context.Context, p Posting) (*domain.Account, error) {
	if err := domain.ValidateAmount(p.Amount); err != nil {
		return nil, err
	}
	accounts, err := l.apply(ctx, entry{reference: uuid.New(), postings: []Posting{p}})
	if err != nil {
		return nil, err
	}
	return accounts[p.AccountID], nil
}

// ChangeAccountType 變更帳戶類型，不影響餘額
func (l *AccountLedger) ChangeAccountType(ctx context.Context, accountID uuid.UUID, accountTypeID string) (*domain.Account, error) {
	if accountTypeID == "" {
		return nil, domain.ErrInvalidReference
	}
	return l.mutate(ctx, accountID, func(account *domain.Account) error {
		account.AccountTypeID = accountTypeID
		return nil
	})
}

// ChangeState 啟用或停用帳戶，不影響餘額
func (l *AccountLedger) ChangeState(ctx context.Context, accountID uuid.UUID, active bool) (*domain.Account, error) {
	return l.mutate(ctx, accountID, func(account *domain.Account) error {
		account.Active = active
		return nil
	})
}

func (l *AccountLedger) mutate(ctx context.Context, accountID uuid.UUID, fn func(account *domain.Account) error) (*domain.Account, error) {
	var updated *domain.Account
	err := l.store.Atomically(ctx, []uuid.UUID{accountID}, func(ctx context.Context, repos Repositories) error {
		account, err := repos.Accounts.FindOneByID(ctx, accountID)
		if err != nil {
			return err
		}
		if err := fn(account); err != nil {
			return err
		}
		account.UpdatedAt = l.now().UnixMilli()
		updated, err = repos.Accounts.Update(ctx, accountID, account)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete 刪除帳戶，餘額不為 0 時回傳 ErrAccountNotEmpty
//
// 參數:
//
//	soft: true 時僅標記為停用，紀錄保留供稽核
func (l *AccountLedger) Delete(ctx context.Context, accountID uuid.UUID, soft bool) error {
	err := l.store.Atomically(ctx, []uuid.UUID{accountID}, func(ctx context.Context, repos Repositories) error {
		account, err := repos.Accounts.FindOneByID(ctx, accountID)
		if err != nil {
			return err
		}
		if err := account.CanDelete(); err != nil {
			return err
		}
		return repos.Accounts.Delete(ctx, accountID, soft)
	})
	if err != nil {
		return err
	}
	l.logger.Info().Str("account_id", accountID.String()).Bool("soft", soft).Msg("account deleted")
	return nil
}

// apply 在單一儲存交易內套用所有 Posting 與紀錄寫入
//
// 流程:
//
//	1. 依帳戶 ID 由小到大上鎖 (Store.Atomically)
//	2. 解析所有帳戶，確認存在且為啟用狀態
//	3. 依序套用 Posting (扣款在前)
//	4. 寫入紀錄
//	5. 提交後發出 BalanceChanged
//
// 回傳:
//
//	map[uuid.UUID]*domain.Account: 異動後的帳戶
//	error: 業務或儲存錯誤，失敗時沒有任何異動
func (l *AccountLedger) apply(ctx context.Context, e entry) (map[uuid.UUID]*domain.Account, error) {
	lockIDs := e.lockIDs
	if len(lockIDs) == 0 {
		for _, p := range e.postings {
			lockIDs = append(lockIDs, p.AccountID)
		}
	}

	var (
		accounts map[uuid.UUID]*domain.Account
		events   []domain.BalanceChanged
	)
	err := l.store.Atomically(ctx, lockIDs, func(ctx context.Context, repos Repositories) error {
		accounts = make(map[uuid.UUID]*domain.Account, len(e.postings))
		events = events[:0]

		for _, p := range e.postings {
			if _, ok := accounts[p.AccountID]; ok {
				continue
			}
			account, err := repos.Accounts.FindOneByID(ctx, p.AccountID)
			if err != nil {
				return err
			}
			if !account.Active {
				return fmt.Errorf("%w: %s", domain.ErrAccountInactive, account.ID)
			}
			accounts[p.AccountID] = account
		}

		at := l.now().UnixMilli()
		for _, p := range e.postings {
			account := accounts[p.AccountID]
			delta := p.Amount
			switch p.Direction {
			case DirectionDebit:
				e.transition(domain.TransferDebiting)
				if err := account.Debit(p.Amount); err != nil {
					return err
				}
				delta = p.Amount.Neg()
			case DirectionCredit:
				e.transition(domain.TransferCrediting)
				if err := account.Credit(p.Amount); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown posting direction %d", p.Direction)
			}
			account.UpdatedAt = at
			if _, err := repos.Accounts.Update(ctx, account.ID, account); err != nil {
				return err
			}
			events = append(events, domain.BalanceChanged{
				AccountID:  account.ID,
				Delta:      delta,
				Balance:    account.Balance,
				Reason:     p.Reason,
				Reference:  e.reference,
				OccurredAt: at,
			})
		}

		if e.record != nil {
			e.transition(domain.TransferRecording)
			return e.record(ctx, repos, at)
		}
		return nil
	})
	if errors.Is(err, ErrCommitOutcomeUnknown) {
		err = l.reconcile(ctx, e, err)
	}
	if err != nil {
		return nil, err
	}

	for _, event := range events {
		l.notifier.Notify(ctx, event)
	}
	return accounts, nil
}

// reconcile 提交結果不明時，以紀錄是否存在決定結果
//
//	紀錄存在   -> 視為已提交
//	紀錄不存在 -> 整個交易已回滾，回傳 ErrStorageUnavailable
//	查詢失敗   -> ErrConsistencyFailure，需人工對帳
func (l *AccountLedger) reconcile(ctx context.Context, e entry, cause error) error {
	log := l.logger.With().Str("reference", e.reference.String()).Err(cause).Logger()
	if e.committed == nil {
		log.Error().Msg("commit outcome unknown and no record to reconcile against")
		return fmt.Errorf("%w: reference %s: %v", domain.ErrConsistencyFailure, e.reference, cause)
	}

	ok, err := e.committed(ctx, l.store.Repositories())
	switch {
	case err != nil:
		log.Error().AnErr("lookup_error", err).Msg("commit outcome unknown and record lookup failed")
		return fmt.Errorf("%w: reference %s: %v", domain.ErrConsistencyFailure, e.reference, cause)
	case ok:
		log.Warn().Msg("commit outcome unknown, record found: treating as committed")
		return nil
	default:
		log.Warn().Msg("commit outcome unknown, record absent: unit rolled back")
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, cause)
	}
}
