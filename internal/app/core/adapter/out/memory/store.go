package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

// runFunc 執行一個交易單位的方式 (Mutex 或 Sequencer)
type runFunc func(ctx context.Context, lockIDs []uuid.UUID, fn func(t *tx) error) error

// Store 是一個使用 Mutex 實現的記憶體帳本儲存層
//
// 結構:
//
//	mu: 保護已提交的資料，提交時以寫鎖一次套用整個變更集合
//	locks: 帳戶排他鎖，依 ID 由小到大取得
//	wal: Write-Ahead Log，變更集合先寫入並 fsync 後才套用到記憶體
type Store struct {
	mu           sync.RWMutex
	accounts     map[uuid.UUID]*domain.Account
	deposits     map[uuid.UUID]*domain.Deposit
	transfers    map[uuid.UUID]*domain.Transfer
	depositKeys  map[string]uuid.UUID
	transferKeys map[string]uuid.UUID

	locks    sync.Map // map[uuid.UUID]*sync.Mutex
	sequence atomic.Uint64

	// Write-Ahead Logging (可為 nil，純記憶體模式)
	wal *wal.WAL

	// 軟刪除時間戳使用的時鐘
	now func() time.Time
}

type Option func(*Store)

// WithClock 注入時鐘 (測試用)
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore 建立 Store 並從 WAL 恢復狀態
//
// 參數:
//
//	w: Write-Ahead Log 實例，nil 表示不落地
//	opts: 選項 (WithClock)
//
// 回傳:
//
//	*Store: Store 實例
//	error: WAL 恢復失敗
func NewStore(w *wal.WAL, opts ...Option) (*Store, error) {
	s := &Store{
		accounts:     make(map[uuid.UUID]*domain.Account),
		deposits:     make(map[uuid.UUID]*domain.Deposit),
		transfers:    make(map[uuid.UUID]*domain.Transfer),
		depositKeys:  make(map[string]uuid.UUID),
		transferKeys: make(map[string]uuid.UUID),
		wal:          w,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.recoverFromWAL(); err != nil {
		return nil, err
	}
	return s, nil
}

// recoverFromWAL 依序重放 WAL 內的變更集合
// 只有 NewStore 呼叫，無需 Lock (單執行緒)
func (s *Store) recoverFromWAL() error {
	if s.wal == nil {
		return nil
	}
	return s.wal.ReadAll(func(jsonRaw []byte) error {
		var rec changeSet
		if err := json.Unmarshal(jsonRaw, &rec); err != nil {
			return fmt.Errorf("decode wal record: %w", err)
		}
		s.apply(&rec)
		return nil
	})
}

// Repositories 回傳自動提交的 Repository
func (s *Store) Repositories() usecase.Repositories {
	return s.repositories(s.run)
}

// Atomically 依序取得帳戶鎖後執行 fn，成功時一次提交
func (s *Store) Atomically(ctx context.Context, lockIDs []uuid.UUID, fn func(ctx context.Context, repos usecase.Repositories) error) error {
	return s.run(ctx, lockIDs, func(t *tx) error {
		return fn(ctx, t.repositories())
	})
}

func (s *Store) repositories(run runFunc) usecase.Repositories {
	return usecase.Repositories{
		Accounts:  &accountRepository{base{store: s, run: run}},
		Deposits:  &depositRepository{base{store: s, run: run}},
		Transfers: &transferRepository{base{store: s, run: run}},
	}
}

func (s *Store) run(ctx context.Context, lockIDs []uuid.UUID, fn func(t *tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, id := range domain.SortIDs(lockIDs) {
		m := s.accountLock(id)
		m.Lock()
		defer m.Unlock()
	}

	t := newTx(s)
	if err := fn(t); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) accountLock(id uuid.UUID) *sync.Mutex {
	if v, ok := s.locks.Load(id); ok {
		return v.(*sync.Mutex)
	}
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (s *Store) nextSequence() uint64 {
	return s.sequence.Add(1)
}

// commit 寫入 WAL 後套用變更集合
//
// 回傳:
//
//	error: 冪等鍵衝突 (ErrIdempotencyConflict)、暫存期間紀錄已被硬刪除 (ErrXxxNotFound)
//	       或 WAL 寫入失敗 (ErrStorageUnavailable)
func (s *Store) commit(t *tx) error {
	rec := t.changeSet()
	if rec.empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLoaded(t, rec); err != nil {
		return err
	}
	if err := s.checkKeys(rec); err != nil {
		return err
	}
	// 1. 寫入 WAL (Critical Path)
	if s.wal != nil {
		if err := s.wal.Write(rec); err != nil {
			return fmt.Errorf("%w: wal write: %v", domain.ErrStorageUnavailable, err)
		}
	}
	// 2. 套用到記憶體
	s.apply(rec)
	return nil
}

// checkLoaded 暫存的更新若來自已提交資料，該紀錄必須仍然存在，避免把已硬刪除的紀錄寫回
func (s *Store) checkLoaded(t *tx, rec *changeSet) error {
	for _, a := range rec.Accounts {
		if _, ok := t.loaded[a.ID]; ok {
			if _, ok := s.accounts[a.ID]; !ok {
				return domain.ErrAccountNotFound
			}
		}
	}
	for _, d := range rec.Deposits {
		if _, ok := t.loaded[d.ID]; ok {
			if _, ok := s.deposits[d.ID]; !ok {
				return domain.ErrDepositNotFound
			}
		}
	}
	for _, tr := range rec.Transfers {
		if _, ok := t.loaded[tr.ID]; ok {
			if _, ok := s.transfers[tr.ID]; !ok {
				return domain.ErrTransferNotFound
			}
		}
	}
	return nil
}

func (s *Store) checkKeys(rec *changeSet) error {
	for _, d := range rec.Deposits {
		if d.IdempotencyKey == "" {
			continue
		}
		if id, ok := s.depositKeys[d.IdempotencyKey]; ok && id != d.ID {
			return domain.ErrIdempotencyConflict
		}
	}
	for _, tr := range rec.Transfers {
		if tr.IdempotencyKey == "" {
			continue
		}
		if id, ok := s.transferKeys[tr.IdempotencyKey]; ok && id != tr.ID {
			return domain.ErrIdempotencyConflict
		}
	}
	return nil
}

// apply 套用變更集合，呼叫端需持有寫鎖 (或在恢復階段單執行緒執行)
//
// 硬刪除不釋放冪等鍵：同一個 key 重送會得到 ErrIdempotencyConflict，不會重複入帳
func (s *Store) apply(rec *changeSet) {
	for _, a := range rec.Accounts {
		s.accounts[a.ID] = a
	}
	for _, id := range rec.DeletedAccounts {
		delete(s.accounts, id)
	}
	for _, d := range rec.Deposits {
		s.deposits[d.ID] = d
		if d.IdempotencyKey != "" {
			s.depositKeys[d.IdempotencyKey] = d.ID
		}
		s.observeSequence(d.Sequence)
	}
	for _, id := range rec.DeletedDeposits {
		delete(s.deposits, id)
	}
	for _, tr := range rec.Transfers {
		s.transfers[tr.ID] = tr
		if tr.IdempotencyKey != "" {
			s.transferKeys[tr.IdempotencyKey] = tr.ID
		}
		s.observeSequence(tr.Sequence)
	}
	for _, id := range rec.DeletedTransfers {
		delete(s.transfers, id)
	}
}

// observeSequence 確保重放後新分配的序號大於既有紀錄
func (s *Store) observeSequence(seq uint64) {
	for {
		cur := s.sequence.Load()
		if seq <= cur || s.sequence.CompareAndSwap(cur, seq) {
			return
		}
	}
}

var _ usecase.Store = (*Store)(nil)
