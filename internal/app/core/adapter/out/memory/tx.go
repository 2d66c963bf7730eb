package memory

import (
	"github.com/google/uuid"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// changeSet 一次提交的變更集合，也是 WAL 的一筆紀錄
type changeSet struct {
	Accounts         []*domain.Account  `json:"accounts,omitempty"`
	DeletedAccounts  []uuid.UUID        `json:"deletedAccounts,omitempty"`
	Deposits         []*domain.Deposit  `json:"deposits,omitempty"`
	DeletedDeposits  []uuid.UUID        `json:"deletedDeposits,omitempty"`
	Transfers        []*domain.Transfer `json:"transfers,omitempty"`
	DeletedTransfers []uuid.UUID        `json:"deletedTransfers,omitempty"`
}

func (c *changeSet) empty() bool {
	return len(c.Accounts) == 0 && len(c.DeletedAccounts) == 0 &&
		len(c.Deposits) == 0 && len(c.DeletedDeposits) == 0 &&
		len(c.Transfers) == 0 && len(c.DeletedTransfers) == 0
}

// tx 暫存的寫入，提交前對其他讀取端不可見
// map 的值為 nil 代表硬刪除
//
// loaded 記錄從已提交資料讀出的 ID，提交時這些紀錄必須仍然存在
type tx struct {
	store     *Store
	accounts  map[uuid.UUID]*domain.Account
	deposits  map[uuid.UUID]*domain.Deposit
	transfers map[uuid.UUID]*domain.Transfer
	loaded    map[uuid.UUID]struct{}
}

func newTx(s *Store) *tx {
	return &tx{
		store:     s,
		accounts:  make(map[uuid.UUID]*domain.Account),
		deposits:  make(map[uuid.UUID]*domain.Deposit),
		transfers: make(map[uuid.UUID]*domain.Transfer),
		loaded:    make(map[uuid.UUID]struct{}),
	}
}

// repositories 綁定在此交易上的 Repository，寫入只進暫存區
func (t *tx) repositories() usecase.Repositories {
	return usecase.Repositories{
		Accounts:  &accountRepository{base{store: t.store, tx: t}},
		Deposits:  &depositRepository{base{store: t.store, tx: t}},
		Transfers: &transferRepository{base{store: t.store, tx: t}},
	}
}

func (t *tx) changeSet() *changeSet {
	rec := &changeSet{}
	for id, a := range t.accounts {
		if a == nil {
			rec.DeletedAccounts = append(rec.DeletedAccounts, id)
			continue
		}
		rec.Accounts = append(rec.Accounts, a)
	}
	for id, d := range t.deposits {
		if d == nil {
			rec.DeletedDeposits = append(rec.DeletedDeposits, id)
			continue
		}
		rec.Deposits = append(rec.Deposits, d)
	}
	for id, tr := range t.transfers {
		if tr == nil {
			rec.DeletedTransfers = append(rec.DeletedTransfers, id)
			continue
		}
		rec.Transfers = append(rec.Transfers, tr)
	}
	return rec
}

func (t *tx) account(id uuid.UUID) (*domain.Account, bool) {
	if a, ok := t.accounts[id]; ok {
		if a == nil {
			return nil, false
		}
		return a.Clone(), true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	a, ok := t.store.accounts[id]
	if !ok {
		return nil, false
	}
	t.loaded[id] = struct{}{}
	return a.Clone(), true
}

func (t *tx) deposit(id uuid.UUID) (*domain.Deposit, bool) {
	if d, ok := t.deposits[id]; ok {
		if d == nil {
			return nil, false
		}
		return d.Clone(), true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	d, ok := t.store.deposits[id]
	if !ok {
		return nil, false
	}
	t.loaded[id] = struct{}{}
	return d.Clone(), true
}

func (t *tx) transfer(id uuid.UUID) (*domain.Transfer, bool) {
	if tr, ok := t.transfers[id]; ok {
		if tr == nil {
			return nil, false
		}
		return tr.Clone(), true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	tr, ok := t.store.transfers[id]
	if !ok {
		return nil, false
	}
	t.loaded[id] = struct{}{}
	return tr.Clone(), true
}

// 以下 list* 回傳已提交資料疊加暫存區後的快照 (已複製)

func (t *tx) listAccounts(keep func(a *domain.Account) bool) []*domain.Account {
	merged := make(map[uuid.UUID]*domain.Account)
	t.store.mu.RLock()
	for id, a := range t.store.accounts {
		merged[id] = a
	}
	t.store.mu.RUnlock()
	for id, a := range t.accounts {
		merged[id] = a
	}

	out := make([]*domain.Account, 0, len(merged))
	for _, a := range merged {
		if a != nil && keep(a) {
			out = append(out, a.Clone())
		}
	}
	return out
}

func (t *tx) listDeposits(keep func(d *domain.Deposit) bool) []*domain.Deposit {
	merged := make(map[uuid.UUID]*domain.Deposit)
	t.store.mu.RLock()
	for id, d := range t.store.deposits {
		merged[id] = d
	}
	t.store.mu.RUnlock()
	for id, d := range t.deposits {
		merged[id] = d
	}

	out := make([]*domain.Deposit, 0, len(merged))
	for _, d := range merged {
		if d != nil && !d.Deleted() && keep(d) {
			out = append(out, d.Clone())
		}
	}
	return out
}

func (t *tx) listTransfers(keep func(tr *domain.Transfer) bool) []*domain.Transfer {
	merged := make(map[uuid.UUID]*domain.Transfer)
	t.store.mu.RLock()
	for id, tr := range t.store.transfers {
		merged[id] = tr
	}
	t.store.mu.RUnlock()
	for id, tr := range t.transfers {
		merged[id] = tr
	}

	out := make([]*domain.Transfer, 0, len(merged))
	for _, tr := range merged {
		if tr != nil && !tr.Deleted() && keep(tr) {
			out = append(out, tr.Clone())
		}
	}
	return out
}
