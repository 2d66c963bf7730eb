package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// base 共用的交易處理：綁定 tx 時直接寫入暫存區，否則自動開啟一個交易並提交
type base struct {
	store *Store
	tx    *tx
	run   runFunc
}

func (b *base) write(ctx context.Context, lockIDs []uuid.UUID, fn func(t *tx) error) error {
	if b.tx != nil {
		return fn(b.tx)
	}
	return b.run(ctx, lockIDs, fn)
}

// view 讀取用的交易 (空的暫存區等同讀取已提交資料)
func (b *base) view() *tx {
	if b.tx != nil {
		return b.tx
	}
	return newTx(b.store)
}

// newestFirst 區間查詢排序：CreatedAt 遞減，再以 Sequence 遞減
func newestFirst(aAt int64, aSeq uint64, bAt int64, bSeq uint64) bool {
	if aAt != bAt {
		return aAt > bAt
	}
	return aSeq > bSeq
}

type accountRepository struct {
	base
}

func (r *accountRepository) Register(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	cp := account.Clone()
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	err := r.write(ctx, []uuid.UUID{cp.ID}, func(t *tx) error {
		t.accounts[cp.ID] = cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cp.Clone(), nil
}

func (r *accountRepository) FindOneByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	a, ok := r.view().account(id)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a, nil
}

func (r *accountRepository) FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Account, error) {
	return r.list(p, func(*domain.Account) bool { return true }), nil
}

func (r *accountRepository) FindByCustomer(ctx context.Context, p domain.Pagination, customerID string) ([]*domain.Account, error) {
	return r.list(p, func(a *domain.Account) bool { return a.CustomerID == customerID }), nil
}

func (r *accountRepository) list(p domain.Pagination, keep func(a *domain.Account) bool) []*domain.Account {
	accounts := r.view().listAccounts(keep)
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt != accounts[j].CreatedAt {
			return accounts[i].CreatedAt < accounts[j].CreatedAt
		}
		return accounts[i].ID.String() < accounts[j].ID.String()
	})
	return domain.Window(accounts, p)
}

func (r *accountRepository) Update(ctx context.Context, id uuid.UUID, account *domain.Account) (*domain.Account, error) {
	cp := account.Clone()
	cp.ID = id
	err := r.write(ctx, []uuid.UUID{id}, func(t *tx) error {
		if _, ok := t.account(id); !ok {
			return domain.ErrAccountNotFound
		}
		t.accounts[id] = cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cp.Clone(), nil
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID, soft bool) error {
	return r.write(ctx, []uuid.UUID{id}, func(t *tx) error {
		a, ok := t.account(id)
		if !ok {
			return domain.ErrAccountNotFound
		}
		if soft {
			a.Active = false
			a.UpdatedAt = r.store.now().UnixMilli()
			t.accounts[id] = a
			return nil
		}
		t.accounts[id] = nil
		return nil
	})
}

type depositRepository struct {
	base
}

func (r *depositRepository) Register(ctx context.Context, deposit *domain.Deposit) (*domain.Deposit, error) {
	cp := deposit.Clone()
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if cp.Sequence == 0 {
		cp.Sequence = r.store.nextSequence()
	}
	err := r.write(ctx, nil, func(t *tx) error {
		t.deposits[cp.ID] = cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cp.Clone(), nil
}

func (r *depositRepository) FindOneByID(ctx context.Context, id uuid.UUID) (*domain.Deposit, error) {
	d, ok := r.view().deposit(id)
	if !ok {
		return nil, domain.ErrDepositNotFound
	}
	return d, nil
}

func (r *depositRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Deposit, error) {
	t := r.view()
	for _, d := range t.deposits {
		if d != nil && d.IdempotencyKey == key {
			return d.Clone(), nil
		}
	}
	r.store.mu.RLock()
	id, ok := r.store.depositKeys[key]
	r.store.mu.RUnlock()
	if !ok {
		return nil, domain.ErrDepositNotFound
	}
	return r.FindOneByID(ctx, id)
}

func (r *depositRepository) FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Deposit, error) {
	deposits := r.view().listDeposits(func(*domain.Deposit) bool { return true })
	sort.Slice(deposits, func(i, j int) bool {
		return deposits[i].Sequence < deposits[j].Sequence
	})
	return domain.Window(deposits, p), nil
}

func (r *depositRepository) FindByAccountIDAndDateRange(ctx context.Context, p domain.Pagination, accountID uuid.UUID, dr domain.DateRange) ([]*domain.Deposit, error) {
	deposits := r.view().listDeposits(func(d *domain.Deposit) bool {
		return d.AccountID == accountID && dr.Contains(d.CreatedAt)
	})
	sort.Slice(deposits, func(i, j int) bool {
		return newestFirst(deposits[i].CreatedAt, deposits[i].Sequence, deposits[j].CreatedAt, deposits[j].Sequence)
	})
	return domain.Window(deposits, p), nil
}

func (r *depositRepository) Delete(ctx context.Context, id uuid.UUID, soft bool) error {
	return r.write(ctx, []uuid.UUID{id}, func(t *tx) error {
		d, ok := t.deposit(id)
		if !ok {
			return domain.ErrDepositNotFound
		}
		if !soft {
			t.deposits[id] = nil
			return nil
		}
		if d.DeletedAt == nil {
			now := r.store.now().UnixMilli()
			d.DeletedAt = &now
		}
		t.deposits[id] = d
		return nil
	})
}

type transferRepository struct {
	base
}

func (r *transferRepository) Register(ctx context.Context, transfer *domain.Transfer) (*domain.Transfer, error) {
	cp := transfer.Clone()
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if cp.Sequence == 0 {
		cp.Sequence = r.store.nextSequence()
	}
	err := r.write(ctx, nil, func(t *tx) error {
		t.transfers[cp.ID] = cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cp.Clone(), nil
}

func (r *transferRepository) FindOneByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	tr, ok := r.view().transfer(id)
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	return tr, nil
}

func (r *transferRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transfer, error) {
	t := r.view()
	for _, tr := range t.transfers {
		if tr != nil && tr.IdempotencyKey == key {
			return tr.Clone(), nil
		}
	}
	r.store.mu.RLock()
	id, ok := r.store.transferKeys[key]
	r.store.mu.RUnlock()
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	return r.FindOneByID(ctx, id)
}

func (r *transferRepository) FindAll(ctx context.Context, p domain.Pagination) ([]*domain.Transfer, error) {
	transfers := r.view().listTransfers(func(*domain.Transfer) bool { return true })
	sort.Slice(transfers, func(i, j int) bool {
		return transfers[i].Sequence < transfers[j].Sequence
	})
	return domain.Window(transfers, p), nil
}

func (r *transferRepository) FindByAccountIDAndDateRange(ctx context.Context, p domain.Pagination, accountID uuid.UUID, dr domain.DateRange) ([]*domain.Transfer, error) {
	return r.history(p, dr, func(tr *domain.Transfer) bool {
		return tr.OutcomeAccountID == accountID || tr.IncomeAccountID == accountID
	}), nil
}

func (r *transferRepository) FindOutcomeByDateRange(ctx context.Context, p domain.Pagination, accountID uuid.UUID, dr domain.DateRange) ([]*domain.Transfer, error) {
	return r.history(p, dr, func(tr *domain.Transfer) bool {
		return tr.OutcomeAccountID == accountID
	}), nil
}

func (r *transferRepository) FindIncomeByDateRange(ctx context.Context, p domain.Pagination, accountID uuid.UUID, dr domain.DateRange) ([]*domain.Transfer, error) {
	return r.history(p, dr, func(tr *domain.Transfer) bool {
		return tr.IncomeAccountID == accountID
	}), nil
}

func (r *transferRepository) history(p domain.Pagination, dr domain.DateRange, match func(tr *domain.Transfer) bool) []*domain.Transfer {
	transfers := r.view().listTransfers(func(tr *domain.Transfer) bool {
		return match(tr) && dr.Contains(tr.CreatedAt)
	})
	sort.Slice(transfers, func(i, j int) bool {
		return newestFirst(transfers[i].CreatedAt, transfers[i].Sequence, transfers[j].CreatedAt, transfers[j].Sequence)
	})
	return domain.Window(transfers, p)
}

func (r *transferRepository) Delete(ctx context.Context, id uuid.UUID, soft bool) error {
	return r.write(ctx, []uuid.UUID{id}, func(t *tx) error {
		tr, ok := t.transfer(id)
		if !ok {
			return domain.ErrTransferNotFound
		}
		if !soft {
			t.transfers[id] = nil
			return nil
		}
		if tr.DeletedAt == nil {
			now := r.store.now().UnixMilli()
			tr.DeletedAt = &now
		}
		t.transfers[id] = tr
		return nil
	})
}

var (
	_ usecase.AccountRepository  = (*accountRepository)(nil)
	_ usecase.DepositRepository  = (*depositRepository)(nil)
	_ usecase.TransferRepository = (*transferRepository)(nil)
)
