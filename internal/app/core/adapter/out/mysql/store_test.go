package mysql

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("MYSQL_DSN is not set")
	}
	client, err := mysql.NewClient(mysql.Config{RawDSN: dsn, ConnectRetries: 1, LogLevel: "silent"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	store := NewStore(client)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{"transfers", "deposits", "accounts"} {
		if err := client.DB().Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
	return store
}

func TestConversionRoundTrip(t *testing.T) {
	deletedAt := int64(99)
	d := &domain.Deposit{
		ID:             uuid.New(),
		AccountID:      uuid.New(),
		Amount:         decimal.RequireFromString("12.3456"),
		CreatedAt:      42,
		IdempotencyKey: "",
		DeletedAt:      &deletedAt,
	}
	row, err := toSQLDeposit(d)
	if err != nil {
		t.Fatalf("toSQLDeposit: %v", err)
	}
	if row.Amount != 123456 || row.IdempotencyKey != nil {
		t.Fatalf("unexpected row %+v", row)
	}
	row.Seq = 7
	got := row.toDomain()
	if got.ID != d.ID || !got.Amount.Equal(d.Amount) || got.Sequence != 7 || got.IdempotencyKey != "" || *got.DeletedAt != 99 {
		t.Errorf("unexpected deposit %+v", got)
	}
}

func TestConversionRejectsOutOfRange(t *testing.T) {
	huge := decimal.RequireFromString("1e20")
	if _, err := toSQLAccount(&domain.Account{ID: uuid.New(), Balance: huge}); !errors.Is(err, domain.ErrBalanceLimitExceeded) {
		t.Errorf("account: expected ErrBalanceLimitExceeded, got %v", err)
	}
	if _, err := toSQLDeposit(&domain.Deposit{ID: uuid.New(), Amount: huge}); !errors.Is(err, domain.ErrBalanceLimitExceeded) {
		t.Errorf("deposit: expected ErrBalanceLimitExceeded, got %v", err)
	}
	if _, err := toSQLTransfer(&domain.Transfer{ID: uuid.New(), Amount: huge}); !errors.Is(err, domain.ErrBalanceLimitExceeded) {
		t.Errorf("transfer: expected ErrBalanceLimitExceeded, got %v", err)
	}
}

func TestTransferFlow(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	core := usecase.NewCoreUseCase(store, nil, nil, zerolog.Nop())

	a, err := core.Accounts.Create(ctx, "c-1", "saving")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, _ := core.Accounts.Create(ctx, "c-2", "saving")

	if _, err := core.Deposits.CreateDeposit(ctx, usecase.CreateDepositCommand{AccountID: a.ID, Amount: decimal.NewFromInt(500), IdempotencyKey: "dep-1"}); err != nil {
		t.Fatalf("CreateDeposit: %v", err)
	}
	if _, err := core.Transfers.CreateTransfer(ctx, usecase.CreateTransferCommand{OutcomeAccountID: a.ID, IncomeAccountID: b.ID, Amount: decimal.NewFromInt(200)}); err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}
	if _, err := core.Transfers.CreateTransfer(ctx, usecase.CreateTransferCommand{OutcomeAccountID: a.ID, IncomeAccountID: b.ID, Amount: decimal.NewFromInt(301)}); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	balA, _ := core.Accounts.GetBalance(ctx, a.ID)
	balB, _ := core.Accounts.GetBalance(ctx, b.ID)
	if !balA.Equal(decimal.NewFromInt(300)) || !balB.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected 300/200, got %s/%s", balA, balB)
	}

	if _, err := store.Repositories().Deposits.Register(ctx, &domain.Deposit{ID: uuid.New(), AccountID: a.ID, Amount: decimal.NewFromInt(1), IdempotencyKey: "dep-1"}); !errors.Is(err, domain.ErrIdempotencyConflict) {
		t.Errorf("expected ErrIdempotencyConflict on duplicate key, got %v", err)
	}
}

func TestConcurrentOppositeTransfers(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	core := usecase.NewCoreUseCase(store, nil, nil, zerolog.Nop())

	a, _ := core.Accounts.Create(ctx, "c-1", "saving")
	b, _ := core.Accounts.Create(ctx, "c-2", "saving")
	_, _ = core.Accounts.Credit(ctx, a.ID, decimal.NewFromInt(100))
	_, _ = core.Accounts.Credit(ctx, b.ID, decimal.NewFromInt(100))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		from, to := a.ID, b.ID
		if i%2 == 1 {
			from, to = b.ID, a.ID
		}
		go func() {
			defer wg.Done()
			if _, err := core.Transfers.CreateTransfer(ctx, usecase.CreateTransferCommand{OutcomeAccountID: from, IncomeAccountID: to, Amount: decimal.NewFromInt(1)}); err != nil {
				t.Errorf("CreateTransfer: %v", err)
			}
		}()
	}
	wg.Wait()

	balA, _ := core.Accounts.GetBalance(ctx, a.ID)
	balB, _ := core.Accounts.GetBalance(ctx, b.ID)
	if !balA.Add(balB).Equal(decimal.NewFromInt(200)) {
		t.Errorf("total not conserved: %s + %s", balA, balB)
	}
}

func TestDepositOverflowRejected(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	core := usecase.NewCoreUseCase(store, nil, nil, zerolog.Nop())

	a, err := core.Accounts.Create(ctx, "c-1", "saving")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := core.Deposits.CreateDeposit(ctx, usecase.CreateDepositCommand{AccountID: a.ID, Amount: decimal.RequireFromString("1e16")}); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount above max amount, got %v", err)
	}

	// 逼近餘額上限後再存入
	near := domain.MaxBalance.Sub(domain.MaxAmount).Add(decimal.NewFromInt(1))
	seeded := a.Clone()
	seeded.Balance = near
	if _, err := store.Repositories().Accounts.Update(ctx, a.ID, seeded); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := core.Deposits.CreateDeposit(ctx, usecase.CreateDepositCommand{AccountID: a.ID, Amount: domain.MaxAmount}); !errors.Is(err, domain.ErrBalanceLimitExceeded) {
		t.Fatalf("expected ErrBalanceLimitExceeded, got %v", err)
	}

	bal, _ := core.Accounts.GetBalance(ctx, a.ID)
	if !bal.Equal(near) {
		t.Errorf("expected balance %s to be unchanged, got %s", near, bal)
	}
	deposits, _ := core.Deposits.FindAll(ctx, domain.Pagination{})
	if len(deposits) != 0 {
		t.Errorf("expected no deposit records, got %d", len(deposits))
	}
}
