package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpc_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
	grpcpkg "github.com/JoeShih716/go-bank-ledger/pkg/grpc"
	"github.com/JoeShih716/go-bank-ledger/pkg/logger"
)

// 壓測: 建立 N 個帳戶各存入固定金額，隨機互轉後檢查總額守恆
func main() {
	target := flag.String("target", "localhost:50051", "ledger gRPC address")
	accounts := flag.Int("accounts", 10, "number of accounts")
	initial := flag.String("initial", "1000", "initial deposit per account")
	total := flag.Int("transfers", 100000, "number of transfers")
	concurrency := flag.Int("concurrency", 200, "concurrent requests")
	timeout := flag.Duration("timeout", 120*time.Second, "overall timeout")
	flag.Parse()

	log := logger.NewWithConfig(logger.Config{Level: "info", Pretty: true})

	pool := grpcpkg.NewPool(grpcpkg.WithInterceptor(grpcpkg.LoggingClientInterceptor(log)))
	defer pool.Close()
	conn, err := pool.GetConnection(*target)
	if err != nil {
		log.Fatal().Err(err).Msg("did not connect")
	}
	c := grpc_adapter.NewLedgerServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ids, err := setup(ctx, c, *accounts, *initial)
	if err != nil {
		log.Fatal().Err(err).Msg("setup failed")
	}
	expected := decimal.RequireFromString(*initial).Mul(decimal.NewFromInt(int64(len(ids))))

	ok, rejected, failed := run(ctx, c, log, ids, *total, *concurrency)

	sum, err := totalBalance(ctx, c, ids)
	if err != nil {
		log.Fatal().Err(err).Msg("read balances")
	}

	fmt.Printf("transfers: ok=%d rejected=%d failed=%d\n", ok, rejected, failed)
	fmt.Printf("total balance: %s (expected %s)\n", sum, expected)
	if !sum.Equal(expected) {
		fmt.Println("CONSERVATION VIOLATED")
		os.Exit(1)
	}
}

func setup(ctx context.Context, c *grpc_adapter.LedgerServiceClient, n int, initial string) ([]string, error) {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		resp, err := c.CreateAccount(ctx, &grpc_adapter.CreateAccountRequest{
			CustomerID:    fmt.Sprintf("loadtest-%d", i),
			AccountTypeID: "checking",
			DocumentType:  "national_id",
		})
		if err != nil {
			return nil, fmt.Errorf("create account %d: %w", i, err)
		}
		if _, err := c.Deposit(ctx, &grpc_adapter.DepositRequest{
			AccountID:      resp.Account.ID,
			Amount:         initial,
			IdempotencyKey: "loadtest-init-" + resp.Account.ID,
		}); err != nil {
			return nil, fmt.Errorf("initial deposit %d: %w", i, err)
		}
		ids = append(ids, resp.Account.ID)
	}
	return ids, nil
}

func run(ctx context.Context, c *grpc_adapter.LedgerServiceClient, log zerolog.Logger, ids []string, total, concurrency int) (ok, rejected, failed int64) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)
	start := time.Now()

	for i := 0; i < total; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			r := rand.New(rand.NewSource(int64(idx)))
			from := ids[r.Intn(len(ids))]
			to := ids[r.Intn(len(ids))]
			_, err := c.Transfer(ctx, &grpc_adapter.TransferRequest{
				OutcomeAccountID: from,
				IncomeAccountID:  to,
				Amount:           fmt.Sprintf("%d", 1+r.Intn(50)),
				IdempotencyKey:   uuid.NewString(),
			})
			switch status.Code(err) {
			case codes.OK:
				atomic.AddInt64(&ok, 1)
			case codes.FailedPrecondition, codes.InvalidArgument:
				// 餘額不足或同帳戶互轉
				atomic.AddInt64(&rejected, 1)
			default:
				if n := atomic.AddInt64(&failed, 1); n%1000 == 1 {
					log.Warn().Err(err).Int("idx", idx).Msg("transfer failed")
				}
			}
		}(i)
	}
	wg.Wait()

	elapsed := time.Since(start)
	fmt.Printf("completed %d requests in %v\n", total, elapsed)
	fmt.Printf("TPS: %.2f\n", float64(total)/elapsed.Seconds())
	return ok, rejected, failed
}

func totalBalance(ctx context.Context, c *grpc_adapter.LedgerServiceClient, ids []string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, id := range ids {
		resp, err := c.GetBalance(ctx, &grpc_adapter.GetBalanceRequest{AccountID: id})
		if err != nil {
			return decimal.Zero, err
		}
		balance, err := decimal.NewFromString(resp.Balance)
		if err != nil {
			return decimal.Zero, err
		}
		if balance.IsNegative() {
			return decimal.Zero, fmt.Errorf("account %s has negative balance %s", id, balance)
		}
		sum = sum.Add(balance)
	}
	return sum, nil
}
