package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/validation"
)

type GrpcServer struct {
	core *usecase.CoreUseCase
}

func NewGrpcServer(core *usecase.CoreUseCase) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

func (s *GrpcServer) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*CreateAccountResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	account, token, err := s.core.Onboard(ctx, usecase.OnboardCommand{
		CustomerID:    req.CustomerID,
		AccountTypeID: req.AccountTypeID,
		DocumentType:  req.DocumentType,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &CreateAccountResponse{Account: toAccount(account), Token: token}, nil
}

func (s *GrpcServer) GetBalance(ctx context.Context, req *GetBalanceRequest) (*GetBalanceResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	id := uuid.MustParse(req.AccountID)
	balance, err := s.core.Accounts.GetBalance(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetBalanceResponse{AccountID: id.String(), Balance: balance.String()}, nil
}

func (s *GrpcServer) Deposit(ctx context.Context, req *DepositRequest) (*DepositResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	deposit, err := s.core.Deposits.CreateDeposit(ctx, usecase.CreateDepositCommand{
		AccountID:      uuid.MustParse(req.AccountID),
		Amount:         amount,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	// 餘額為提交後的最新值 (Best Effort)
	balance, _ := s.core.Accounts.GetBalance(ctx, deposit.AccountID)
	return &DepositResponse{Deposit: toDeposit(deposit), Balance: balance.String()}, nil
}

func (s *GrpcServer) Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	transfer, err := s.core.Transfers.CreateTransfer(ctx, usecase.CreateTransferCommand{
		OutcomeAccountID: uuid.MustParse(req.OutcomeAccountID),
		IncomeAccountID:  uuid.MustParse(req.IncomeAccountID),
		Amount:           amount,
		Reason:           req.Reason,
		IdempotencyKey:   req.IdempotencyKey,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	balance, _ := s.core.Accounts.GetBalance(ctx, transfer.OutcomeAccountID)
	return &TransferResponse{Transfer: toTransfer(transfer), OutcomeBalance: balance.String()}, nil
}

func (s *GrpcServer) AccountHistory(ctx context.Context, req *AccountHistoryRequest) (*AccountHistoryResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	accountID := uuid.MustParse(req.AccountID)
	p := domain.Pagination{Offset: req.Offset, Limit: req.Limit}
	r := domain.DateRange{Start: req.DateStart, End: req.DateEnd}

	if req.Kind == HistoryDeposits {
		deposits, err := s.core.Deposits.GetAccountHistory(ctx, accountID, p, r)
		if err != nil {
			return nil, toStatus(err)
		}
		resp := &AccountHistoryResponse{Deposits: make([]*Deposit, len(deposits))}
		for i, d := range deposits {
			resp.Deposits[i] = toDeposit(d)
		}
		return resp, nil
	}

	transfers, err := s.core.Transfers.History(ctx, historyDirection(req.Direction), accountID, p, r)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &AccountHistoryResponse{Transfers: make([]*Transfer, len(transfers))}
	for i, t := range transfers {
		resp.Transfers[i] = toTransfer(t)
	}
	return resp, nil
}

func historyDirection(s string) usecase.HistoryDirection {
	switch s {
	case "in":
		return usecase.HistoryIn
	case "out":
		return usecase.HistoryOut
	default:
		return usecase.HistoryAll
	}
}

func validate(req any) error {
	errs := validation.Struct(req)
	if len(errs) == 0 {
		return nil
	}
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field + ": " + e.Message
	}
	return status.Error(codes.InvalidArgument, strings.Join(fields, "; "))
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, status.Error(codes.InvalidArgument, "amount: must be a decimal string")
	}
	return amount, nil
}

// toStatus 將業務錯誤轉為 gRPC 狀態碼
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrDepositNotFound),
		errors.Is(err, domain.ErrTransferNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSameAccountTransfer),
		errors.Is(err, domain.ErrInvalidReference),
		errors.Is(err, domain.ErrInvalidPagination),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrUnsupportedDocumentType):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrAccountInactive),
		errors.Is(err, domain.ErrAccountNotEmpty),
		errors.Is(err, domain.ErrBalanceLimitExceeded):
		code = codes.FailedPrecondition
	case errors.Is(err, domain.ErrIdempotencyConflict):
		code = codes.AlreadyExists
	case errors.Is(err, domain.ErrStorageUnavailable):
		code = codes.Unavailable
	case errors.Is(err, domain.ErrConsistencyFailure):
		code = codes.DataLoss
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

func toAccount(a *domain.Account) *Account {
	return &Account{
		ID:            a.ID.String(),
		CustomerID:    a.CustomerID,
		AccountTypeID: a.AccountTypeID,
		Balance:       a.Balance.String(),
		Active:        a.Active,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func toDeposit(d *domain.Deposit) *Deposit {
	return &Deposit{ID: d.ID.String(), AccountID: d.AccountID.String(), Amount: d.Amount.String(), CreatedAt: d.CreatedAt}
}

func toTransfer(t *domain.Transfer) *Transfer {
	return &Transfer{
		ID:               t.ID.String(),
		OutcomeAccountID: t.OutcomeAccountID.String(),
		IncomeAccountID:  t.IncomeAccountID.String(),
		Amount:           t.Amount.String(),
		Reason:           t.Reason,
		CreatedAt:        t.CreatedAt,
	}
}

// LoggingInterceptor 記錄每個 RPC 的方法、耗時與狀態碼
func LoggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		event := logger.Info()
		switch code {
		case codes.OK, codes.NotFound, codes.InvalidArgument, codes.FailedPrecondition, codes.AlreadyExists:
		default:
			event = logger.Error().Err(err)
		}
		event.Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("latency", time.Since(start)).
			Msg("grpc request")
		return resp, err
	}
}

var _ LedgerServiceServer = (*GrpcServer)(nil)
