package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// CoreUseCase 是核心業務邏輯層，組合帳戶、存款、轉帳服務供 Adapter 使用
type CoreUseCase struct {
	Accounts  *AccountLedger
	Deposits  *DepositService
	Transfers *TransferService

	tokens TokenIssuer
	logger zerolog.Logger
}

func NewCoreUseCase(store Store, notifier Notifier, tokens TokenIssuer, logger zerolog.Logger, opts ...Option) *CoreUseCase {
	ledger := NewAccountLedger(store, notifier, logger, opts...)
	return &CoreUseCase{
		Accounts:  ledger,
		Deposits:  NewDepositService(ledger, store, logger, opts...),
		Transfers: NewTransferService(ledger, store, logger, opts...),
		tokens:    tokens,
		logger:    logger,
	}
}

// OnboardCommand 開戶請求
type OnboardCommand struct {
	CustomerID    string
	AccountTypeID string
	DocumentType  string
}

// Onboard 開戶：驗證證件類型、建立帳戶並簽發客戶 Token
//
// 回傳:
//
//	*domain.Account: 新帳戶
//	string: 客戶 Token (未設定 TokenIssuer 時為空字串)
//	error: ErrUnsupportedDocumentType / ErrInvalidReference / 儲存錯誤
func (c *CoreUseCase) Onboard(ctx context.Context, cmd OnboardCommand) (*domain.Account, string, error) {
	docType, err := domain.ParseDocumentType(cmd.DocumentType)
	if err != nil {
		return nil, "", err
	}
	account, err := c.Accounts.Create(ctx, cmd.CustomerID, cmd.AccountTypeID)
	if err != nil {
		return nil, "", err
	}
	c.logger.Info().
		Str("account_id", account.ID.String()).
		Str("document_type", docType.String()).
		Msg("customer onboarded")

	if c.tokens == nil {
		return account, "", nil
	}
	token, err := c.tokens.Issue(cmd.CustomerID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return account, token, nil
}
