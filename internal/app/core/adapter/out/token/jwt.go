package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

var (
	ErrEmptySecret  = errors.New("token secret is empty")
	ErrWeakSecret   = errors.New("token secret uses the legacy default")
	ErrInvalidToken = errors.New("invalid or expired token")
)

const legacySecret = "tokentest"

// Claims 客戶 Token 內容
type Claims struct {
	CustomerID string `json:"customerId"`
	jwt.RegisteredClaims
}

// Issuer 以 HS256 簽發與驗證客戶 Token
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer 建立 Issuer，密鑰為空或為舊版預設值時回傳錯誤
func NewIssuer(secret, issuer string, ttl time.Duration) (*Issuer, error) {
	switch secret {
	case "":
		return nil, ErrEmptySecret
	case legacySecret:
		return nil, ErrWeakSecret
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue 實作 usecase.TokenIssuer
func (i *Issuer) Issue(customerID string) (string, error) {
	now := i.now()
	claims := Claims{
		CustomerID: customerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   customerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify 驗證 Token 並回傳客戶 ID
func (i *Issuer) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	return claims.CustomerID, nil
}

var _ usecase.TokenIssuer = (*Issuer)(nil)
