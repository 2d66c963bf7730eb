package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter 組出 gin.Engine
//
// 路由:
//
//	/health, /ready, POST /v1/onboarding: 不需要 Token
//	其餘 /v1 路由: Authorization: Bearer <token>
func NewRouter(h *Handler, health *HealthHandler, verifier TokenVerifier, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(logger))
	router.Use(gin.Recovery())

	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)

	v1 := router.Group("/v1")
	v1.POST("/onboarding", h.Onboard)

	authed := v1.Group("")
	authed.Use(Auth(verifier, logger))

	accounts := authed.Group("/accounts")
	accounts.GET("", h.ListAccounts)
	accounts.GET("/:id", h.GetAccount)
	accounts.GET("/:id/balance", h.GetBalance)
	accounts.PATCH("/:id/type", h.ChangeAccountType)
	accounts.PATCH("/:id/state", h.ChangeState)
	accounts.DELETE("/:id", h.DeleteAccount)
	accounts.POST("/:id/credit", h.Credit)
	accounts.POST("/:id/debit", h.Debit)
	accounts.GET("/:id/deposits", h.AccountDeposits)
	accounts.GET("/:id/transfers", h.AccountTransfers)

	deposits := authed.Group("/deposits")
	deposits.POST("", h.CreateDeposit)
	deposits.GET("", h.ListDeposits)
	deposits.GET("/:id", h.GetDeposit)
	deposits.DELETE("/:id", h.DeleteDeposit)

	transfers := authed.Group("/transfers")
	transfers.POST("", h.CreateTransfer)
	transfers.GET("", h.ListTransfers)
	transfers.GET("/:id", h.GetTransfer)
	transfers.DELETE("/:id", h.DeleteTransfer)

	return router
}
