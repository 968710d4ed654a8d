package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fixparts/fixparts/internal/admin"
	"github.com/fixparts/fixparts/internal/alerts"
	"github.com/fixparts/fixparts/internal/commission"
	"github.com/fixparts/fixparts/internal/db"
	"github.com/fixparts/fixparts/internal/marketplace"
	mware "github.com/fixparts/fixparts/internal/middleware"
	"github.com/fixparts/fixparts/internal/settlement"
	"github.com/fixparts/fixparts/internal/shipping"
	"github.com/fixparts/fixparts/internal/store"
	"github.com/fixparts/fixparts/internal/wallet"
)

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	var st store.Store
	if os.Getenv("STORE") == "memory" {
		st = store.NewMemory()
	} else {
		db.Init()
		defer db.Close()
		st = store.NewPostgres(db.Conn)
	}

	calc := commission.NewCalculator(commission.DefaultConfig())
	admin.RestoreCommission(context.Background(), st, calc)
	engine := settlement.NewEngine(st, calc)
	svc := marketplace.NewService(st, engine)

	shipping.Init()
	alerts.Init()
	defer alerts.Close()

	mh := marketplace.NewHandler(svc, st)
	xh := marketplace.NewExchangeHandler(engine)
	wh := wallet.NewHandler(engine, st)
	ah := admin.NewHandler(engine, st)

	e := echo.New()

	// Basic middleware
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	// Health and root routes
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "fixparts"})
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	// Public discovery feed
	e.GET("/marketplace/orders", mh.Discovery)

	// Protected routes
	api := e.Group("")
	api.Use(mware.JWTMiddleware)

	api.POST("/marketplace/orders", mh.CreateOrder, mware.RequireRoles("client"))
	api.GET("/marketplace/orders/me", mh.MyOrders)
	api.GET("/marketplace/orders/:id", mh.GetOrder)
	api.PATCH("/marketplace/orders/:id", mh.UpdateOrder, mware.RequireRoles("client"))
	api.POST("/marketplace/orders/:id/search", mh.ToggleSearch, mware.RequireRoles("client"))
	api.DELETE("/marketplace/orders/:id", mh.DeleteOrder)
	api.POST("/marketplace/orders/:id/restore", mh.RestoreOrder)
	api.POST("/marketplace/orders/:id/cancel", mh.CancelOrder)

	api.POST("/marketplace/orders/:id/proposals", mh.SubmitProposal, mware.RequireRoles("master"))
	api.POST("/marketplace/proposals/:id/accept", mh.AcceptProposal, mware.RequireRoles("client", "admin"))
	api.POST("/marketplace/proposals/:id/reject", mh.RejectProposal, mware.RequireRoles("client", "admin"))
	api.POST("/marketplace/proposals/:id/withdraw", mh.WithdrawProposal, mware.RequireRoles("master"))

	api.POST("/marketplace/orders/:id/start", mh.StartWork, mware.RequireRoles("master", "admin"))
	api.POST("/marketplace/orders/:id/complete", mh.CompleteOrder, mware.RequireRoles("client", "admin"))
	api.POST("/marketplace/orders/:id/dispute", mh.OpenDispute)

	api.POST("/marketplace/exchanges", xh.Propose, mware.RequireRoles("client"))
	api.GET("/marketplace/exchanges/:id", xh.Get)
	api.POST("/marketplace/exchanges/:id/accept", xh.Accept)
	api.POST("/marketplace/exchanges/:id/confirm", xh.Confirm)
	api.POST("/marketplace/exchanges/:id/cancel", xh.Cancel)

	api.GET("/wallet/balance", wh.Balance)
	api.GET("/wallet/transactions", wh.Transactions)
	api.POST("/wallet/topup", wh.Topup)
	api.POST("/wallet/withdraw", wh.Withdraw)

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(mware.JWTMiddleware)
	adminGroup.Use(mware.AdminGuard)

	adminGroup.GET("/wallets", ah.ListWallets)
	adminGroup.GET("/transactions", ah.ListTransactions)
	adminGroup.GET("/users/:id/transactions", ah.UserTransactions)
	adminGroup.POST("/escrow/:id/release", ah.ReleaseEscrow)
	adminGroup.POST("/transactions/:id/refund", ah.RefundTransaction)
	adminGroup.GET("/disputes", ah.ListDisputes)
	adminGroup.POST("/disputes/:id/resolve", ah.ResolveDispute)
	adminGroup.GET("/settings/commission", ah.GetCommission)
	adminGroup.PUT("/settings/commission", ah.UpdateCommission)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := e.Start(":" + port); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
