package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/tallyapp/tally-backend/internal/middleware"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(
	e *echo.Echo,
	authMiddleware *middleware.TokenAuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	accountHandler *AccountHandler,
	transactionHandler *TransactionHandler,
	scheduleHandler *ScheduleHandler,
	forecastHandler *ForecastHandler,
	tokenHandler *TokenHandler,
	wsHandler *WebSocketHandler,
) {
	// API version 1
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	api.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Account routes
	accounts := api.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetAccounts)
	accounts.GET("/:id", accountHandler.GetAccount)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.DELETE("/:id", accountHandler.DeleteAccount)

	// Transaction routes
	transactions := api.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
	transactions.POST("/:id/receipt", transactionHandler.UploadReceipt)
	transactions.GET("/:id/receipt", transactionHandler.GetReceipt)
	transactions.DELETE("/:id/receipt", transactionHandler.DeleteReceipt)

	// Scheduled transaction routes
	schedules := api.Group("/schedules")
	schedules.POST("", scheduleHandler.CreateSchedule)
	schedules.GET("", scheduleHandler.GetSchedules)
	schedules.GET("/due", scheduleHandler.GetDueSchedules)
	schedules.GET("/:id", scheduleHandler.GetSchedule)
	schedules.PUT("/:id", scheduleHandler.UpdateSchedule)
	schedules.DELETE("/:id", scheduleHandler.DeleteSchedule)
	schedules.POST("/:id/post", scheduleHandler.PostSchedule)
	schedules.POST("/:id/skip", scheduleHandler.SkipSchedule)

	// Forecast routes
	api.GET("/forecast/:year", forecastHandler.GetForecast)

	// API token management routes
	tokens := api.Group("/tokens")
	tokens.POST("", tokenHandler.CreateToken)
	tokens.GET("", tokenHandler.ListTokens)
	tokens.DELETE("/:id", tokenHandler.RevokeToken)

	// WebSocket endpoint authenticates via query parameter, outside the
	// bearer middleware.
	e.GET("/ws", wsHandler.HandleWS)
}
