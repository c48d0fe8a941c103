package http

import (
	"memory_webapp/internal/http/handlers"
	"memory_webapp/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes вешает все маршруты API на r
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, tokens middleware.TokenParser) {
	if h.Hub != nil {
		h.Hub.SetMessageHandler(h.HandleWSMessage)
	}

	r.GET("/health", h.Health)

	api := r.Group("/api")

	// публичные маршруты лимитируются по ip
	public := api.Group("", middleware.RateLimit())
	{
		public.POST("/auth/telegram", h.TelegramLogin)
		public.POST("/memory/save", h.SaveResult)
		public.GET("/memory/leaderboard", h.Leaderboard)
	}

	// лимит после AuthRequired, чтобы считать по игроку
	authed := api.Group("", middleware.AuthRequired(tokens), middleware.RateLimit())
	{
		authed.POST("/memory/rounds", h.StartRound)
		authed.DELETE("/memory/rounds", h.EndRound)
		authed.POST("/memory/flip", h.Flip)
		authed.GET("/memory/state", h.RoundState)
		authed.GET("/memory/history", h.History)
		authed.GET("/memory/activity", h.Activity)
		authed.POST("/wallet/link", h.LinkWallet)
	}

	r.GET("/ws/memory", middleware.AuthRequired(tokens), h.MemoryWS)
}
