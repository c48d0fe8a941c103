package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// вход через Telegram, в ответе JWT
func (h *Handler) TelegramLogin(c *gin.Context) {
	var req struct {
		InitData string `json:"init_data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.InitData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data required"})
		return
	}

	token, user, err := h.Auth.LoginTelegram(c.Request.Context(), req.InitData, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}
