package handlers

import (
	"net/http"
	"strconv"

	"memory_webapp/internal/game"

	"github.com/gin-gonic/gin"
)

// сохранение итога раунда
func (h *Handler) SaveResult(c *gin.Context) {
	var sum game.Summary
	if err := c.ShouldBindJSON(&sum); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	res, err := h.Results.Save(c.Request.Context(), sum)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": res.ID})
}

// новый раунд
func (h *Handler) StartRound(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Difficulty string `json:"difficulty"`
	}
	// пустое тело - сложность по умолчанию
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
	}

	roundID, state, err := h.Rounds.StartRound(c.Request.Context(), userID, req.Difficulty)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"round_id": roundID, "state": state})
}

func (h *Handler) Flip(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Position *int `json:"position"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Position == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "position required"})
		return
	}

	accepted, state, err := h.Rounds.Flip(c.Request.Context(), userID, *req.Position)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": accepted, "state": state})
}

func (h *Handler) RoundState(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	state, err := h.Rounds.State(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) EndRound(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.Rounds.EndRound(c.Request.Context(), userID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// последние результаты игрока
func (h *Handler) History(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	results, err := h.Results.History(c.Request.Context(), userID, queryLimit(c, 20, 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// журнал действий игрока: входы, раунды, сохранения, кошелек
func (h *Handler) Activity(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	logs, err := h.Audit.GetUserAuditLogs(c.Request.Context(), userID, queryLimit(c, 50, 200))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get activity"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": logs})
}

// лучшие результаты по сложности
func (h *Handler) Leaderboard(c *gin.Context) {
	d, ok := game.ParseDifficulty(c.Query("difficulty"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown difficulty"})
		return
	}

	entries, err := h.Results.Leaderboard(c.Request.Context(), string(d), queryLimit(c, 10, 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"difficulty":  d,
		"leaderboard": entries,
	})
}

func queryLimit(c *gin.Context, def, max int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
