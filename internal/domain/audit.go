package domain

import "time"

// Запись журнала аудита
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    string                 `db:"user_id" json:"user_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Категории действий
const (
	AuditCategoryAuth   = "auth"
	AuditCategoryGame   = "game"
	AuditCategoryWallet = "wallet"
)

const (
	// Авторизация
	AuditActionLogin = "login"

	// Раунды
	AuditActionRoundStart    = "round_start"
	AuditActionRoundComplete = "round_complete"
	AuditActionResultSaved   = "result_saved"

	// Кошелек
	AuditActionWalletLink = "wallet_link"
)
