package domain

import "time"

// Подключенный TON кошелек игрока. Без кошелька раунд можно запретить (REQUIRE_WALLET)
type Wallet struct {
	UserID     string    `db:"user_id" json:"user_id"`
	Address    string    `db:"address" json:"address"`
	RawAddress string    `db:"raw_address" json:"raw_address,omitempty"`
	LinkedAt   time.Time `db:"linked_at" json:"linked_at"`
}
