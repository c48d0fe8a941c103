package domain

import "time"

// Сохраненный итог раунда memory
type MemoryResult struct {
	ID         int64     `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"userID"`
	GameDate   time.Time `db:"game_date" json:"gameDate"`
	Failed     int       `db:"failed" json:"failed"`
	Difficulty string    `db:"difficulty" json:"difficulty"`
	Completed  int       `db:"completed" json:"completed"`
	TimeTaken  int       `db:"time_taken" json:"timeTaken"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Строка таблицы лидеров: лучший результат игрока на уровне
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"user_id"`
	Difficulty string `json:"difficulty"`
	TimeTaken  int    `json:"time_taken"`
	Failed     int    `json:"failed"`
}
