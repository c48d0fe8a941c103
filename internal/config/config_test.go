package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_PORT", "PEEK_DURATION", "INPUT_LOCK_DURATION", "REPORT_MODE", "NOTIFY_CHAT_IDS", "REQUIRE_WALLET"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "5323", cfg.AppPort)
	assert.Equal(t, 1500*time.Millisecond, cfg.PeekDuration)
	assert.Equal(t, 2*time.Second, cfg.InputLockDuration)
	assert.Equal(t, ReportModeDirect, cfg.ReportMode)
	assert.Empty(t, cfg.NotifyChatIDs)
	assert.False(t, cfg.RequireWallet)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("PEEK_DURATION", "1200")
	t.Setenv("INPUT_LOCK_DURATION", "2500ms")
	t.Setenv("NOTIFY_CHAT_IDS", "12, 34,bad,")
	t.Setenv("REQUIRE_WALLET", "true")
	t.Setenv("REDIS_DB", "nope")

	cfg := Load()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 1200*time.Millisecond, cfg.PeekDuration)
	assert.Equal(t, 2500*time.Millisecond, cfg.InputLockDuration)
	assert.Equal(t, []int64{12, 34}, cfg.NotifyChatIDs)
	assert.True(t, cfg.RequireWallet)
	assert.Equal(t, 0, cfg.RedisDB)
}
