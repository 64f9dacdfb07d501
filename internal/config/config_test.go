package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("LABEL_QR_SIZE", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "3210", cfg.Server.Port)
	assert.Equal(t, 200, cfg.Label.QRSize)
	assert.Equal(t, "#FFFFFF", cfg.Label.QRBackground)
}

func TestLoadOverrides(t *testing.T) {
	t.Run("sqlite driver and label sizes", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "SQLite")
		t.Setenv("LABEL_QR_SIZE", "320")
		t.Setenv("LABEL_BATCH_CONCURRENCY", "0")
		t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, 320, cfg.Label.QRSize)
		assert.Equal(t, 1, cfg.Label.BatchConcurrency)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	})

	t.Run("unknown driver is rejected", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "oracle")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("non-numeric int falls back to default", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "")
		t.Setenv("LABEL_QR_SIZE", "big")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 200, cfg.Label.QRSize)
	})

	t.Run("negative qr size is rejected", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "")
		t.Setenv("LABEL_QR_SIZE", "-5")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("oversized qr size is rejected", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "")
		t.Setenv("LABEL_QR_SIZE", "50000")
		_, err := Load()
		assert.Error(t, err)
	})
}
