package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitCSV("a:9092, b:9092"))
	assert.Empty(t, splitCSV(" , "))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "")
	t.Setenv("SWEEP_BATCH", "")

	cfg := Load()
	assert.NotEmpty(t, cfg.HTTPAddr)
	assert.NotEmpty(t, cfg.KafkaBrokers)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 200, cfg.SweepBatch)
}
