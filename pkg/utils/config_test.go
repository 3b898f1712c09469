package utils

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

type testConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Enabled  bool          `mapstructure:"enabled"`
	Count    int           `mapstructure:"count"`
	Rate     float64       `mapstructure:"rate"`
	Listen   []string      `mapstructure:"listen"`
	Nested   struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"nested"`
}

func TestUnmarshalConfig(t *testing.T) {
	v := viper.New()
	v.Set("interval", "30s")
	v.Set("enabled", "yes")
	v.Set("count", "3")
	v.Set("rate", "0.25")
	v.Set("listen", "tcp://:8080,tcp://:8081")
	v.Set("nested.path", "/var/lib/queue")

	cfg := &testConfig{}
	assert.NoError(t, UnmarshalConfig(v, cfg))
	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 3, cfg.Count)
	assert.Equal(t, 0.25, cfg.Rate)
	assert.Equal(t, []string{"tcp://:8080", "tcp://:8081"}, cfg.Listen)
	assert.Equal(t, "/var/lib/queue", cfg.Nested.Path)
}

func TestUnmarshalConfigBadBool(t *testing.T) {
	v := viper.New()
	v.Set("enabled", "maybe")

	cfg := &testConfig{}
	assert.Error(t, UnmarshalConfig(v, cfg))
}
