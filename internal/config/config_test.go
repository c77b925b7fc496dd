package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDurationOr(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("GOOD_INTERVAL", "1500ms")
	assert.Equal(t, 1500*time.Millisecond, durationOr("GOOD_INTERVAL", time.Second))

	// A bare number has no unit; Viper yields 0 and the default applies.
	viper.Set("BARE_INTERVAL", "1200")
	assert.Equal(t, time.Second, durationOr("BARE_INTERVAL", time.Second))

	assert.Equal(t, time.Second, durationOr("UNSET_INTERVAL", time.Second))
}
