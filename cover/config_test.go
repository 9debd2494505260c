package cover

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "ok", cfg: Config{OpenDuration: time.Second, CloseDuration: time.Second}},
		{name: "missing open", cfg: Config{CloseDuration: time.Second}, wantErr: "open duration"},
		{name: "missing close", cfg: Config{OpenDuration: time.Second}, wantErr: "close duration"},
		{name: "negative max", cfg: Config{OpenDuration: time.Second, CloseDuration: time.Second, MaxDuration: -1}, wantErr: "max duration"},
		{name: "negative interval", cfg: Config{OpenDuration: time.Second, CloseDuration: time.Second, ActivationInterval: -1}, wantErr: "activation interval"},
		{name: "bad policy", cfg: Config{OpenDuration: time.Second, CloseDuration: time.Second, Watchdog: "panic"}, wantErr: "watchdog policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_Effective(t *testing.T) {
	cfg := Config{OpenDuration: 10 * time.Second, CloseDuration: 12 * time.Second}.Effective()
	assert.Equal(t, 24*time.Second, cfg.MaxDuration)
	assert.Equal(t, DefaultPublishInterval, cfg.PublishInterval)
	assert.Equal(t, WatchdogStop, cfg.Watchdog)
	assert.Zero(t, cfg.ActivationInterval)
}

func TestNew_Errors(t *testing.T) {
	_, err := New("x", Config{OpenDuration: time.Second, CloseDuration: time.Second}, nil)
	assert.Error(t, err)

	_, err = New("x", Config{}, NewToggleRelay(&fakeRelay{}))
	assert.ErrorContains(t, err, "cover x")
}
