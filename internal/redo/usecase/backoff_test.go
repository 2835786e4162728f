package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		name     string
		attempts int
		interval time.Duration
		ceiling  time.Duration
		want     time.Duration
	}{
		{"first attempt", 1, 30 * time.Second, time.Hour, 30 * time.Second},
		{"second attempt doubles", 2, 30 * time.Second, time.Hour, time.Minute},
		{"fourth attempt", 4, 30 * time.Second, time.Hour, 4 * time.Minute},
		{"capped", 10, 30 * time.Second, time.Hour, time.Hour},
		{"interval above ceiling", 1, 2 * time.Hour, time.Hour, time.Hour},
		{"no ceiling", 3, time.Second, 0, 4 * time.Second},
		{"zero attempts", 0, time.Second, time.Hour, time.Second},
		{"zero interval", 5, 0, time.Hour, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Backoff(tt.attempts, tt.interval, tt.ceiling))
		})
	}

	t.Run("no ceiling does not overflow", func(t *testing.T) {
		assert.Positive(t, Backoff(200, time.Second, 0))
	})
}
