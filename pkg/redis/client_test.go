package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
	"github.com/redis/go-redis/v9"
)

func TestNewClientDisabled(t *testing.T) {
	_, err := NewClient(context.Background(), config.RedisConfig{Enabled: false})
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestIsNilError(t *testing.T) {
	if !IsNilError(redis.Nil) {
		t.Error("redis.Nil should be a nil error")
	}
	if !IsNilError(fmt.Errorf("get: %w", redis.Nil)) {
		t.Error("wrapped redis.Nil should be a nil error")
	}
	if IsNilError(errors.New("connection refused")) || IsNilError(nil) {
		t.Error("unexpected nil-error match")
	}
}
