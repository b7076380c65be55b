package ratelimit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ruggine/chatcore/internal/ratelimit"
)

func TestNilLimiterAllowsEverything(t *testing.T) {
	var l *ratelimit.Limiter
	require.NoError(t, l.Allow(context.Background(), "login", "127.0.0.1"))
}
