package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInitializesLazily(t *testing.T) {
	assert.NotNil(t, Get())
}

func TestWithContextRoundTripsTheStoredLogger(t *testing.T) {
	scoped := With()
	ctx := WithContext(context.Background(), scoped)
	require.Same(t, scoped, FromContext(ctx))
}

func TestFromContextFallsBackToGlobalLoggerWhenAbsent(t *testing.T) {
	assert.Same(t, Get(), FromContext(context.Background()))
}
