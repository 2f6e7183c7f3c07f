package logger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
)

func TestFromContext_ReturnsStoredLogger(t *testing.T) {
	t.Parallel()

	nop := logger.NewNop()
	ctx := logger.WithContext(context.Background(), nop)

	assert.Equal(t, nop, logger.FromContext(ctx))
}

func TestFromContext_FallbackIsShared(t *testing.T) {
	t.Parallel()

	first := logger.FromContext(context.Background())
	second := logger.FromContext(context.Background())

	require.NotNil(t, first)
	assert.Same(t, first, second)
	first.Debug("filtered")
}

func TestNewFromZap_WithCarriesFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	log := logger.NewFromZap(zap.New(core)).With(logger.String("service", "curation"))

	log.Info("decision", logger.String("action", "block"))
	log.Debug("dropped")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "curation", fields["service"])
	assert.Equal(t, "block", fields["action"])
}

func TestNew_DefaultsApplied(t *testing.T) {
	t.Parallel()

	log, err := logger.New(logger.Config{OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	require.NotNil(t, log)
}
