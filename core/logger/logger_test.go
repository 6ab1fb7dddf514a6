package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/spinstream/core/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("production writes json with service attrs", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.WithProduction("spinstream"), logger.WithOutput(&buf))

		log.Info("published", logger.Channel("table-1"), logger.Sequence(3))

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "spinstream", rec["service"])
		assert.Equal(t, "production", rec["env"])
		assert.Equal(t, "table-1", rec["channel"])
		assert.EqualValues(t, 3, rec["sequence"])
	})

	t.Run("level filters records", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.WithLevelName("warn"), logger.WithOutput(&buf))

		log.Info("dropped")
		assert.Empty(t, buf.String())

		log.Warn("kept")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("development enables debug", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.WithEnvironment("dev", "svc"), logger.WithOutput(&buf))
		log.Debug("visible")
		assert.Contains(t, buf.String(), "visible")
	})

	t.Run("discard", func(t *testing.T) {
		t.Parallel()
		assert.NotPanics(t, func() { logger.Discard().Error("nothing", logger.Error(errors.New("x"))) })
	})
}

func TestGroup(t *testing.T) {
	t.Parallel()
	attr := logger.Group("req", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "req", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestErrors(t *testing.T) {
	t.Parallel()
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	assert.True(t, logger.Errors(nil).Equal(slog.Attr{}))
}

func TestNilSafeAttrs(t *testing.T) {
	t.Parallel()

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
	assert.True(t, logger.Panic(nil).Equal(slog.Attr{}))
	assert.True(t, logger.Channel("").Equal(slog.Attr{}))
	assert.True(t, logger.ConnectionID("").Equal(slog.Attr{}))
	assert.True(t, logger.SubscriptionID("").Equal(slog.Attr{}))
	assert.True(t, logger.ID("x", nil).Equal(slog.Attr{}))
}

func TestFeedAttrs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "transport", logger.Transport("websocket").Key)
	assert.Equal(t, int64(4), logger.Attempt(4).Value.Int64())
	assert.Equal(t, 2*time.Second, logger.Delay(2*time.Second).Value.Duration())
	assert.Equal(t, uint64(9), logger.Sequence(9).Value.Uint64())
}
