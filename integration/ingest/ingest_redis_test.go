package ingest_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/dmitrymomot/spinstream/core/broadcast"
	"github.com/dmitrymomot/spinstream/integration/database/redis"
	"github.com/dmitrymomot/spinstream/integration/ingest"
)

func TestRelay_RunAgainstRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ctr, err := rediscontainer.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	url, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := redis.Connect(ctx, redis.Config{ConnectionURL: url, RetryAttempts: 3, RetryInterval: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	reg := broadcast.NewRegistry()
	t.Cleanup(reg.Close)
	svc, err := broadcast.NewService(reg)
	require.NoError(t, err)

	relay, err := ingest.New(client, svc, ingest.Config{})
	require.NoError(t, err)

	runCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- relay.Run(runCtx)() }()

	// Publish reports the number of receivers; 1 means the pattern is live.
	require.Eventually(t, func() bool {
		n, err := client.Publish(ctx, "roulette:results:table-7", `{"number":17,"color":"black"}`).Result()
		return err == nil && n > 0
	}, 10*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := svc.Latest("table-7")
		return ok
	}, 5*time.Second, 10*time.Millisecond)
	ev, _ := svc.Latest("table-7")
	assert.Equal(t, uint64(1), ev.Sequence)
	assert.Equal(t, `{"number":17,"color":"black"}`, ev.Payload)

	stop()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
