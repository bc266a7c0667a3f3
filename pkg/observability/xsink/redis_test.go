package xsink_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtimber/pkg/config/xconf"
	"github.com/omeyang/xtimber/pkg/observability/xsink"
	"github.com/omeyang/xtimber/pkg/observability/xtimber"
)

// newTestRedis 创建 miniredis 与连到它的客户端
func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr:         mr.Addr(),
		DialTimeout:  100 * time.Millisecond,
		ReadTimeout:  100 * time.Millisecond,
		WriteTimeout: 100 * time.Millisecond,
		PoolSize:     2,
		MaxRetries:   1,
	})

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedis_Output(t *testing.T) {
	mr, client := newTestRedis(t)
	s, err := xsink.NewRedisSink(client, xsink.RedisOptions{Key: "events", Attempts: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	err = s.Output(context.Background(), xtimber.LevelError, "Orders", "payment failed",
		[]xtimber.Value{xtimber.Int(42), xtimber.Map(xtimber.F("retry", false))})
	require.NoError(t, err)

	items, err := mr.List("events")
	require.NoError(t, err)
	require.Len(t, items, 1)

	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(items[0]), &ev))
	assert.Equal(t, "ERROR", ev["level"])
	assert.Equal(t, "Orders", ev["tag"])
	assert.Equal(t, "payment failed", ev["message"])
	assert.Equal(t, []any{float64(42), map[string]any{"retry": false}}, ev["values"])
	assert.Len(t, ev["id"], 36)
	assert.NotEmpty(t, ev["time"])

	assert.NoError(t, client.Ping(context.Background()).Err(), "a borrowed client stays open")
}

func TestRedis_MaxLen(t *testing.T) {
	mr, client := newTestRedis(t)
	s, err := xsink.NewRedisSink(client, xsink.RedisOptions{Key: "capped", MaxLen: 2})
	require.NoError(t, err)

	ctx := context.Background()
	for _, msg := range []string{"one", "two", "three"} {
		require.NoError(t, s.Output(ctx, xtimber.LevelWarn, "", msg, nil))
	}

	items, err := mr.List("capped")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Contains(t, items[0], `"message":"two"`)
	assert.Contains(t, items[1], `"message":"three"`)
}

func TestRedis_ServerDown(t *testing.T) {
	mr, client := newTestRedis(t)
	s, err := xsink.NewRedisSink(client, xsink.RedisOptions{Key: "events", Attempts: 2, Delay: time.Millisecond})
	require.NoError(t, err)

	mr.Close()
	assert.Error(t, s.Output(context.Background(), xtimber.LevelError, "", "lost", nil))
}

func TestRedis_Closed(t *testing.T) {
	_, client := newTestRedis(t)
	s, err := xsink.NewRedisSink(client, xsink.RedisOptions{Key: "events"})
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Output(context.Background(), xtimber.LevelError, "", "late", nil), xsink.ErrClosed)
}

func TestNewRedis_Factory(t *testing.T) {
	mr, _ := newTestRedis(t)

	sink, err := xsink.NewRedis(xconf.OptionsOf(map[string]any{
		"addr":    mr.Addr(),
		"key":     "timber:test",
		"timeout": "200ms",
	}))
	require.NoError(t, err)
	assert.Equal(t, "timber:test", sink.(*xsink.Redis).Key())

	require.NoError(t, sink.Output(context.Background(), xtimber.LevelDebug, "", "via factory", nil))
	require.NoError(t, sink.(*xsink.Redis).Close())

	items, err := mr.List("timber:test")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestNewRedisSink_Errors(t *testing.T) {
	_, err := xsink.NewRedisSink(nil, xsink.RedisOptions{Key: "k"})
	assert.ErrorIs(t, err, xsink.ErrNilClient)

	_, client := newTestRedis(t)
	_, err = xsink.NewRedisSink(client, xsink.RedisOptions{})
	assert.ErrorIs(t, err, xsink.ErrMissingOption)

	_, err = xsink.NewRedis(xconf.OptionsOf(map[string]any{"key": ""}))
	assert.ErrorIs(t, err, xsink.ErrMissingOption)
}
