package sse_test

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/spinstream/core/sse"
	"github.com/dmitrymomot/spinstream/core/stream"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("sequenced update", func(t *testing.T) {
		t.Parallel()
		got := sse.Encode(stream.Update("table-1", 7, `{"number":17,"color":"black"}`, now))
		assert.Equal(t, "event: update\nid: 7\ndata: {\"number\":17,\"color\":\"black\"}\n\n", string(got))
	})

	t.Run("snapshot has no id line", func(t *testing.T) {
		t.Parallel()
		got := sse.Encode(stream.Update("table-1", 0, "x", now))
		assert.Equal(t, "event: update\ndata: x\n\n", string(got))
	})

	t.Run("multi-line payload", func(t *testing.T) {
		t.Parallel()
		got := sse.Encode(stream.Update("table-1", 1, "a\nb", now))
		assert.Equal(t, "event: update\nid: 1\ndata: a\ndata: b\n\n", string(got))
	})

	t.Run("comments", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, ": heartbeat\n\n", string(sse.Encode(stream.Heartbeat("t", now))))
		assert.Equal(t, ": connected watching table-1\n\n",
			string(sse.Encode(stream.Connected("t", "watching\ntable-1", now))))
	})
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("update frame", func(t *testing.T) {
		t.Parallel()
		ev, ok, err := sse.Parse([]byte("event: update\r\nid: 12\r\ndata: a\r\ndata: b"), "table-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, stream.KindUpdate, ev.Kind)
		assert.Equal(t, uint64(12), ev.Sequence)
		assert.Equal(t, "a\nb", ev.Payload)
		assert.Equal(t, "table-1", ev.Channel)
	})

	t.Run("missing event field defaults to update", func(t *testing.T) {
		t.Parallel()
		ev, ok, err := sse.Parse([]byte("data: x"), "t")
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, ev.IsSnapshot())
	})

	t.Run("connected and heartbeat comments", func(t *testing.T) {
		t.Parallel()
		ev, ok, err := sse.Parse([]byte(": connected hello there"), "t")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, stream.KindConnected, ev.Kind)
		assert.Equal(t, "hello there", ev.Payload)

		ev, ok, err = sse.Parse([]byte(": heartbeat"), "t")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, stream.KindHeartbeat, ev.Kind)
	})

	t.Run("ignorable frames", func(t *testing.T) {
		t.Parallel()
		for _, frame := range []string{": keepalive", "retry: 3000", ""} {
			_, ok, err := sse.Parse([]byte(frame), "t")
			require.NoError(t, err, frame)
			assert.False(t, ok, frame)
		}
	})

	t.Run("unknown fields are skipped", func(t *testing.T) {
		t.Parallel()
		frame := "event: update\nid: 4\nx-proxy-trace: abc123\ndata: 17 black\nretry: 3000\n\n"
		ev, ok, err := sse.Parse([]byte(frame), "table-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, uint64(4), ev.Sequence)
		assert.Equal(t, "17 black", ev.Payload)

		_, ok, err = sse.Parse([]byte("x-proxy-trace: abc123\n"), "table-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("malformed frames", func(t *testing.T) {
		t.Parallel()
		cases := map[string]error{
			"event: spin\ndata: x": stream.ErrUnknownKind,
			"id: abc\ndata: x":     sse.ErrInvalidID,
			"event: update":        sse.ErrMissingData,
		}
		for frame, want := range cases {
			_, ok, err := sse.Parse([]byte(frame), "t")
			require.Error(t, err, frame)
			assert.False(t, ok)
			var decodeErr *sse.DecodeError
			assert.True(t, errors.As(err, &decodeErr), frame)
			assert.ErrorIs(t, err, want, frame)
		}
	})

	t.Run("round trip through encode", func(t *testing.T) {
		t.Parallel()
		in := stream.Update("table-9", 3, "line1\nline2", time.Now())
		ev, ok, err := sse.Parse(sse.Encode(in), "table-9")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, in.Sequence, ev.Sequence)
		assert.Equal(t, in.Payload, ev.Payload)
	})
}

func TestReader(t *testing.T) {
	t.Parallel()

	t.Run("splits frames and skips blank runs", func(t *testing.T) {
		t.Parallel()
		input := ": connected ok\n\n\n\nevent: update\nid: 1\ndata: x\n\n: heartbeat\n\ndata: tail"
		r := sse.NewReader(strings.NewReader(input), 0)

		var frames []string
		for {
			f, err := r.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
			frames = append(frames, string(f))
		}

		require.Len(t, frames, 4)
		assert.Equal(t, ": connected ok\n", frames[0])
		assert.Equal(t, "event: update\nid: 1\ndata: x\n", frames[1])
		assert.Equal(t, ": heartbeat\n", frames[2])
		assert.Equal(t, "data: tail", frames[3])
	})

	t.Run("rejects oversized frames", func(t *testing.T) {
		t.Parallel()
		input := "data: " + strings.Repeat("x", 100) + "\n\n"
		r := sse.NewReader(strings.NewReader(input), 32)
		_, err := r.Next()
		assert.ErrorIs(t, err, sse.ErrFrameTooLarge)
	})
}
