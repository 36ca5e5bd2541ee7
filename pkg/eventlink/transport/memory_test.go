package transport_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventlink/pkg/eventlink/transport"
)

type received struct {
	channel string
	payload string
}

type collector struct {
	mu  sync.Mutex
	got []received
}

func (c *collector) handle(_ context.Context, channel string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, received{channel: channel, payload: string(payload)})
}

func (c *collector) snapshot() []received {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]received(nil), c.got...)
}

func TestMemoryTransport_Delivers(t *testing.T) {
	tr := transport.NewMemoryTransport(transport.MemoryConfig{})
	defer tr.Close()

	var c collector
	sub, err := tr.Subscribe(context.Background(), c.handle)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	ctx := context.Background()
	require.NoError(t, tr.Send(ctx, "domain-events", []byte("a")))
	require.NoError(t, tr.Send(ctx, "compensation-events", []byte("b")))
	require.NoError(t, tr.Send(ctx, "chat-events", []byte("c")))

	require.Eventually(t, func() bool { return len(c.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	got := c.snapshot()
	assert.Equal(t, received{"domain-events", "a"}, got[0])
	assert.Equal(t, received{"compensation-events", "b"}, got[1])
}

func TestMemoryTransport_FanOutToSubscribers(t *testing.T) {
	tr := transport.NewMemoryTransport(transport.MemoryConfig{})
	defer tr.Close()

	var a, b collector
	_, err := tr.Subscribe(context.Background(), a.handle, "domain-events")
	require.NoError(t, err)
	_, err = tr.Subscribe(context.Background(), b.handle, "domain-events")
	require.NoError(t, err)

	require.NoError(t, tr.Send(context.Background(), "domain-events", []byte("x")))

	require.Eventually(t, func() bool {
		return len(a.snapshot()) == 1 && len(b.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryTransport_PayloadIsCopied(t *testing.T) {
	tr := transport.NewMemoryTransport(transport.MemoryConfig{})
	defer tr.Close()

	var c collector
	_, err := tr.Subscribe(context.Background(), c.handle, "domain-events")
	require.NoError(t, err)

	buf := []byte("original")
	require.NoError(t, tr.Send(context.Background(), "domain-events", buf))
	copy(buf, "mutated!")

	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "original", c.snapshot()[0].payload)
}

func TestMemoryTransport_Unsubscribe(t *testing.T) {
	tr := transport.NewMemoryTransport(transport.MemoryConfig{})
	defer tr.Close()

	var c collector
	sub, err := tr.Subscribe(context.Background(), c.handle, "domain-events")
	require.NoError(t, err)
	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe(), "second unsubscribe is a no-op")

	require.NoError(t, tr.Send(context.Background(), "domain-events", []byte("x")))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, c.snapshot())
}

func TestMemoryTransport_ContextEndsSubscription(t *testing.T) {
	tr := transport.NewMemoryTransport(transport.MemoryConfig{})
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var c collector
	_, err := tr.Subscribe(ctx, c.handle, "domain-events")
	require.NoError(t, err)
	cancel()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, tr.Send(context.Background(), "domain-events", []byte("x")))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, c.snapshot())
}

func TestMemoryTransport_NonBlockingDrops(t *testing.T) {
	var dropped atomic.Int32
	tr := transport.NewMemoryTransport(transport.MemoryConfig{
		BufferSize:  1,
		NonBlocking: true,
		OnDrop:      func(string, []byte) { dropped.Add(1) },
	})
	defer tr.Close()

	release := make(chan struct{})
	_, err := tr.Subscribe(context.Background(), func(context.Context, string, []byte) {
		<-release
	}, "domain-events")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, tr.Send(context.Background(), "domain-events", []byte("x")))
	}
	close(release)

	assert.GreaterOrEqual(t, dropped.Load(), int32(3))
}

func TestMemoryTransport_Closed(t *testing.T) {
	tr := transport.NewMemoryTransport(transport.MemoryConfig{})
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	assert.ErrorIs(t, tr.Send(context.Background(), "domain-events", nil), transport.ErrClosed)
	_, err := tr.Subscribe(context.Background(), func(context.Context, string, []byte) {})
	assert.ErrorIs(t, err, transport.ErrClosed)
}

func TestOpen(t *testing.T) {
	tr, err := transport.Open(context.Background(), transport.Config{Kind: transport.KindMemory})
	require.NoError(t, err)
	assert.IsType(t, &transport.MemoryTransport{}, tr)
	require.NoError(t, tr.Close())

	_, err = transport.Open(context.Background(), transport.Config{Kind: "carrier-pigeon"})
	assert.Error(t, err)

	_, err = transport.Open(context.Background(), transport.Config{Kind: transport.KindKafka})
	assert.Error(t, err, "kafka needs brokers")
}

func TestChannelNames(t *testing.T) {
	assert.Equal(t, []string{"domain-events", "compensation-events"}, transport.ChannelNames())
}

func TestMemoryTransport_HandlerSendNeverBlocks(t *testing.T) {
	tr := transport.NewMemoryTransport(transport.MemoryConfig{BufferSize: 1})
	defer tr.Close()

	var pongs atomic.Int32
	_, err := tr.Subscribe(context.Background(), func(ctx context.Context, channel string, payload []byte) {
		if string(payload) != "ping" {
			pongs.Add(1)
			return
		}
		// Only this goroutine drains the queue, so these sends must not wait.
		for i := 0; i < 10; i++ {
			require.NoError(t, tr.Send(ctx, channel, []byte("pong")))
		}
	}, "domain-events")
	require.NoError(t, err)

	require.NoError(t, tr.Send(context.Background(), "domain-events", []byte("ping")))
	assert.Eventually(t, func() bool { return pongs.Load() == 10 }, 2*time.Second, 5*time.Millisecond)
}

func TestMemoryTransport_OutsideSendHonorsContext(t *testing.T) {
	tr := transport.NewMemoryTransport(transport.MemoryConfig{BufferSize: 1})
	defer tr.Close()

	release := make(chan struct{})
	defer close(release)
	_, err := tr.Subscribe(context.Background(), func(context.Context, string, []byte) {
		<-release
	}, "domain-events")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var sendErr error
	for i := 0; i < 3 && sendErr == nil; i++ {
		sendErr = tr.Send(ctx, "domain-events", []byte("x"))
	}
	assert.ErrorIs(t, sendErr, context.DeadlineExceeded)
}
