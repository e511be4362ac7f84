package changefeed

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/omarvelez/fleetdriver-app/pkg/config"
	"github.com/omarvelez/fleetdriver-app/pkg/logger"
	"github.com/omarvelez/fleetdriver-app/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "changefeed-test",
		Level:       zerolog.ErrorLevel,
		Output:      &bytes.Buffer{},
	})
}

func testSubscription(t *testing.T, debounce time.Duration, onChange func()) (chan *redis.Message, *Subscription) {
	t.Helper()
	msgs := make(chan *redis.Message, 8)
	sub := newSubscription(msgs, debounce, onChange, func() error { return nil }, testLogger(), nil)
	go sub.loop(context.Background())
	return msgs, sub
}

func waitForCount(t *testing.T, counter *atomic.Int64, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if counter.Load() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("callback count = %d, want %d", counter.Load(), want)
}

func TestRapidEventsCollapseToOneCallback(t *testing.T) {
	var calls atomic.Int64
	msgs, sub := testSubscription(t, 40*time.Millisecond, func() { calls.Add(1) })
	defer sub.Dispose()

	msgs <- &redis.Message{Payload: `{"op":"update"}`}
	msgs <- &redis.Message{Payload: `{"op":"update"}`}
	msgs <- &redis.Message{Payload: `{"op":"insert"}`}

	waitForCount(t, &calls, 1)

	// Nothing further queued, so the count must hold.
	time.Sleep(80 * time.Millisecond)
	require.EqualValues(t, 1, calls.Load())
}

func TestSeparatedEventsEachFire(t *testing.T) {
	var calls atomic.Int64
	msgs, sub := testSubscription(t, 20*time.Millisecond, func() { calls.Add(1) })
	defer sub.Dispose()

	msgs <- &redis.Message{Payload: `{"op":"update"}`}
	waitForCount(t, &calls, 1)

	msgs <- &redis.Message{Payload: `{"op":"delete"}`}
	waitForCount(t, &calls, 2)
}

func TestDisposeSuppressesPendingCallback(t *testing.T) {
	var calls atomic.Int64
	msgs, sub := testSubscription(t, 200*time.Millisecond, func() { calls.Add(1) })

	msgs <- &redis.Message{Payload: `{"op":"update"}`}
	// Let the loop open the debounce window, then tear down before it fires.
	time.Sleep(20 * time.Millisecond)
	sub.Dispose()

	time.Sleep(250 * time.Millisecond)
	require.EqualValues(t, 0, calls.Load())
}

func TestDisposeIsIdempotent(t *testing.T) {
	_, sub := testSubscription(t, 20*time.Millisecond, func() {})
	sub.Dispose()
	sub.Dispose()
}

func TestChannelCloseSignalsDone(t *testing.T) {
	msgs, sub := testSubscription(t, 20*time.Millisecond, func() {})

	close(msgs)

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done was not signalled after channel close")
	}
	require.ErrorIs(t, sub.Err(), ErrChannelClosed)

	// A dropped subscription can still be disposed without hanging.
	sub.Dispose()
}

func TestDisposedFeedNeverSignalsDone(t *testing.T) {
	_, sub := testSubscription(t, 20*time.Millisecond, func() {})
	sub.Dispose()

	select {
	case <-sub.Done():
		t.Fatal("Done signalled after Dispose")
	case <-time.After(50 * time.Millisecond):
	}
	require.NoError(t, sub.Err())
}

func TestNewSubscriberDefaults(t *testing.T) {
	_, err := NewSubscriber(nil, config.ChangeFeedConfig{}, testLogger(), nil)
	require.Error(t, err)

	sub := &Subscriber{prefix: "fleet:assignments"}
	require.Equal(t, "fleet:assignments:driver-1", sub.Channel("driver-1"))
}

func TestFeedDropCountsMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewLifecycleMetrics(reg)

	msgs := make(chan *redis.Message)
	sub := newSubscription(msgs, 20*time.Millisecond, func() {}, func() error { return nil }, testLogger(), m)
	go sub.loop(context.Background())

	close(msgs)
	<-sub.Done()

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "changefeed_drops_total" {
			continue
		}
		require.Len(t, family.GetMetric(), 1)
		require.EqualValues(t, 1, family.GetMetric()[0].GetCounter().GetValue())
		return
	}
	t.Fatal("changefeed_drops_total not gathered")
}
