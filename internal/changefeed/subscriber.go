package changefeed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/omarvelez/fleetdriver-app/pkg/config"
	"github.com/omarvelez/fleetdriver-app/pkg/logger"
	"github.com/omarvelez/fleetdriver-app/pkg/metrics"
	redisclient "github.com/omarvelez/fleetdriver-app/pkg/redis"
	"github.com/redis/go-redis/v9"
)

// ErrChannelClosed marks a change feed that dropped without Dispose being
// called. Consumers treat the feed as stale from that point on.
var ErrChannelClosed = errors.New("change feed channel closed")

// Subscriber opens driver-scoped change feed subscriptions. The backend
// publishes one event per insert/update/delete on the driver's assignment
// rows; the payload is advisory only and every event folds into a refetch.
type Subscriber struct {
	client   *redisclient.Client
	logg     *logger.Logger
	metrics  *metrics.LifecycleMetrics
	prefix   string
	debounce time.Duration
}

// NewSubscriber builds a subscriber from the change feed configuration.
func NewSubscriber(client *redisclient.Client, cfg config.ChangeFeedConfig, logg *logger.Logger, m *metrics.LifecycleMetrics) (*Subscriber, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 750 * time.Millisecond
	}
	prefix := strings.TrimSpace(cfg.ChannelPrefix)
	if prefix == "" {
		prefix = "fleet:assignments"
	}
	return &Subscriber{
		client:   client,
		logg:     logg,
		metrics:  m,
		prefix:   prefix,
		debounce: debounce,
	}, nil
}

// Channel returns the feed channel name for the given driver.
func (s *Subscriber) Channel(driverID string) string {
	return s.prefix + ":" + driverID
}

// Subscribe opens the feed for the given driver. onChange runs at most once
// per debounce window no matter how many notifications arrive; duplicate
// deliveries are harmless because the callback only triggers a refetch.
func (s *Subscriber) Subscribe(ctx context.Context, driverID string, onChange func()) (*Subscription, error) {
	if strings.TrimSpace(driverID) == "" {
		return nil, fmt.Errorf("driver id required")
	}
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback required")
	}

	pubsub, err := s.client.Subscribe(ctx, s.Channel(driverID))
	if err != nil {
		return nil, err
	}

	sub := newSubscription(pubsub.Channel(), s.debounce, onChange, pubsub.Close, s.logg, s.metrics)
	go sub.loop(s.logg.WithDriverID(ctx, driverID))
	return sub, nil
}

// Subscription is a single open feed. Dispose is synchronous and leak-free:
// once it returns, no further callbacks run.
type Subscription struct {
	msgs     <-chan *redis.Message
	debounce time.Duration
	onChange func()
	closer   func() error
	logg     *logger.Logger
	metrics  *metrics.LifecycleMetrics

	stop     chan struct{}
	finished chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	err     error
	stopped bool
}

func newSubscription(msgs <-chan *redis.Message, debounce time.Duration, onChange func(), closer func() error, logg *logger.Logger, m *metrics.LifecycleMetrics) *Subscription {
	return &Subscription{
		msgs:     msgs,
		debounce: debounce,
		onChange: onChange,
		closer:   closer,
		logg:     logg,
		metrics:  m,
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Subscription) loop(ctx context.Context) {
	defer close(s.finished)

	var window *time.Timer
	var windowC <-chan time.Time
	defer func() {
		if window != nil {
			window.Stop()
		}
	}()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			s.fail(ctx.Err())
			return
		case msg, ok := <-s.msgs:
			if !ok {
				s.metrics.IncFeedDrop()
				s.fail(ErrChannelClosed)
				return
			}
			s.metrics.IncFeedEvent()
			s.logg.Info(s.logg.WithField(ctx, "payload", msg.Payload), "change feed event")
			// First event opens the window; later ones collapse into it.
			if windowC == nil {
				window = time.NewTimer(s.debounce)
				windowC = window.C
			}
		case <-windowC:
			window = nil
			windowC = nil
			s.onChange()
		}
	}
}

func (s *Subscription) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.logg.Error(context.Background(), "change feed dropped", err)
	close(s.done)
}

// Done closes when the feed drops without Dispose. A disposed subscription
// never signals Done.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err reports why the feed dropped, if it did.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dispose tears the subscription down synchronously. After it returns the
// callback will not run again, even for events already in flight.
func (s *Subscription) Dispose() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		<-s.finished
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stop)
	if s.closer != nil {
		_ = s.closer()
	}
	<-s.finished
}
