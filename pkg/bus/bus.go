package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/flowboard/internal/logging"
)

var (
	// ErrNoSubscriber is returned by Publish when nothing is bound to the bus.
	ErrNoSubscriber = errors.New("bus: no subscriber")
	// ErrAlreadySubscribed is returned when a second consumer tries to bind.
	ErrAlreadySubscribed = errors.New("bus: already has a subscriber")
	// ErrUnknownIntent is returned for event names outside the closed set.
	ErrUnknownIntent = errors.New("bus: unknown intent")
)

// Handler consumes intents. It runs synchronously on the publisher's goroutine.
type Handler func(ctx context.Context, in Intent) error

// Bus is a single-consumer publish/subscribe channel for intents.
// Delivery is synchronous: Publish returns the handler's error.
type Bus struct {
	mu      sync.RWMutex
	handler Handler
	gen     uint64
	logger  *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for delivery tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// New creates a bus without a subscriber.
func New(opts ...Option) *Bus {
	b := &Bus{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe binds h as the only consumer. The returned function unbinds it;
// calling it after another consumer took over is a no-op.
func (b *Bus) Subscribe(h Handler) (func(), error) {
	if h == nil {
		return nil, fmt.Errorf("bus: nil handler")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handler != nil {
		return nil, ErrAlreadySubscribed
	}
	b.handler = h
	b.gen++
	gen := b.gen

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.gen == gen {
			b.handler = nil
		}
	}, nil
}

// Subscribed reports whether a consumer is bound.
func (b *Bus) Subscribed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handler != nil
}

// Publish delivers in to the bound consumer and returns its result.
func (b *Bus) Publish(ctx context.Context, in Intent) error {
	if in == nil {
		return fmt.Errorf("bus: nil intent")
	}

	b.mu.RLock()
	h := b.handler
	b.mu.RUnlock()

	if h == nil {
		b.logger.Warn("intent dropped", "intent", in.Kind(), "node_id", in.Target())
		return ErrNoSubscriber
	}

	b.logger.Debug("intent published", "intent", in.Kind(), "node_id", in.Target())
	return h(ctx, in)
}

// PublishEvent decodes a named event and publishes it.
func (b *Bus) PublishEvent(ctx context.Context, event string, payload []byte) error {
	in, err := Decode(event, payload)
	if err != nil {
		return err
	}
	return b.Publish(ctx, in)
}
