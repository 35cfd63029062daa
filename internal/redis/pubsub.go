package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/trivia-wave/internal/config"
	"github.com/trivia-wave/internal/domain"
)

// EventsChannel is the pub/sub channel every server process listens on
const EventsChannel = "wave:events"

// Publisher sends fan-out events to every server process
type Publisher struct {
	store *Store
}

// NewPublisher creates a publisher on top of the store's connection
func NewPublisher(store *Store) *Publisher {
	return &Publisher{store: store}
}

// Notify publishes an event
func (p *Publisher) Notify(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := p.store.client.Publish(ctx, EventsChannel, data).Err(); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	return nil
}

// EventHandler processes one received event
type EventHandler func(ctx context.Context, event domain.Event)

// Subscriber delivers published events to a handler.
// Events are spread over worker queues by channel so one channel's events keep their order.
type Subscriber struct {
	store     *Store
	handler   EventHandler
	workers   int
	queueSize int
	logger    *slog.Logger
}

// NewSubscriber creates a new subscriber
func NewSubscriber(store *Store, handler EventHandler, cfg *config.RedisConfig, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		store:     store,
		handler:   handler,
		workers:   max(cfg.EventWorkers, 1),
		queueSize: max(cfg.EventQueueSize, 1),
		logger:    logger,
	}
}

// Run receives events until ctx is cancelled
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.store.client.Subscribe(ctx, EventsChannel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	s.logger.Info("subscribed to wave events", "channel", EventsChannel, "workers", s.workers)

	queues := make([]chan domain.Event, s.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan domain.Event, s.queueSize)
		wg.Add(1)
		go func(queue <-chan domain.Event) {
			defer wg.Done()
			s.work(ctx, queue)
		}(queues[i])
	}
	defer func() {
		for _, queue := range queues {
			close(queue)
		}
		wg.Wait()
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.logger.Error("failed to unmarshal event", "error", err)
				continue
			}
			s.enqueue(queues, event)
		}
	}
}

// enqueue never blocks the receive loop; a full queue drops the event
func (s *Subscriber) enqueue(queues []chan domain.Event, event domain.Event) {
	queue := queues[xxhash.Sum64String(event.ChannelID)%uint64(len(queues))]
	select {
	case queue <- event:
	default:
		s.logger.Warn("event queue full, dropping event",
			"type", event.Type,
			"channel_id", event.ChannelID,
			"user_id", event.UserID,
		)
	}
}

func (s *Subscriber) work(ctx context.Context, queue <-chan domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-queue:
			if !ok {
				return
			}
			s.handler(ctx, event)
		}
	}
}
