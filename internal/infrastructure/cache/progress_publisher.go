package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/b2bportal/backend/internal/application/reconciliation"
	"github.com/b2bportal/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// publishTimeout bounds a single publish so a slow Redis cannot stall delivery
const publishTimeout = 2 * time.Second

// RedisProgressPublisher forwards sync progress to a Redis pub/sub channel and
// keeps the latest event under a status key for late readers.
type RedisProgressPublisher struct {
	client    redis.UniversalClient
	channel   string
	statusKey string
	statusTTL time.Duration
	logger    *zap.Logger

	mu        sync.Mutex
	listening bool
}

// NewRedisClient opens and pings a Redis client from configuration
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisProgressPublisher creates a publisher over an existing client.
// The caller keeps ownership of the client.
func NewRedisProgressPublisher(client redis.UniversalClient, cfg config.RedisConfig, logger *zap.Logger) *RedisProgressPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisProgressPublisher{
		client:    client,
		channel:   cfg.ProgressChannel,
		statusKey: cfg.StatusKey,
		statusTTL: cfg.StatusTTL,
		logger:    logger.Named("progress"),
	}
}

// OnProgress publishes the event and stores it as the latest status.
// Failures are logged; progress delivery never fails a run.
func (p *RedisProgressPublisher) OnProgress(ctx context.Context, event reconciliation.Progress) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal progress event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, p.channel, data)
		pipe.Set(ctx, p.statusKey, data, p.statusTTL)
		return nil
	})
	if err != nil {
		p.logger.Warn("Failed to publish progress event",
			zap.String("channel", p.channel),
			zap.String("stage", string(event.Stage)),
			zap.Error(err))
		return
	}

	p.logger.Debug("Published progress event",
		zap.String("status", string(event.Status)),
		zap.String("stage", string(event.Stage)))
}

// LastProgress returns the latest stored event, or nil when none is stored
func (p *RedisProgressPublisher) LastProgress(ctx context.Context) (*reconciliation.Progress, error) {
	data, err := p.client.Get(ctx, p.statusKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read progress status: %w", err)
	}
	return decodeProgress(data)
}

// Subscribe delivers progress events to callback until ctx is done or the
// channel closes. It blocks and allows a single active subscription.
func (p *RedisProgressPublisher) Subscribe(ctx context.Context, callback func(reconciliation.Progress)) error {
	p.mu.Lock()
	if p.listening {
		p.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	p.listening = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.listening = false
		p.mu.Unlock()
	}()

	pubsub := p.client.Subscribe(ctx, p.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}
	p.logger.Info("Subscribed to progress channel", zap.String("channel", p.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			event, err := decodeProgress([]byte(msg.Payload))
			if err != nil {
				p.logger.Warn("Skipping malformed progress event", zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			callback(*event)
		}
	}
}

func decodeProgress(data []byte) (*reconciliation.Progress, error) {
	var event reconciliation.Progress
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to decode progress event: %w", err)
	}
	return &event, nil
}

// Ensure RedisProgressPublisher implements ProgressObserver
var _ reconciliation.ProgressObserver = (*RedisProgressPublisher)(nil)
