package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"countdown-timer/internal/logger"
	"countdown-timer/internal/types"

	"github.com/redis/go-redis/v9"
)

// Callbacks are invoked from the Redis listener goroutines.
type Callbacks struct {
	CommandCallback func(string) error // "start", "pause", "resume", "abort"
}

type RedisClient struct {
	client    *redis.Client
	callbacks Callbacks
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewRedisClient(host string, port int, l *logger.Logger) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", host, port),
			DB:   0,
		}),
		logger: l,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetCallbacks installs the listener callbacks. Must be called before
// StartListening.
func (r *RedisClient) SetCallbacks(callbacks Callbacks) {
	r.callbacks = callbacks
}

func (r *RedisClient) Connect() error {
	r.logger.Infof("Attempting to connect to Redis at %s", r.client.Options().Addr)

	if err := r.client.Ping(r.ctx).Err(); err != nil {
		r.logger.Infof("Redis connection failed: %v", err)
		return fmt.Errorf("Redis connection failed: %w", err)
	}
	r.logger.Infof("Successfully connected to Redis")
	return nil
}

// StartListening starts the remote command listener after system
// initialization is complete.
func (r *RedisClient) StartListening() error {
	r.logger.Infof("Starting Redis listeners")

	r.wg.Add(1)
	go r.listCommandListener("timer:command", r.handleTimerCommand)

	return nil
}

func (r *RedisClient) listCommandListener(key string, handler func(string) error) {
	defer r.wg.Done()
	r.logger.Infof("Starting list command listener for %s", key)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting %s listener", key)
			return
		default:
			// Use BRPOP with a short timeout to allow periodic context cancellation checks
			result, err := r.client.BRPop(r.ctx, 5*time.Second, key).Result()
			if err != nil {
				if err == redis.Nil {
					// Timeout elapsed, loop back to check context
					continue
				}
				if err == context.Canceled {
					r.logger.Infof("Context cancelled, exiting %s listener", key)
					return
				}
				r.logger.Infof("Error reading from %s list: %v", key, err)
				continue
			}

			if len(result) >= 2 { // BRPOP returns [key, value]
				value := result[1]
				r.logger.Debugf("Received command from %s: %s", key, value)
				if err := handler(value); err != nil {
					r.logger.Warnf("Error handling %s command: %v", key, err)
				}
			}
		}
	}
}

func (r *RedisClient) handleTimerCommand(value string) error {
	if r.callbacks.CommandCallback == nil {
		return nil
	}
	switch value {
	case "start", "pause", "resume", "abort":
		return r.callbacks.CommandCallback(value)
	default:
		return fmt.Errorf("invalid timer command: %s", value)
	}
}

// publishHashSet is a helper that atomically sets a hash field and publishes a notification
func (r *RedisClient) publishHashSet(hash, field string, value interface{}, channel, payload string) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, hash, field, value)
	pipe.Publish(r.ctx, channel, payload)
	_, err := pipe.Exec(r.ctx)
	return err
}

// PublishTimerPhase publishes the application phase with a timestamp.
func (r *RedisClient) PublishTimerPhase(phase types.Phase) error {
	r.logger.Infof("Publishing timer phase: %s", phase)
	timestamp := time.Now().Format(time.RFC3339)

	// Atomically set both state and timestamp fields
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, "timer", "state", string(phase))
	pipe.HSet(r.ctx, "timer", "state:timestamp", timestamp)
	pipe.Publish(r.ctx, "timer", "state")
	_, err := pipe.Exec(r.ctx)

	if err != nil {
		r.logger.Warnf("Failed to publish timer phase: %v", err)
		return err
	}
	r.logger.Debugf("Successfully published timer phase with timestamp: %s", timestamp)
	return nil
}

// PublishRemaining publishes the remaining seconds of the running countdown.
func (r *RedisClient) PublishRemaining(remaining uint16) error {
	return r.publishHashSet("timer", "remaining", int(remaining), "timer", "remaining")
}

// PublishTotal publishes the configured countdown length.
func (r *RedisClient) PublishTotal(total uint16) error {
	return r.publishHashSet("timer", "total", int(total), "timer", "total")
}

// PublishButtonEvent publishes a gesture for external observers.
func (r *RedisClient) PublishButtonEvent(event string) error {
	if err := r.client.Publish(r.ctx, "buttons", event).Err(); err != nil {
		r.logger.Warnf("Failed to publish button event: %v", err)
		return err
	}
	return nil
}

// GetTimerPhase reads back the last published phase.
func (r *RedisClient) GetTimerPhase() (types.Phase, error) {
	state, err := r.client.HGet(r.ctx, "timer", "state").Result()
	if err == redis.Nil {
		return types.PhaseWaiting, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get timer phase: %w", err)
	}
	return types.Phase(state), nil
}

func (r *RedisClient) Close() error {
	r.logger.Infof("Closing Redis client")
	r.cancel()

	// Wait for all goroutines to finish with a timeout
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Infof("All Redis goroutines finished")
	case <-time.After(5 * time.Second):
		r.logger.Infof("Timeout waiting for Redis goroutines to finish")
	}

	return r.client.Close()
}
