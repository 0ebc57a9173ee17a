package ws

import (
	"context"
	"encoding/json"
	"time"

	"citai-analytics-service/internal/exportjobs"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const ExportStatusChannel = "citai:export-status"

type relayEnvelope struct {
	RestaurantID string         `json:"restaurantId"`
	Job          exportjobs.Job `json:"job"`
}

// RedisRelay carries job updates from worker processes to the API process
// that holds the dashboard sockets.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *zap.Logger
}

func NewRedisRelay(client *redis.Client, hub *Hub, logger *zap.Logger) *RedisRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{client: client, channel: ExportStatusChannel, hub: hub, logger: logger}
}

// NotifyExportStatus publishes the update. When publishing fails the local
// hub still gets it.
func (r *RedisRelay) NotifyExportStatus(restaurantID string, job exportjobs.Job) {
	payload, err := json.Marshal(relayEnvelope{RestaurantID: restaurantID, Job: job})
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.client.Publish(ctx, r.channel, payload).Err()
		cancel()
	}
	if err != nil {
		r.logger.Warn("export status publish failed", zap.String("jobId", job.ID), zap.Error(err))
		r.hub.NotifyExportStatus(restaurantID, job)
	}
}

// Run forwards published updates to the hub until ctx is cancelled,
// resubscribing with backoff when the connection drops.
func (r *RedisRelay) Run(ctx context.Context) {
	backoff := time.Second
	for ctx.Err() == nil {
		sub := r.client.Subscribe(ctx, r.channel)
		if _, err := sub.Receive(ctx); err != nil {
			_ = sub.Close()
			r.logger.Warn("export status subscribe failed", zap.Error(err))
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = minDuration(backoff*2, 30*time.Second)
			continue
		}

		backoff = time.Second
		ch := sub.Channel()
	consume:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break consume
				}
				r.deliver(msg.Payload)
			}
		}
		_ = sub.Close()
	}
}

func (r *RedisRelay) deliver(payload string) {
	var env relayEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.logger.Warn("bad export status payload", zap.Error(err))
		return
	}
	r.hub.NotifyExportStatus(env.RestaurantID, env.Job)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
