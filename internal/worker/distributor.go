package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

const (
	TaskNotificationEvent = "notification:event"
	TaskUserUpdated       = "entity:user_updated"
	TaskSourceUpdated     = "entity:source_updated"
	TaskPostUpdated       = "entity:post_updated"
	TaskPostDeleted       = "entity:post_deleted"
	TaskCommentDeleted    = "entity:comment_deleted"
)

/*
This file contains the code to create tasks and distribute them to the Redis queue.
*/

type TaskDistributor interface {
	DistributeTaskNotificationEvent(ctx context.Context, payload *PayloadNotificationEvent, opts ...asynq.Option) error
	DistributeTaskUserUpdated(ctx context.Context, payload *PayloadUserUpdated, opts ...asynq.Option) error
	DistributeTaskSourceUpdated(ctx context.Context, payload *PayloadSourceUpdated, opts ...asynq.Option) error
	DistributeTaskPostUpdated(ctx context.Context, payload *PayloadPostUpdated, opts ...asynq.Option) error
	DistributeTaskPostDeleted(ctx context.Context, payload *PayloadPostDeleted, opts ...asynq.Option) error
	DistributeTaskCommentDeleted(ctx context.Context, payload *PayloadCommentDeleted, opts ...asynq.Option) error
}

type RedisTaskDistributor struct {
	client *asynq.Client // client sends tasks to redis queue.
}

func NewTaskDistributor(redisOpt asynq.RedisClientOpt) TaskDistributor {
	client := asynq.NewClient(redisOpt)

	return &RedisTaskDistributor{
		client: client,
	}
}

func (distributor *RedisTaskDistributor) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(taskType, jsonPayload, opts...)
	info, err := distributor.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info().Str("type", task.Type()).Bytes("payload", task.Payload()).Str("queue", info.Queue).Int("max_retry", info.MaxRetry).Msg("task enqueued")

	return nil
}

func (distributor *RedisTaskDistributor) DistributeTaskNotificationEvent(ctx context.Context, payload *PayloadNotificationEvent, opts ...asynq.Option) error {
	return distributor.enqueue(ctx, TaskNotificationEvent, payload, opts...)
}

func (distributor *RedisTaskDistributor) DistributeTaskUserUpdated(ctx context.Context, payload *PayloadUserUpdated, opts ...asynq.Option) error {
	return distributor.enqueue(ctx, TaskUserUpdated, payload, opts...)
}

func (distributor *RedisTaskDistributor) DistributeTaskSourceUpdated(ctx context.Context, payload *PayloadSourceUpdated, opts ...asynq.Option) error {
	return distributor.enqueue(ctx, TaskSourceUpdated, payload, opts...)
}

func (distributor *RedisTaskDistributor) DistributeTaskPostUpdated(ctx context.Context, payload *PayloadPostUpdated, opts ...asynq.Option) error {
	return distributor.enqueue(ctx, TaskPostUpdated, payload, opts...)
}

func (distributor *RedisTaskDistributor) DistributeTaskPostDeleted(ctx context.Context, payload *PayloadPostDeleted, opts ...asynq.Option) error {
	return distributor.enqueue(ctx, TaskPostDeleted, payload, opts...)
}

func (distributor *RedisTaskDistributor) DistributeTaskCommentDeleted(ctx context.Context, payload *PayloadCommentDeleted, opts ...asynq.Option) error {
	return distributor.enqueue(ctx, TaskCommentDeleted, payload, opts...)
}
