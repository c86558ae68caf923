package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/tranvand/feedhub-BE/internal/maintainer"
)

// Entity-mutation tasks feed the consistency maintainer. They fire on
// changes to the source entities, not on any notification-engine call, and
// every handler is idempotent so redelivery is harmless.

type PayloadUserUpdated struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Handle string `json:"handle"`
	Image  string `json:"image"`
}

func (processor *RedisTaskProcessor) ProcessTaskUserUpdated(ctx context.Context, task *asynq.Task) error {
	var payload PayloadUserUpdated
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	return processor.maintainer.ApplyUserProfileChange(ctx, maintainer.UserProfileChange{
		UserID: payload.UserID,
		Name:   payload.Name,
		Handle: payload.Handle,
		Image:  payload.Image,
	})
}

type PayloadSourceUpdated struct {
	SourceID string `json:"source_id"`
	Name     string `json:"name"`
	Handle   string `json:"handle"`
	Image    string `json:"image"`
	IsSquad  bool   `json:"is_squad"`
}

func (processor *RedisTaskProcessor) ProcessTaskSourceUpdated(ctx context.Context, task *asynq.Task) error {
	var payload PayloadSourceUpdated
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	return processor.maintainer.ApplySourceChange(ctx, maintainer.SourceChange{
		SourceID: payload.SourceID,
		Name:     payload.Name,
		Handle:   payload.Handle,
		Image:    payload.Image,
		IsSquad:  payload.IsSquad,
	})
}

type PayloadPostUpdated struct {
	PostID  string `json:"post_id"`
	Image   string `json:"image"`
	IsVideo bool   `json:"is_video"`
}

func (processor *RedisTaskProcessor) ProcessTaskPostUpdated(ctx context.Context, task *asynq.Task) error {
	var payload PayloadPostUpdated
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	return processor.maintainer.ApplyPostChange(ctx, maintainer.PostChange{
		PostID:  payload.PostID,
		Image:   payload.Image,
		IsVideo: payload.IsVideo,
	})
}

type PayloadPostDeleted struct {
	PostID string `json:"post_id"`
}

func (processor *RedisTaskProcessor) ProcessTaskPostDeleted(ctx context.Context, task *asynq.Task) error {
	var payload PayloadPostDeleted
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	return processor.maintainer.ApplyPostDeleted(ctx, payload.PostID)
}

type PayloadCommentDeleted struct {
	CommentID string `json:"comment_id"`
}

func (processor *RedisTaskProcessor) ProcessTaskCommentDeleted(ctx context.Context, task *asynq.Task) error {
	var payload PayloadCommentDeleted
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	return processor.maintainer.ApplyCommentDeleted(ctx, payload.CommentID)
}
