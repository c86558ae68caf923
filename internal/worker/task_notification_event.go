package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	db "github.com/tranvand/feedhub-BE/internal/db/sqlc"
	"github.com/tranvand/feedhub-BE/internal/event"
	"github.com/tranvand/feedhub-BE/internal/notify"
)

// PayloadNotificationEvent carries one domain event: the notification type
// plus its fixed-shape context, with display fields already resolved by the
// producing service.
type PayloadNotificationEvent struct {
	Type    db.NotificationType `json:"type"`
	Context json.RawMessage     `json:"context"`
}

func (processor *RedisTaskProcessor) ProcessTaskNotificationEvent(ctx context.Context, task *asynq.Task) error {
	var payload PayloadNotificationEvent
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	buildContext, err := decodeBuildContext(payload.Type, payload.Context)
	if err != nil {
		log.Warn().Err(err).Str("type", string(payload.Type)).Msg("dropping malformed notification event")
		return fmt.Errorf("failed to decode context: %v: %w", err, asynq.SkipRetry)
	}

	bundle, err := notify.Build(payload.Type, buildContext)
	if err != nil {
		// Validation failures are permanent: log, drop, never partially persist.
		log.Warn().Err(err).Str("type", string(payload.Type)).Msg("dropping invalid notification event")
		return fmt.Errorf("failed to build bundle: %v: %w", err, asynq.SkipRetry)
	}
	if bundle == nil {
		log.Debug().Str("type", string(payload.Type)).Msg("notification event produced no bundle")
		return nil
	}

	policy, ok := notify.PolicyFor(payload.Type)
	if !ok {
		return fmt.Errorf("no bundling policy for notification type %q: %w", payload.Type, asynq.SkipRetry)
	}

	result, err := processor.store.StoreBundleTx(ctx, db.StoreBundleTxParams{
		Bundle:       *bundle,
		MergeCapable: policy.MergeCapable,
	})
	if err != nil {
		if errors.Is(err, db.ErrNoRecipients) {
			// Builder contract violation, not a concurrency artifact. Alert
			// loudly and drop; retrying cannot fix it.
			log.Error().Err(err).Str("type", string(payload.Type)).Msg("notification bundle rejected")
			return fmt.Errorf("bundle rejected: %v: %w", err, asynq.SkipRetry)
		}
		// Transient storage failure: the bundle is atomic, so asynq's retry
		// policy can safely re-run the whole event.
		return fmt.Errorf("failed to store bundle: %w", err)
	}

	for _, userID := range result.NewDeliveries {
		processor.eventSender.Broadcast(event.Event{
			Topic: event.UserTopic(userID),
			Type:  event.EventTypeNotificationCreated,
			Data:  result.Notification,
		})
	}

	log.Info().Str("type", task.Type()).
		Str("notification_id", result.Notification.ID.String()).
		Bool("created", result.Created).
		Bool("merged", result.Merged).
		Int("new_deliveries", len(result.NewDeliveries)).
		Msg("task processed")

	return nil
}

func decodeBuildContext(notificationType db.NotificationType, raw json.RawMessage) (any, error) {
	switch notificationType {
	case db.NotificationTypeCommentMention:
		return decodeContext[notify.CommentMentionContext](raw)
	case db.NotificationTypeCommentReply:
		return decodeContext[notify.CommentReplyContext](raw)
	case db.NotificationTypePostNewComment:
		return decodeContext[notify.PostNewCommentContext](raw)
	case db.NotificationTypePostUpvoteMilestone:
		return decodeContext[notify.PostUpvoteMilestoneContext](raw)
	case db.NotificationTypePostReaction:
		return decodeContext[notify.PostReactionContext](raw)
	case db.NotificationTypePostBanned:
		return decodeContext[notify.PostBannedContext](raw)
	case db.NotificationTypeSourceApproved:
		return decodeContext[notify.SourceApprovedContext](raw)
	case db.NotificationTypeSourceRejected:
		return decodeContext[notify.SourceRejectedContext](raw)
	case db.NotificationTypeSquadMemberJoined:
		return decodeContext[notify.SquadMemberJoinedContext](raw)
	case db.NotificationTypeFeedbackResolved:
		return decodeContext[notify.FeedbackResolvedContext](raw)
	default:
		return nil, fmt.Errorf("unknown notification type %q", notificationType)
	}
}

func decodeContext[T any](raw json.RawMessage) (any, error) {
	var context T
	if err := json.Unmarshal(raw, &context); err != nil {
		return nil, err
	}
	return context, nil
}
