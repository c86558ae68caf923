package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	db "github.com/tranvand/feedhub-BE/internal/db/sqlc"
	"github.com/tranvand/feedhub-BE/internal/notify"
	"github.com/tranvand/feedhub-BE/internal/worker"
)

type ingestNotificationEventRequest struct {
	Type    db.NotificationType `json:"type" binding:"required"`
	Context json.RawMessage     `json:"context" binding:"required"`
}

// ingestNotificationEvent accepts a domain event from a producing service and
// enqueues it for asynchronous bundling. Ordering between events is not
// guaranteed past this point; every downstream step is idempotent.
func (server *Server) ingestNotificationEvent(ctx *gin.Context) {
	var req ingestNotificationEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	if _, ok := notify.PolicyFor(req.Type); !ok {
		ctx.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("unknown notification type %q", req.Type)))
		return
	}

	err := server.taskDistributor.DistributeTaskNotificationEvent(ctx, &worker.PayloadNotificationEvent{
		Type:    req.Type,
		Context: req.Context,
	},
		asynq.MaxRetry(3),
		asynq.Queue(worker.QueueCritical),
	)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

type ingestEntityChangeRequest struct {
	Entity string          `json:"entity" binding:"required"`
	Action string          `json:"action" binding:"required"`
	Data   json.RawMessage `json:"data" binding:"required"`
}

// ingestEntityChange accepts a mutation of a source entity (user profile,
// source, post, comment) and enqueues the matching consistency task.
func (server *Server) ingestEntityChange(ctx *gin.Context) {
	var req ingestEntityChangeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	switch {
	case req.Entity == "user" && req.Action == "updated":
		distributeEntityChange(ctx, req.Data, server.taskDistributor.DistributeTaskUserUpdated)
	case req.Entity == "source" && req.Action == "updated":
		distributeEntityChange(ctx, req.Data, server.taskDistributor.DistributeTaskSourceUpdated)
	case req.Entity == "post" && req.Action == "updated":
		distributeEntityChange(ctx, req.Data, server.taskDistributor.DistributeTaskPostUpdated)
	case req.Entity == "post" && req.Action == "deleted":
		distributeEntityChange(ctx, req.Data, server.taskDistributor.DistributeTaskPostDeleted)
	case req.Entity == "comment" && req.Action == "deleted":
		distributeEntityChange(ctx, req.Data, server.taskDistributor.DistributeTaskCommentDeleted)
	default:
		ctx.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("unsupported entity change %s/%s", req.Entity, req.Action)))
	}
}

func distributeEntityChange[T any](ctx *gin.Context, data json.RawMessage, distribute func(ctx context.Context, payload *T, opts ...asynq.Option) error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("failed to unmarshal entity change data: %w", err)))
		return
	}

	err := distribute(ctx, &payload,
		asynq.MaxRetry(3),
		asynq.Queue(worker.QueueDefault),
	)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
