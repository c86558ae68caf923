package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	db "github.com/tranvand/feedhub-BE/internal/db/sqlc"
	"github.com/tranvand/feedhub-BE/internal/event"
	"github.com/tranvand/feedhub-BE/internal/maintainer"
)

/*
This file contains the code that picks up tasks from the Redis queue and processes them.
*/

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

type RedisTaskProcessor struct {
	server      *asynq.Server
	store       db.Store
	maintainer  *maintainer.Maintainer
	eventSender event.EventSender
}

func NewRedisTaskProcessor(redisOpt asynq.RedisClientOpt, store db.Store, maintainer *maintainer.Maintainer, eventSender event.EventSender) *RedisTaskProcessor {
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Queues: map[string]int{
				QueueCritical: 10,
				QueueDefault:  5,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error().Err(err).Str("type", task.Type()).
					Bytes("payload", task.Payload()).Msg("process task failed")
			}),
			Logger: NewLogger(),
		},
	)

	return &RedisTaskProcessor{
		server:      server,
		store:       store,
		maintainer:  maintainer,
		eventSender: eventSender,
	}
}

// Start registers the task handlers for the mux, attaches the mux to the asynq server, and starts the server.
func (processor *RedisTaskProcessor) Start() error {
	mux := asynq.NewServeMux()

	mux.HandleFunc(TaskNotificationEvent, processor.ProcessTaskNotificationEvent)
	mux.HandleFunc(TaskUserUpdated, processor.ProcessTaskUserUpdated)
	mux.HandleFunc(TaskSourceUpdated, processor.ProcessTaskSourceUpdated)
	mux.HandleFunc(TaskPostUpdated, processor.ProcessTaskPostUpdated)
	mux.HandleFunc(TaskPostDeleted, processor.ProcessTaskPostDeleted)
	mux.HandleFunc(TaskCommentDeleted, processor.ProcessTaskCommentDeleted)

	return processor.server.Start(mux)
}

func (processor *RedisTaskProcessor) Shutdown() {
	processor.server.Shutdown()
}
