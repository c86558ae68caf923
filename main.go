package main

import (
	"context"
	"os"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tranvand/feedhub-BE/api"
	db "github.com/tranvand/feedhub-BE/internal/db/sqlc"
	"github.com/tranvand/feedhub-BE/internal/event"
	"github.com/tranvand/feedhub-BE/internal/maintainer"
	"github.com/tranvand/feedhub-BE/internal/reconciler"
	"github.com/tranvand/feedhub-BE/internal/util"
	"github.com/tranvand/feedhub-BE/internal/worker"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configurations
	config, err := util.LoadConfig("./app.env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config file 😣")
	}

	log.Info().Msg("configurations loaded successfully ✅")

	// Create connection pool
	connPool, err := pgxpool.New(context.Background(), config.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to validate db connection string 😣")
	}

	pingErr := connPool.Ping(context.Background())
	if pingErr != nil {
		log.Fatal().Err(pingErr).Msg("failed to connect to db 😣")
	}
	log.Info().Msg("connected to db ✅")

	store := db.NewStore(connPool)

	redisDb := redis.NewClient(&redis.Options{
		Addr:     config.RedisServerAddress,
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	redisOpt := asynq.RedisClientOpt{
		Addr: config.RedisServerAddress,
	}

	taskDistributor := worker.NewTaskDistributor(redisOpt)

	eventSender := event.NewSSEServer()
	go eventSender.Run()

	notificationMaintainer := maintainer.New(store)

	go runTaskProcessor(redisOpt, store, notificationMaintainer, eventSender)

	sweeper, err := reconciler.New(store, config.DeliveryRetention)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create reconciler 😣")
	}
	if err = sweeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start reconciler 😣")
	}

	runHTTPServer(&config, store, redisDb, taskDistributor, eventSender)
}

func runTaskProcessor(redisOpt asynq.RedisClientOpt, store db.Store, notificationMaintainer *maintainer.Maintainer, eventSender event.EventSender) {
	taskProcessor := worker.NewRedisTaskProcessor(redisOpt, store, notificationMaintainer, eventSender)

	log.Info().Msg("starting task processor...")
	if err := taskProcessor.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start task processor 😣")
	}
}

func runHTTPServer(config *util.Config, store db.Store, redisDb *redis.Client, taskDistributor worker.TaskDistributor, eventSender event.EventSender) {
	server, err := api.NewServer(store, redisDb, taskDistributor, config, eventSender)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create HTTP server 😣")
	}

	err = server.Start(config.HTTPServerAddress)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start HTTP server 😣")
	}
}
