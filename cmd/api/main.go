package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	cacheAdapter "github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/cache/adapter"
	"github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/database"
	queueAdapter "github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/queue/adapter"
	"github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/realtime"
	"github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/token"
	authzAdapter "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/authz/adapter"
	"github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/task"
	httpHandler "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/presentation/http"

	v1 "github.com/ywutian/study-abroad-platform-sub014/cmd/api/router/v1"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Warn(".env file not found or could not be loaded")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := database.NewPoolFromEnv(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	defer pool.Close()

	cache, err := cacheAdapter.NewRedisAdapter()
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to redis")
	}
	defer cache.Close()

	queueClient, err := queueAdapter.NewAsynqClientFromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("failed to create queue client")
	}
	defer queueClient.Close()

	verifier, err := token.NewVerifierFromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("failed to configure credential verifier")
	}

	gate, err := authzAdapter.NewRelationshipClientFromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("failed to configure relationship client")
	}

	hub := realtime.NewRouter()
	realtime.WirePresence(hub)
	defer hub.Close()

	// In-process worker consumes the fallback send queue so a message posted
	// over REST still reaches live peers.
	worker, err := queueAdapter.NewAsynqServer()
	if err != nil {
		logrus.WithError(err).Fatal("failed to create queue worker")
	}
	task.RegisterSendMessageTask(worker, pool, gate, cache, hub)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := worker.Run(runCtx); err != nil {
			logrus.WithError(err).Error("queue worker stopped")
		}
	}()

	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	v1.RegisterRoutes(r, httpHandler.Deps{
		Pool:     pool,
		Queue:    queueClient,
		Cache:    cache,
		Router:   hub,
		Verifier: verifier,
		Gate:     gate,
	})

	// Blocks until shutdown.
	if err := r.Run(); err != nil {
		logrus.WithError(err).Fatal("http server exited")
	}
}
