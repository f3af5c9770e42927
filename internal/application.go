package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/config"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/service"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/transport/nats"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/transport/rest"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/transport/websocket"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	var (
		sinks     []service.Sink
		snapshots repository.SnapshotRepository
	)

	if conf.Redis.Enabled {
		redisAddrString := conf.Redis.GetRedisAddr()
		if redisAddrString == "" {
			return ErrAddrNotFound
		}

		redisClient, err := storage.NewRedis(ctx, redisAddrString)
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisClient.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		snapshots = repository.NewSnapshotRepository(redisClient, conf.Redis.SnapshotTTL)
		sinks = append(sinks, service.NewSnapshotMirror(snapshots))
	}

	if conf.NATS.URL != "" {
		natsConn, err := nats.Connect(conf.NATS.URL)
		if err != nil {
			return fmt.Errorf("could not connect to nats: %w", err)
		}
		defer natsConn.Close()

		sinks = append(sinks, nats.NewPublisher(logger, natsConn, conf.NATS.SubjectPrefix))
	}

	hub := websocket.NewHub(logger)
	outbox := tictactoe.Outboxes{hub}

	var relayWG sync.WaitGroup
	if len(sinks) > 0 {
		relay := service.NewRelay(logger, conf.Relay.Buffer, sinks...)
		outbox = append(outbox, relay)

		relayCtx, stopRelay := context.WithCancel(context.Background())
		relayWG.Add(1)
		go func() {
			defer relayWG.Done()
			relay.Run(relayCtx)
		}()

		defer func() {
			stopRelay()
			relayWG.Wait()
		}()
	}

	registry := repository.NewRoomRegistry(outbox)

	roomManager := usecase.NewRoomManager(logger, registry, snapshots)

	wsServer := websocket.New(logger, conf.WebSocket, roomManager, hub)

	router := mux.NewRouter()
	rest.NewHandlers(logger, roomManager).Register(router)
	wsServer.Register(router)

	srv := &http.Server{
		Addr:              ":" + conf.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort, "websocket", conf.WebSocket.Path)
		if httpErr := srv.ListenAndServe(); httpErr != nil && !errors.Is(httpErr, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	select {
	case err := <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down",
			"rooms", registry.Len(), "connections", hub.Len())
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down HTTP server", "error", err)
	}

	wsServer.Close()

	return nil
}
