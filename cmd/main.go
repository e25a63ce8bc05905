package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/backend"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/feed"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/identity"
	infra "github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/driver"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/logging"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/uuid"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/interfaces/rest"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/notification"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/player"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/progress"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/realtime"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/tracker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// time left to trackers for their final reports
const flushTimeout = 5 * time.Second

func main() {
	log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)
	option, err := infra.InitConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		FilePath: option.Logging.FilePath,
		Level:    option.Logging.Level,
		AppID:    option.AppID,
		Env:      option.Env,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %s\n", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, option, logger); err != nil {
		logger.Fatal("Sidecar stopped", zap.Error(err))
	}
}

func run(ctx context.Context, option *infra.AppConfig, logger *zap.Logger) error {
	rdb := driver.NewRedisClient(option.KVStore.Host, option.KVStore.Port, option.KVStore.Password)
	defer rdb.Close()
	logger.Debug("Create redis connection instance",
		zap.String("kv.host", option.KVStore.Host),
		zap.Int("kv.port", option.KVStore.Port),
	)

	transport, err := newTransport(option, rdb, logger)
	if err != nil {
		return err
	}

	var (
		UUIDGenerator = uuid.NewNanoIDGenerator(option.Security.IDLength)
		FeedHub       = feed.NewHub(logger)
		Store         = notification.NewStore()
		Realtime      = realtime.NewClient(transport, Store, FeedHub, option.Realtime.ChannelPrefix, logger)
		Identities    *identity.Manager
	)
	Store.OnChange(FeedHub.Notifications)
	defer Realtime.Close()

	BackendClient := backend.NewClient(option.API.BaseURL, option.API.Timeout, backend.TokenFunc(func() string {
		return Identities.Token()
	}))
	NotificationService := notification.NewService(notification.NewAPIClient(BackendClient), Store, FeedHub, logger)
	Identities = identity.NewManager(Realtime, NotificationService, Store, logger)

	PlayerHub := player.NewHub(logger)
	Registry := tracker.NewRegistry(&tracker.Deps{
		Clock:    quartz.NewReal(),
		Reporter: progress.NewClient(BackendClient),
		Config:   option.Tracking,
		Logger:   logger,
		Context:  context.Background(),
	}, PlayerHub, UUIDGenerator)

	app := rest.NewServer(&rest.Deps{
		Config:        option,
		KV:            rdb,
		Registry:      Registry,
		Players:       PlayerHub,
		Identities:    Identities,
		Notifications: NotificationService,
		Realtime:      Realtime,
		Feed:          FeedHub,
		IDs:           UUIDGenerator,
		Logger:        logger,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", option.Host, option.Port)
		logger.Info("Sidecar listening", zap.String("server.address", addr))
		return rest.Serve(ctx, app, addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := Registry.Shutdown(flushCtx); err != nil {
			logger.Warn("Tracker sessions not flushed", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}

func newTransport(option *infra.AppConfig, rdb *driver.RedisClient, logger *zap.Logger) (realtime.Transport, error) {
	switch option.Realtime.Driver {
	case infra.RealtimeNATS:
		return realtime.DialNATS(option.Realtime.NATSURL, logger)
	default:
		return realtime.NewRedisTransport(rdb.Conn(), logger), nil
	}
}
