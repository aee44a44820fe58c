package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Uni_Connect/internal/blob"
	"Uni_Connect/internal/config"
	"Uni_Connect/internal/logger"
	"Uni_Connect/internal/pkg"
	"Uni_Connect/internal/realtime"
	"Uni_Connect/internal/repository/mysql"
	"Uni_Connect/internal/repository/redis"
	"Uni_Connect/internal/router"
	"Uni_Connect/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("UNI_CONFIG"), "config file (yaml/json/toml)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := mysql.InitDB(cfg.MySQL.Driver, cfg.MySQL.DSN)
	if err != nil {
		return err
	}
	// 自动建表（开发阶段 OK）
	if cfg.MySQL.AutoMigrate {
		if err := mysql.AutoMigrate(db); err != nil {
			return err
		}
	}

	// 连接redis
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	var broker realtime.Broker
	switch cfg.Realtime.Backend {
	case "memory":
		broker = realtime.NewHub()
	default:
		broker = redis.NewBroker(rdb, log.Named("broker"))
	}

	jwt := pkg.NewJWTManager(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	tokens := &redis.TokenRepository{Client: rdb}
	likeCache := redis.NewLikeCacheRepository(rdb)
	mailer := pkg.NewSMTPMailer(pkg.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	notifier := service.NewNotificationService(db, broker, log.Named("notification"))
	emailSvc := service.NewEmailService(&redis.EmailCodeRepository{Client: rdb}, mailer, log.Named("email"))
	deps := router.Deps{
		Log:           log,
		JWT:           jwt,
		Tokens:        tokens,
		Broker:        broker,
		Users:         service.NewUserService(db, tokens, emailSvc, jwt, log.Named("user")),
		Email:         emailSvc,
		Groups:        service.NewGroupService(db, notifier, log.Named("group")),
		JoinRequests:  service.NewJoinRequestService(db, notifier, log.Named("join_request")),
		Notifications: notifier,
		Friends:       service.NewFriendService(db, notifier, log.Named("friend")),
		Messages:      service.NewMessageService(db, broker, log.Named("message")),
		Posts:         service.NewPostService(db, likeCache, log.Named("post")),
		Likes:         service.NewPostLikeService(db, likeCache, log.Named("like")),
	}

	store, err := blob.NewS3Store(ctx, blob.Config{
		Region:        cfg.S3.Region,
		Endpoint:      cfg.S3.Endpoint,
		PublicBaseURL: cfg.S3.PublicBaseURL,
		UsePathStyle:  cfg.S3.UsePathStyle,
	})
	if err != nil {
		log.Warn("blob store disabled", zap.Error(err))
	} else {
		deps.Blobs = store
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router.InitRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Outbox.Enabled {
		sender := service.LogSender(log.Named("outbox"))
		if len(cfg.Kafka.Brokers) > 0 {
			producer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
			if err != nil {
				return err
			}
			defer producer.Close()
			sender = service.KafkaSender(producer)
		}
		relayer := service.NewOutboxRelayer(db, sender, cfg.Outbox.Interval, cfg.Outbox.BatchSize, cfg.Outbox.MaxRetry, log.Named("outbox"))
		g.Go(func() error { return relayer.Run(gctx) })
	}

	return g.Wait()
}
