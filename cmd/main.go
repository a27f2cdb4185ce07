package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"

	httpctx "github.com/dtroode/account-server/internal/api/http/context"
	"github.com/dtroode/account-server/internal/api/http/cookie"
	"github.com/dtroode/account-server/internal/api/http/handler"
	"github.com/dtroode/account-server/internal/api/http/router"
	"github.com/dtroode/account-server/internal/config"
	"github.com/dtroode/account-server/internal/logger"
	"github.com/dtroode/account-server/internal/model"
	"github.com/dtroode/account-server/internal/password"
	"github.com/dtroode/account-server/internal/repository/postgres"
	redisrepo "github.com/dtroode/account-server/internal/repository/redis"
	"github.com/dtroode/account-server/internal/server"
	"github.com/dtroode/account-server/internal/service"
	storage "github.com/dtroode/account-server/internal/storage/minio"
	"github.com/dtroode/account-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

type credentialStore interface {
	model.UserStore
	handler.Pinger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	users, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err, "driver", cfg.Store.Driver)
	}
	defer closeStore()

	codec, err := token.NewJWT(cfg.Tokens())
	if err != nil {
		logger.Fatal("failed to create token codec", "error", err)
	}
	hasher, err := password.New(cfg.PasswordSettings())
	if err != nil {
		logger.Fatal("failed to create password hasher", "error", err)
	}

	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to create minio client", "error", err)
	}
	storageClient, err := storage.NewClient(ctx, minioClient, cfg.Storage.Bucket, cfg.Storage.PublicURL)
	if err != nil {
		logger.Fatal("failed to initialize storage client", "error", err)
	}

	sessionService := service.NewSession(users, codec, hasher, logger)
	accountService := service.NewAccount(users, hasher, storageClient, logger)

	gin.SetMode(gin.ReleaseMode)
	r := router.New(sessionService, accountService, users, httpctx.NewManager(), router.Options{
		Cookies: cookie.Options{
			Secure:        cfg.Cookie.Secure,
			Domain:        cfg.Cookie.Domain,
			AccessMaxAge:  cfg.AccessToken.TTL,
			RefreshMaxAge: cfg.RefreshToken.TTL,
		},
		AllowedOrigins: cfg.CORS.Origins,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
	}, logger)

	httpServer := server.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer

	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		err := s.Start(sl)
		if err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}(httpServer)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", httpServer.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config) (credentialStore, func(), error) {
	switch cfg.Store.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		repo := redisrepo.NewUserRepository(client)
		if err := repo.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return repo, func() { _ = client.Close() }, nil
	default:
		db, err := postgres.NewConection(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewUserRepository(db), func() { _ = db.Close() }, nil
	}
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
