package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sportbuddy/chat-server/internal/api"
	"github.com/sportbuddy/chat-server/internal/config"
	"github.com/sportbuddy/chat-server/internal/database"
	"github.com/sportbuddy/chat-server/internal/group"
	"github.com/sportbuddy/chat-server/internal/media"
	"github.com/sportbuddy/chat-server/internal/push"
	"github.com/sportbuddy/chat-server/internal/server"
	"github.com/sportbuddy/chat-server/internal/stats"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	mongoURI       string
	mongoDatabase  string
	signingKey     string
	fcmCredentials string
	mediaBucket    string
	mediaRegion    string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&mongoURI, "mongo-uri", "mongodb://localhost:27017", "mongodb connection string")
	flag.StringVar(&mongoDatabase, "mongo-database", "sportbuddy", "mongodb database name")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.StringVar(&fcmCredentials, "fcm-credentials", "", "path to FCM service account key, push disabled if empty")
	flag.StringVar(&mediaBucket, "media-bucket", "", "S3 bucket holding chat images, media purge disabled if empty")
	flag.StringVar(&mediaRegion, "media-region", "us-east-1", "S3 bucket region")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[chat-server] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, mongoURI, mongoDatabase, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}
	cfg.FCMCredentialsFile = fcmCredentials
	cfg.MediaBucket = mediaBucket
	cfg.MediaRegion = mediaRegion

	repo, err := database.NewMongoRepository(cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logger.Fatal("db connect:", err)
	}
	defer func() {
		if err := repo.Close(context.Background()); err != nil {
			logger.Println("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	var provider push.Provider
	if cfg.FCMCredentialsFile != "" {
		fcm, err := push.NewFCMProvider(context.Background(), cfg.FCMCredentialsFile)
		if err != nil {
			logger.Fatal("fcm provider:", err)
		}
		provider = fcm
	} else {
		logger.Println("no FCM credentials configured, push notifications disabled")
	}

	var purger *media.S3Purger
	if cfg.MediaBucket != "" {
		purger, err = media.NewS3Purger(context.Background(), cfg.MediaRegion, cfg.MediaBucket)
		if err != nil {
			logger.Fatal("media purger:", err)
		}
	} else {
		logger.Println("no media bucket configured, media purge disabled")
	}

	presence := server.NewPresenceRegistry()
	dispatcher := push.NewDispatcher(logger, repo, presence, provider, statsUpdater)
	chatServer := server.NewChatServer(logger, repo, presence, dispatcher, statsUpdater)

	var groupPurger group.Purger
	var threadPurger api.ThreadPurger
	if purger != nil {
		groupPurger = purger
		threadPurger = purger
	}
	groupService := group.NewService(logger, repo, dispatcher, groupPurger, chatServer)

	srv := api.NewChatApp(logger, chatServer, groupService, repo, threadPurger, cfg, mux)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer shutdownCancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	chatServer.Shutdown()

	logger.Println("shutdown complete")
}
