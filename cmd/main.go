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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	grpcHandler "github.com/dtroode/healping/internal/api/grpc/handler"
	grpcRouter "github.com/dtroode/healping/internal/api/grpc/router"
	grpcServer "github.com/dtroode/healping/internal/api/grpc/server"
	httpRouter "github.com/dtroode/healping/internal/api/http/router"
	httpServer "github.com/dtroode/healping/internal/api/http/server"
	"github.com/dtroode/healping/internal/config"
	"github.com/dtroode/healping/internal/dashboard"
	"github.com/dtroode/healping/internal/fetch"
	"github.com/dtroode/healping/internal/guard"
	"github.com/dtroode/healping/internal/logger"
	"github.com/dtroode/healping/internal/metrics"
	"github.com/dtroode/healping/internal/model"
	"github.com/dtroode/healping/internal/realtime"
	"github.com/dtroode/healping/internal/repository/postgres"
	"github.com/dtroode/healping/internal/server"
	"github.com/dtroode/healping/internal/service"
	"github.com/dtroode/healping/internal/session"
	storage "github.com/dtroode/healping/internal/storage/minio"
	"github.com/dtroode/healping/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN, cfg.Database.Migrate)
	if err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()

	profileRepo := postgres.NewProfileRepository(db)
	clinicRepo := postgres.NewClinicRepository(db)
	recordRepo := postgres.NewRecordRepository(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	storageClient, err := storage.Dial(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
	if err != nil {
		logger.Fatal("failed to initialize storage client", "error", err)
	}

	source := session.NewSource(
		session.NewAuthClient(cfg.Auth.URL, cfg.Auth.AnonKey),
		session.NewRedisStore(redisClient, cfg.Redis.SessionKey),
		token.NewJWT(cfg.Auth.JWTSecret),
		cfg.Auth.RefreshMargin,
		logger,
		m,
	)

	synchronizer := service.NewSynchronizer(source, profileRepo, logger, m, cfg.Auth.ProfileFetch)
	defer synchronizer.Close()

	runner := fetch.NewRunner(fetch.Policy{
		Timeout:         cfg.Fetch.Timeout,
		MaxRetries:      cfg.Fetch.MaxRetries,
		InitialInterval: cfg.Fetch.InitialInterval,
		MaxInterval:     cfg.Fetch.MaxInterval,
	}, m)
	clinicService := dashboard.NewService(clinicRepo, runner)

	feed := realtime.NewFeed(realtime.PoolDialer(db.Pool), logger, m)
	monitor := dashboard.NewMonitor(synchronizer, feed, clinicService, logger)
	monitor.Start(ctx)
	defer monitor.Close()

	recordService := service.NewRecord(recordRepo, storageClient, cfg.Storage.PresignExpiry, logger)
	onboardingService := service.NewOnboarding(profileRepo, synchronizer, logger)

	web := httpRouter.New(httpRouter.Deps{
		States:     synchronizer,
		Signer:     source,
		Onboarding: onboardingService,
		Clinic:     clinicService,
		Records:    recordService,
		Dashboard:  monitor,
		DB:         db,
		Gatherer:   reg,
		Metrics:    m,
		Paths: guard.Paths{
			Login:       cfg.Routes.Login,
			Onboarding:  cfg.Routes.Onboarding,
			DoctorHome:  cfg.Routes.DoctorHome,
			PatientHome: cfg.Routes.PatientHome,
			AdminHome:   cfg.Routes.AdminHome,
		},
		AuthURL: cfg.Auth.URL,
		Logger:  logger,
	})
	webServer := httpServer.NewHTTPServer(web.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	health := grpcHandler.NewHealth(synchronizer, logger)
	go health.Run(ctx)
	healthServer := grpcServer.NewGRPCServer(grpcRouter.New(health, logger).Register(), fmt.Sprintf(":%s", cfg.GRPC.Port))

	sl := server.NewSecurityLayer(cfg.GRPC.EnableHTTPS, cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName)

	servers := []model.Server{webServer, healthServer}

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(s model.Server) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}(s)
	}

	// Servers are up before the initial session resolves: guards answer loading
	// and gRPC health reports NOT_SERVING until the synchronizer is initialized.
	go synchronizer.Start(ctx)
	go session.NewRefresher(source, logger).Start(ctx, cfg.Auth.RefreshEvery)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, s := range servers {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
