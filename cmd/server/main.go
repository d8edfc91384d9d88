package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/koemail-admin/internal/auth"
	"github.com/iliyamo/koemail-admin/internal/config"
	"github.com/iliyamo/koemail-admin/internal/database"
	"github.com/iliyamo/koemail-admin/internal/handler"
	"github.com/iliyamo/koemail-admin/internal/logging"
	"github.com/iliyamo/koemail-admin/internal/queue"
	"github.com/iliyamo/koemail-admin/internal/repository"
	"github.com/iliyamo/koemail-admin/internal/router"
	"github.com/iliyamo/koemail-admin/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Env, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	users := repository.NewUserRepo(db)
	domains := repository.NewDomainRepo(db)
	settings := repository.NewSettingRepo(db)

	authCfg := auth.Config{
		Secret:      []byte(cfg.JWTSecret),
		BcryptCost:  cfg.BcryptCost,
		HashWorkers: cfg.HashWorkers,
	}
	hasher, err := auth.NewHasher(authCfg)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}
	verifier, err := auth.NewVerifier(authCfg, users, hasher, logger.With("component", "auth"))
	if err != nil {
		log.Fatalf("auth: %v", err)
	}
	gate, err := auth.NewGate(authCfg)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	if cfg.SeedFile != "" {
		seed, err := repository.LoadSeed(cfg.SeedFile)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		s := &repository.Seeder{Domains: domains, Users: users, Settings: settings, Hasher: hasher}
		res, err := s.Apply(ctx, seed)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		logger.Info(ctx, "seed applied", "domains", res.Domains, "users", res.Users, "settings", res.Settings)
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		logger.Warn(ctx, "redis unavailable; rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	var auditor *service.Auditor
	if cfg.AuditEnabled {
		pub := service.NewAMQPPublisher(cfg.RabbitURL)
		defer pub.Close()
		auditor = service.NewAuditor(pub, logger.With("component", "audit"))

		if cfg.AuditConsumer {
			c := &queue.AuditConsumer{URL: cfg.RabbitURL, Path: cfg.AuditLogPath, Log: logger.With("component", "audit-consumer")}
			go func() {
				if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error(ctx, "audit consumer stopped", "err", err)
				}
			}()
		}
	}

	e := router.New(router.Deps{
		Gate:        gate,
		Redis:       rdb,
		Log:         logger.Slog(),
		Dev:         cfg.IsDev(),
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   config.LoadRateLimitConfig(),
		Cache:       config.LoadCacheConfig(),

		Health:   handler.NewHealthHandler(db, rdb),
		Auth:     handler.NewAuthHandler(verifier, users, auditor, logger.With("component", "http")),
		Users:    handler.NewUserHandler(users, hasher, auditor),
		Domains:  handler.NewDomainHandler(domains, repository.NewAliasRepo(db), auditor),
		Settings: handler.NewSettingHandler(settings, repository.NewStatsRepo(db), auditor),
		Spam:     handler.NewSpamHandler(repository.NewQuarantineRepo(db), auditor),
	})
	e.Server.ReadHeaderTimeout = 10 * time.Second

	go func() {
		addr := ":" + cfg.Port
		logger.Info(ctx, "listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "graceful shutdown error", "err", err)
	}
}
