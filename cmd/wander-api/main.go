// README: Entry point; loads config, wires stores, AI provider and services, starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wander/internal/ai"
	"wander/internal/config"
	httptransport "wander/internal/http"
	"wander/internal/http/handlers"
	"wander/internal/infra"
	"wander/internal/maps"
	"wander/internal/modules/quota"
	"wander/internal/modules/tripgen"
	"wander/internal/modules/trips"
	"wander/internal/modules/wishlist"
	"wander/migrations"
)

const serviceName = "wander-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := infra.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("wander-api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := infra.InitTracing(serviceName, cfg.Env, cfg.TraceStdout, logger)
	if err != nil {
		return fmt.Errorf("tracing init: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	var (
		verifier infra.TokenVerifier
		fsClient *firestore.Client
	)
	if cfg.Firebase.ProjectID != "" {
		app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return err
		}
		if verifier, err = infra.NewFirebaseVerifier(ctx, app); err != nil {
			return err
		}
		if cfg.Store == config.StoreFirestore {
			if fsClient, err = infra.NewFirestore(ctx, app); err != nil {
				return err
			}
			defer fsClient.Close()
		}
	} else {
		logger.Warn("firebase not configured; signed-in routes will answer 401")
	}

	var (
		tripStore  trips.Store
		wishStore  wishlist.Store
		quotaStore quota.Store
	)
	switch cfg.Store {
	case config.StorePostgres:
		db, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := infra.ApplyMigrations(ctx, db, migrations.FS); err != nil {
			return err
		}
		tripStore = trips.NewPostgresStore(db)
		wishStore = wishlist.NewPostgresStore(db)
		quotaStore = quota.NewPostgresStore(db)
	default:
		tripStore = trips.NewFirestoreStore(fsClient)
		wishStore = wishlist.NewFirestoreStore(fsClient)
	}

	var locker tripgen.Locker = tripgen.NewLocalLocker()
	if cfg.Redis.Addr != "" {
		rc, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer rc.Close()
		locker = tripgen.NewRedisLocker(rc, 2*cfg.Generation.CompletionTimeout+30*time.Second)
	}

	completer, closeCompleter, err := newCompleter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCompleter()

	template := ""
	if cfg.Generation.PromptFile != "" {
		b, err := os.ReadFile(cfg.Generation.PromptFile)
		if err != nil {
			return fmt.Errorf("read prompt file: %w", err)
		}
		template = string(b)
	}

	ids, err := tripgen.NewSnowflakeIDs(cfg.NodeID)
	if err != nil {
		return err
	}

	tripSvc := trips.NewService(tripStore, logger)
	wishSvc := wishlist.NewService(wishStore, logger)
	gen := tripgen.NewGenerator(tripgen.Deps{
		Preferences: wishSvc,
		Records:     tripSvc,
		Completion:  completer,
		IDs:         ids,
		Locker:      locker,
	}, tripgen.Options{
		Template:          template,
		CompletionTimeout: cfg.Generation.CompletionTimeout,
		StrictPlan:        cfg.Generation.StrictPlan,
	}, logger)

	tripDeps := handlers.TripHandlerDeps{Generator: gen, Trips: tripSvc}
	switch {
	case cfg.Generation.MonthlyQuota <= 0:
	case quotaStore == nil:
		logger.Info("monthly quota needs the postgres store; quota disabled")
	default:
		tripDeps.Quota = quota.NewService(quotaStore, cfg.Generation.MonthlyQuota, logger)
	}
	if cfg.Maps.APIKey != "" {
		resolver, err := maps.NewDestinationResolver(cfg.Maps.APIKey, "")
		if err != nil {
			return err
		}
		tripDeps.Resolver = resolver
	}

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := httptransport.NewServer(httptransport.ServerDeps{
		Trips:       tripDeps,
		Wishlist:    wishSvc,
		Verifier:    verifier,
		Logger:      logger,
		ServiceName: serviceName,
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Generation.CompletionTimeout+10*time.Second)
		defer cancel()
		_ = server.Shutdown(sctx)
	}()

	logger.Info("listening",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("store", cfg.Store),
		zap.String("ai_provider", cfg.AI.Provider),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newCompleter(ctx context.Context, cfg config.Config, logger *zap.Logger) (ai.Completer, func(), error) {
	switch cfg.AI.Provider {
	case config.ProviderOpenAI:
		p, err := ai.NewOpenAIProvider(ai.OpenAIConfig{
			APIKey:  cfg.AI.OpenAIKey,
			Model:   cfg.AI.OpenAIModel,
			BaseURL: cfg.AI.OpenAIBaseURL,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {}, nil
	default:
		p, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiModel, logger)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	}
}
