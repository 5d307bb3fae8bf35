package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Huddle/internal/adapters/http"
	"github.com/dkeye/Huddle/internal/adapters/rtc"
	gateway "github.com/dkeye/Huddle/internal/adapters/signal"
	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/auth"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/metrics"
	"github.com/dkeye/Huddle/internal/repo"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	store := openStore(ctx, cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	policy, err := app.PolicyByName(cfg.Rooms.Backpressure)
	if err != nil {
		log.Fatal().Err(err).Msg("backpressure policy")
	}
	if err := rtc.Validate(rtc.Configuration(cfg.ICEServers)); err != nil {
		log.Fatal().Err(err).Msg("ice servers")
	}

	o := orch.New(policy, cfg.Rooms.Exclusive, m)
	provider := auth.NewProvider(store.Users, store.Tokens, cfg.Auth.TokenTTL)
	ctl := gateway.NewSignalWSController(o, provider,
		gateway.NewConnRateLimiter(cfg.Rate.EventsPerSec, cfg.Rate.Burst),
		gateway.Options{
			ReadLimit:   cfg.ReadLimit,
			PingPeriod:  cfg.PingPeriod,
			WriteWait:   cfg.WriteWait,
			SendBuffer:  cfg.SendBuffer,
			RequireAuth: cfg.Auth.Required,
		})

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Orch:     o,
		Signal:   ctl,
		Auth:     provider,
		Messages: store.Messages,
		Gatherer: reg,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Huddle server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("Server exited gracefully")
}

// openStore aborts the process when the configured store is unreachable.
func openStore(ctx context.Context, cfg *config.Config) repo.Store {
	if cfg.Store.Driver == config.DriverMemory {
		log.Warn().Str("module", "main").Msg("using in-memory store, history is not persisted")
		return repo.NewMemoryStore(cfg.History.MaxLen)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rdb, err := repo.OpenRedis(pingCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("store unreachable")
	}
	log.Info().Str("module", "main").Str("addr", cfg.Redis.Addr).Msg("connected to redis")
	return repo.NewRedisStore(rdb, cfg.History.MaxLen)
}
