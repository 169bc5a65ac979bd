package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"fundledger/internal/campaign/handler"
	campaignmetrics "fundledger/internal/campaign/metrics"
	"fundledger/internal/campaign/service"
	"fundledger/internal/campaign/store"
	memorystore "fundledger/internal/campaign/store/memory"
	postgresstore "fundledger/internal/campaign/store/postgres"
	"fundledger/internal/events"
	"fundledger/internal/jwttoken"
	"fundledger/internal/platform/config"
	"fundledger/internal/platform/httpserver"
	"fundledger/internal/platform/logger"
	"fundledger/internal/platform/middleware"
	platformredis "fundledger/internal/platform/redis"
	"fundledger/internal/policy"
	"fundledger/internal/treasury"
	"fundledger/pkg/identity"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	campaignStore, cleanup, err := newCampaignStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	rail, railCleanup, err := newTreasuryRail(cfg, log)
	if err != nil {
		return err
	}
	defer railCleanup()

	// Event pipeline: every emit fans out to the in-process log (via the
	// buffered channel worker), the websocket hub, and Kafka when brokers
	// are configured.
	eventLog := events.NewLog(cfg.EventLogCapacity)
	channelSink := events.NewChannelSink(cfg.EventLogCapacity)
	worker := events.NewWorker(channelSink, eventLog)
	hub := events.NewHub(logger.ForComponent(log, "hub"))

	sinks := []events.Sink{channelSink, hub}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			kafkaSink.Close(flushCtx)
		}()
		sinks = append(sinks, kafkaSink)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).
			Msg("kafka event sink enabled")
	}
	publisher := events.NewPublisher(logger.ForComponent(log, "events"), sinks...)

	authz, err := newAuthorizer(cfg)
	if err != nil {
		return err
	}

	ledger, err := service.New(
		campaignStore, rail, publisher, authz,
		campaignmetrics.New(), logger.ForComponent(log, "ledger"),
	)
	if err != nil {
		return err
	}

	tokens := jwttoken.New(cfg.JWTSigningKey)
	requireAuth := middleware.RequireAuth(tokens, logger.ForComponent(log, "auth"))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)

	h := handler.New(ledger, rail, requireAuth, logger.ForComponent(log, "http"))
	h.Register(router)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Get("/ws", hub.ServeHTTP)
	router.Get("/events", func(w http.ResponseWriter, r *http.Request) {
		n := cfg.EventLogCapacity
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				n = parsed
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(eventLog.Recent(n))
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("store", cfg.StoreBackend).Msg("starting fundledger")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}

func newCampaignStore(ctx context.Context, cfg config.Config) (store.CampaignStore, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		st := postgresstore.New(db)
		if err := st.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return st, func() { _ = db.Close() }, nil
	default:
		return memorystore.New(), func() {}, nil
	}
}

func newTreasuryRail(cfg config.Config, log zerolog.Logger) (treasury.Rail, func(), error) {
	client, err := platformredis.New(cfg.RedisURL, cfg.RedisConfig)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return treasury.NewMemoryRail(), func() {}, nil
	}
	log.Info().Msg("redis treasury rail enabled")
	return treasury.NewRedisRail(client.Client), func() { _ = client.Close() }, nil
}

func newAuthorizer(cfg config.Config) (*policy.Authorizer, error) {
	create, err := policy.ParseMode(cfg.CreatePolicy)
	if err != nil {
		return nil, err
	}
	settle, err := policy.ParseMode(cfg.SettlePolicy)
	if err != nil {
		return nil, err
	}
	allowlist := make([]identity.Address, 0, len(cfg.PolicyAllowlist))
	for _, a := range cfg.PolicyAllowlist {
		allowlist = append(allowlist, identity.Address(a))
	}
	return policy.New(create, settle, identity.Address(cfg.Owner), allowlist), nil
}
