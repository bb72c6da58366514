// Command authcore-server serves the authcore HTTP API.
//
// Engine settings come from AUTHCORE_* variables (see authcore.LoadConfigFromEnv);
// the process itself reads:
//
//	AUTHCORE_ADDR            listen address (default :8080)
//	AUTHCORE_REDIS_URL       redis://... ; empty starts an in-process miniredis outside production
//	AUTHCORE_MONGO_URI       mongodb://... ; empty uses the in-memory user store
//	AUTHCORE_MONGO_DATABASE  database name (default authcore)
//	AUTHCORE_LOG_LEVEL       zerolog level (default info)
//	AUTHCORE_LOG_PRETTY      console output instead of JSON
//	AUTHCORE_SMTP_*          see mailer.SMTPConfig; without a host codes go to the log
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/httpapi"
	"github.com/MrEthical07/authcore/mailer"
	"github.com/MrEthical07/authcore/metrics/export/prometheus"
	"github.com/MrEthical07/authcore/ratelimit"
	"github.com/MrEthical07/authcore/userstore/memory"
	mongostore "github.com/MrEthical07/authcore/userstore/mongo"
	"github.com/alicebob/miniredis/v2"
	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type serverConfig struct {
	Addr          string `env:"ADDR" envDefault:":8080"`
	RedisURL      string `env:"REDIS_URL"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"authcore"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty     bool   `env:"LOG_PRETTY"`
}

func main() {
	var sc serverConfig
	if err := env.ParseWithOptions(&sc, env.Options{Prefix: "AUTHCORE_"}); err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to parse server environment")
	}
	logger := newLogger(sc)

	cfg, err := authcore.LoadConfigFromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load authcore config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, closeRedis := openRedis(sc, cfg, logger)
	defer closeRedis()

	users, closeUsers := openUserStore(ctx, sc, logger)
	defer closeUsers()

	sender := openSender(cfg, logger)

	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(users).
		WithCodeSender(sender).
		WithLogger(logger).
		WithAuditSink(authcore.NewZerologSink(logger)).
		Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("engine build failed")
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.Info().
		Bool("production", report.ProductionMode).
		Str("signing", report.SigningAlgorithm).
		Bool("refresh_revocation", report.RefreshRevocation).
		Bool("otp_debug", report.OTPDebugEnabled).
		Msg("security posture")

	api := httpapi.New(engine, httpapi.Options{
		Logger:      logger,
		DebugRoutes: cfg.OTP.DebugEnabled && !cfg.Security.ProductionMode,
	})

	mux := http.NewServeMux()
	mux.Handle("/auth/", api.Routes())
	mux.Handle("GET /metrics", prometheus.NewExporter(engine).Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	var handler http.Handler = mux
	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.New(cfg.RateLimit.Limiter())
		if err != nil {
			logger.Fatal().Err(err).Msg("rate limiter init failed")
		}
		handler = ratelimit.Middleware(limiter, ratelimit.MiddlewareConfig{
			Prefixes:     cfg.RateLimit.Prefixes,
			APIKeyHeader: cfg.RateLimit.APIKeyHeader,
			Logger:       logger,
			OnDeny: func(r *http.Request, key string) {
				engine.ObserveRateLimited(authcore.WithClientIP(r.Context(), ratelimit.ClientIP(r)), key)
			},
		})(mux)
	}

	srv := &http.Server{
		Addr:              sc.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", sc.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
}

func newLogger(sc serverConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(sc.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if sc.LogPretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("service", "authcore-server").Logger()
}

func openRedis(sc serverConfig, cfg authcore.Config, logger zerolog.Logger) (redis.UniversalClient, func()) {
	if sc.RedisURL == "" {
		if cfg.Security.ProductionMode {
			logger.Fatal().Msg("AUTHCORE_REDIS_URL is required in production mode")
		}
		mr, err := miniredis.Run()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to start embedded redis")
		}
		logger.Warn().Str("addr", mr.Addr()).Msg("using embedded miniredis; state is lost on exit")
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return rdb, func() {
			_ = rdb.Close()
			mr.Close()
		}
	}

	opts, err := redis.ParseURL(sc.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid AUTHCORE_REDIS_URL")
	}
	rdb := redis.NewClient(opts)
	return rdb, func() { _ = rdb.Close() }
}

func openUserStore(ctx context.Context, sc serverConfig, logger zerolog.Logger) (authcore.UserStore, func()) {
	if sc.MongoURI == "" {
		logger.Warn().Msg("AUTHCORE_MONGO_URI not set; using in-memory user store")
		return memory.New(), func() {}
	}

	client, db, err := mongostore.Connect(sc.MongoURI, sc.MongoDatabase)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongo")
	}
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	store, err := mongostore.New(initCtx, db, "")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare user collection")
	}
	return store, func() { _ = client.Disconnect(context.Background()) }
}

func openSender(cfg authcore.Config, logger zerolog.Logger) authcore.CodeSender {
	smtp, err := mailer.LoadSMTPConfigFromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse smtp config")
	}
	if !smtp.Enabled() {
		reveal := cfg.OTP.DebugEnabled && !cfg.Security.ProductionMode
		logger.Warn().Bool("reveal_code", reveal).Msg("no SMTP host; codes are written to the log")
		return mailer.NewLogSender(logger, reveal)
	}
	sender, err := mailer.NewSMTPSender(smtp)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid smtp config")
	}
	return sender
}
