package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"ingressos-web/internal/auth"
	"ingressos-web/internal/backend"
	"ingressos-web/internal/checkout"
	"ingressos-web/internal/config"
	"ingressos-web/internal/db"
	"ingressos-web/internal/events"
	"ingressos-web/internal/followup"
	"ingressos-web/internal/handler"
	"ingressos-web/internal/logger"
	"ingressos-web/internal/metrics"
	"ingressos-web/internal/middleware"
	"ingressos-web/internal/session"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	sessionSweepInterval = time.Minute
	shutdownTimeout      = 45 * time.Second
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	api := backend.NewClient(cfg.BackendBaseURL)
	payments := backend.NewPaymentClient(api,
		backend.WithCreatePath(cfg.PaymentCreatePath),
		backend.WithAttemptTimeout(cfg.PaymentTimeout),
		backend.WithMaxRetries(cfg.PaymentMaxRetries),
	)

	var (
		recorder followup.Recorder = followup.LogRecorder{}
		opts     []handler.Option
	)
	if cfg.DBURL != "" {
		database := db.InitDB(cfg.DBURL)
		defer database.Close()
		repo := followup.NewRepository(database)
		recorder = repo
		opts = append(opts, handler.WithFollowUps(repo, cfg.InternalSecretKey))
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.RabbitMQURL != "" {
		p, err := events.Dial(cfg.RabbitMQURL)
		if err != nil {
			log.Warn("RabbitMQ unavailable, checkout events disabled", zap.Error(err))
		} else {
			defer p.Close()
			publisher = p
		}
	}

	m := &metrics.Checkout{}
	store := session.NewStore(session.DefaultTTL)
	cookies := session.NewCookieBinder([]byte(cfg.SessionSecret), cfg.AppEnv == "production")

	h := handler.New(store, cookies, api, checkout.Deps{
		Payments:  payments,
		Orders:    api,
		Transfers: api,
		Tokens:    auth.ContextToken{},
		FollowUps: recorder,
		Events:    publisher,
		Metrics:   m,
	}, loadLocation(cfg.Timezone), opts...)

	limiter := middleware.NewRateLimiter(cfg.InternalSecretKey)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go store.Run(ctx, sessionSweepInterval)
	go limiter.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           setupRouter(h, limiter, cfg.CORSOrigin),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("🚀 checkout server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	// In-flight submissions may still be waiting on the payment backend.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func setupRouter(h *handler.Handler, limiter *middleware.RateLimiter, corsOrigin string) http.Handler {
	r := mux.NewRouter()
	h.Routes(r)

	var next http.Handler = r
	next = limiter.Middleware(next)
	next = middleware.AuthMiddleware(next)
	next = middleware.CORS(corsOrigin)(next)
	next = logger.RecoverMiddleware(next)
	next = logger.LoggingMiddleware(next)
	next = logger.RequestIDMiddleware(next)
	return next
}

// loadLocation falls back to UTC when name is unknown.
func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.L().Warn("unknown timezone, using UTC", zap.String("timezone", name), zap.Error(err))
		return time.UTC
	}
	return loc
}
