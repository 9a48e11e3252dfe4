package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/auth"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/config"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/db"
	httpapi "github.com/welcometodan-source/Techsupport-pro-sub000/internal/http"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/notify"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/realtime"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/service"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/sound"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/storage"
)

// @title TechSupport Pro API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "techsupport-pro").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	hub := realtime.NewHub(logger)
	browser := notify.Browser{Hub: hub}
	dispatcher := &notify.Dispatcher{
		Primary: browser,
		Retries: cfg.PushRetries,
		Backoff: cfg.PushBackoff,
		Logger:  logger.With().Str("component", "notify").Logger(),
	}

	svc := service.New(store, dispatcher, logger.With().Str("component", "service").Logger(), cfg.TaxRate)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l := &realtime.Listener{
			Pool:    store.Pool,
			Channel: cfg.RealtimeChannel,
			Hub:     hub,
			Logger:  logger.With().Str("component", "realtime").Logger(),
		}
		return l.Run(gctx)
	})

	if err := notify.Detect(ctx, cfg.Brokers()); err != nil {
		logger.Info().Err(err).Msg("native push unavailable, using browser notifications")
	} else {
		native := notify.NewNative(cfg.Brokers(), cfg.PushTopic)
		defer native.Close()
		dispatcher.Primary = native
		dispatcher.Fallback = browser
		logger.Info().Strs("brokers", cfg.Brokers()).Msg("native push enabled")

		consumer := notify.NewEventConsumer(cfg.Brokers(), cfg.PushEventsTopic, notify.Listeners{
			OnActionPerformed: func(a notify.Action) {
				if a.NotificationID == "" {
					return
				}
				if err := svc.MarkNotificationRead(gctx, models.Profile{ID: a.UserID}, a.NotificationID); err != nil {
					logger.Warn().Err(err).Str("notification_id", a.NotificationID).Msg("mark notification read failed")
				}
			},
			OnReceived: func(n notify.Notification) {
				logger.Debug().Str("user_id", n.UserID).Str("kind", n.Kind).Msg("push delivered")
			},
		}, logger.With().Str("component", "push-events").Logger())
		defer consumer.Close()
		g.Go(func() error { return consumer.Run(gctx) })
	}
	dispatcher.Start(gctx)

	synth := sound.New(0)
	if err := synth.Init(); err != nil {
		logger.Warn().Err(err).Msg("sound cues unavailable")
	}
	defer synth.Close()

	files, err := storage.NewLocal(cfg.StorageDir, cfg.PublicBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare storage")
	}

	router := httpapi.Router(cfg, httpapi.Deps{
		Store:       store,
		Service:     svc,
		Tokens:      auth.New(cfg.JWTSecret, cfg.JWTIssuer),
		Hub:         hub,
		Storage:     files,
		Synth:       synth,
		Permissions: dispatcher,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: cfg.RequestTimeout,
	}

	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctxShutdown)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
