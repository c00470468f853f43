package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"eventrsvp/config"
	"eventrsvp/internal/adapters/auth"
	"eventrsvp/internal/adapters/cache"
	"eventrsvp/internal/adapters/email"
	delivery "eventrsvp/internal/delivery/http"
	"eventrsvp/internal/delivery/http/controllers"
	"eventrsvp/internal/delivery/http/middleware"
	"eventrsvp/internal/domain"
	"eventrsvp/internal/payments"
	"eventrsvp/internal/repository/postgres"
	"eventrsvp/internal/services"
)

const shutdownTimeout = 10 * time.Second

// @title Event RSVP API
// @version 1.0
// @description Event registration and payment reconciliation service.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		logger.Error("ping database", "err", err)
		os.Exit(1)
	}

	// The participant-count cache is advisory; run without it when no Redis
	// address is configured.
	var participantCache services.ParticipantCache
	if cfg.RedisAddr != "" {
		client, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Error("connect redis", "err", err)
			os.Exit(1)
		}
		defer client.Close()
		participantCache = cache.NewParticipantCache(client)
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretKey,
		},
	})
	if err != nil {
		logger.Error("create mailer", "err", err)
		os.Exit(1)
	}

	// Repositories
	personRepo := postgres.NewPersonRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	submissionRepo := postgres.NewFormSubmissionRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	store := postgres.NewRegistrationStore(db)

	// Services
	notifications := services.NewNotificationService(mailer, email.NewTemplateRenderer(), logger)
	authService := services.NewAuthService(personRepo, auth.NewBcryptHasher(0), auth.NewJWTIssuer(cfg.JWTSecret))
	eventService := services.NewEventService(eventRepo, store, participantCache, logger)
	rsvpService := services.NewRSVPService(store, personRepo, notifications, participantCache, logger, cfg.VideoGroupSize)
	paymentService := services.NewPaymentService(paymentRepo)
	reconciler := services.NewPaymentReconciler(store, eventRepo, personRepo, notifications, participantCache, logger)

	if err := payments.RegisterType(payments.Type{
		ID:             services.EventPaymentType,
		Label:          "Event registration",
		StatusListener: reconciler.HandleStatusChange,
		DescriptionGenerator: func(p *domain.Payment) string {
			if p.Meta.IsGuest {
				return fmt.Sprintf("Guest seat for %s", p.Meta.EventName)
			}
			return fmt.Sprintf("Registration for %s", p.Meta.EventName)
		},
	}); err != nil {
		logger.Error("register payment type", "err", err)
		os.Exit(1)
	}

	// Delivery
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	mux := delivery.NewRouter(
		verifier,
		controllers.NewAuthController(logger, authService),
		controllers.NewEventController(logger, eventService),
		controllers.NewRSVPController(logger, rsvpService, eventService, submissionRepo),
		controllers.NewWebhookController(logger, paymentService, paymentRepo, cfg.PaymentWebhookSecret),
	)

	handler := middleware.LoggingMiddleware(logger, middleware.CORS(cfg.AllowedOrigins, mux))
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
