package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/fieldverify-platform/caseflow/internal/config"
	"github.com/fieldverify-platform/caseflow/internal/dispatch"
	"github.com/fieldverify-platform/caseflow/internal/handler"
	"github.com/fieldverify-platform/caseflow/internal/logger"
	"github.com/fieldverify-platform/caseflow/internal/recipients"
	"github.com/fieldverify-platform/caseflow/internal/repository"
	"github.com/fieldverify-platform/caseflow/internal/service"
	"github.com/fieldverify-platform/caseflow/internal/watch"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stdout,
	})
	log.SetDefault()

	slog.Info("starting service",
		"service", cfg.Service.Name,
		"environment", cfg.Service.Environment,
		"port", cfg.Service.HTTPPort,
	)

	// Initialize PostgreSQL connection
	db, err := initDB(cfg)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("database connection established",
		"host", cfg.Database.Host,
		"database", cfg.Database.Database,
	)

	// Initialize Redis and the case-change feed
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	feed := watch.NewFeed(redisClient, cfg.Redis.Channel, log.Logger)
	if err := feed.Start(context.Background()); err != nil {
		slog.Error("failed to start case feed", "error", err)
		os.Exit(1)
	}
	defer feed.Stop()

	// Load the recipient directory
	directory := recipients.Empty()
	if cfg.Recipients.Path != "" {
		if directory, err = recipients.Load(cfg.Recipients.Path); err != nil {
			slog.Warn("recipient directory unavailable, approval requires explicit addresses",
				"path", cfg.Recipients.Path,
				"error", err,
			)
			directory = recipients.Empty()
		}
	}

	// Build the mail dispatch chain: gmail, smtp relay, compose hand-off.
	dispatcher := dispatch.NewDispatcher(log.Logger,
		dispatch.NewGmailChannel(dispatch.GmailConfig{
			ClientID:          cfg.Mail.GmailClientID,
			ClientSecret:      cfg.Mail.GmailClientSecret,
			RefreshToken:      cfg.Mail.GmailRefreshToken,
			TokenURL:          cfg.Mail.GmailTokenURL,
			SendURL:           cfg.Mail.GmailSendURL,
			AttachmentTimeout: cfg.Mail.AttachmentTimeout,
		}, log.Logger),
		dispatch.NewSMTPChannel(dispatch.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.SMTPUsername,
			Password: cfg.Mail.SMTPPassword,
		}, log.Logger),
		dispatch.NewComposeChannel(cfg.Mail.ComposeBaseURL),
	)

	// Initialize components
	caseRepo := repository.NewCaseRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	reportRepo := repository.NewReportRepository(db)
	planRepo := repository.NewPlanRepository(db)
	mailLogRepo := repository.NewMailLogRepository(db)

	caseService := service.NewCaseService(caseRepo, mailLogRepo, dispatcher, feed, cfg.Mail.FromAddress, log.Logger)
	ticketService := service.NewTicketService(ticketRepo)
	reportService := service.NewReportService(caseRepo, reportRepo)
	planService := service.NewPlanService(planRepo, caseRepo, log.Logger)

	// Plan snapshots follow the live case feed.
	feed.Subscribe(planService.HandleCaseEvent)

	caseHandler := handler.NewCaseHandler(caseService, mailLogRepo)
	ticketHandler := handler.NewTicketHandler(ticketService)
	reportHandler := handler.NewReportHandler(reportService)
	planHandler := handler.NewPlanHandler(planService)
	recipientsHandler := handler.NewRecipientsHandler(directory)

	// Set up HTTP router
	router := mux.NewRouter()

	// Add middleware
	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)
	router.Use(corsMiddleware(cfg.CORS))

	// Register health and readiness endpoints
	router.HandleFunc("/health", healthHandler(cfg.Service.Name)).Methods("GET")
	router.HandleFunc("/ready", readyHandler(db, cfg.Service.Name)).Methods("GET")

	// Register API routes
	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	caseHandler.RegisterRoutes(apiRouter)
	ticketHandler.RegisterRoutes(apiRouter)
	reportHandler.RegisterRoutes(apiRouter)
	planHandler.RegisterRoutes(apiRouter)
	recipientsHandler.RegisterRoutes(apiRouter)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Service.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.Service.ReadTimeout,
		WriteTimeout: cfg.Service.WriteTimeout,
		IdleTimeout:  cfg.Service.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced to shutdown", "error", err)
	}

	slog.Info("server exited gracefully")
}

// initDB initializes the PostgreSQL database connection.
func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Middleware

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic recovered",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
				)
				http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(cfg config.CORSConfig) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Check if origin is allowed
			allowed := false
			for _, o := range cfg.AllowedOrigins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}

			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			// Handle preflight
			if r.Method == "OPTIONS" {
				w.Header().Set("Access-Control-Allow-Methods", joinStrings(cfg.AllowedMethods))
				w.Header().Set("Access-Control-Allow-Headers", joinStrings(cfg.AllowedHeaders))
				w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", cfg.MaxAge))
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func joinStrings(strs []string) string {
	if len(strs) == 0 {
		return ""
	}
	result := strs[0]
	for i := 1; i < len(strs); i++ {
		result += ", " + strs[i]
	}
	return result
}

// Handlers

func healthHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":%q}`, name)
	}
}

func readyHandler(db *sqlx.DB, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		// Check database connectivity
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"not_ready","service":%q,"error":"database connection failed"}`, name)
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ready","service":%q}`, name)
	}
}
