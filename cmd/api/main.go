package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jrhlh/nonye/cmd"
	"github.com/jrhlh/nonye/internal/api"
	"github.com/jrhlh/nonye/internal/auth"
	"github.com/jrhlh/nonye/internal/chat"
	"github.com/jrhlh/nonye/internal/database"
	"github.com/jrhlh/nonye/internal/mailer"
	"github.com/jrhlh/nonye/internal/spark"
	"github.com/jrhlh/nonye/internal/warning"
)

type APIConfig struct {
	DatabaseURL   string `env:"DATABASE_URL" envDefault:"agriculture.db"`
	APIPort       string `env:"API_PORT" envDefault:"5000"`
	SecretKey     string `env:"SECRET_KEY,notEmpty,required"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"http://localhost:5173"`
	SecureCookies bool   `env:"SECURE_COOKIES" envDefault:"false"`

	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:""`

	SparkAppID        string `env:"SPARK_APP_ID,notEmpty,required"`
	SparkAPIKey       string `env:"SPARK_API_KEY,notEmpty,required"`
	SparkAPISecret    string `env:"SPARK_API_SECRET,notEmpty,required"`
	SparkURL          string `env:"SPARK_URL" envDefault:"wss://spark-api.xf-yun.com/v1/x1"`
	SparkDomain       string `env:"SPARK_DOMAIN" envDefault:"x1"`
	SparkSystemPrompt string `env:"SPARK_SYSTEM_PROMPT" envDefault:""`
	SparkInsecureTLS  bool   `env:"SPARK_INSECURE_TLS" envDefault:"false"`

	SMTPHost     string `env:"SMTP_HOST" envDefault:"smtp.qq.com"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"465"`
	SMTPSender   string `env:"SMTP_SENDER" envDefault:""`
	SMTPPassword string `env:"SMTP_PASSWORD" envDefault:""`

	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"2h"`
}

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	cmd.EnsureAdminUser(db, cfg.AdminUsername, cfg.AdminPassword)

	issuer := auth.NewTokenIssuer(cfg.SecretKey, cfg.TokenTTL)
	codes := auth.NewCodeStore()
	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Sender:   cfg.SMTPSender,
		Password: cfg.SMTPPassword,
	})

	sparkClient := spark.NewClient(spark.Config{
		AppID:              cfg.SparkAppID,
		APIKey:             cfg.SparkAPIKey,
		APISecret:          cfg.SparkAPISecret,
		URL:                cfg.SparkURL,
		Domain:             cfg.SparkDomain,
		SystemPrompt:       cfg.SparkSystemPrompt,
		InsecureSkipVerify: cfg.SparkInsecureTLS,
	})

	orchestrator := chat.NewOrchestrator(chat.NewSessionStore(), sparkClient)

	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	orchestrator.StartSweeper(sweeperCtx)

	// --- Chi Router Setup ---
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	authService := api.NewAuthService(db, issuer, codes, mail)
	authService.SecureCookies = cfg.SecureCookies
	authService.AddRoutes(r)

	api.NewDeviceService(db).AddRoutes(r)
	api.NewTelemetryService(db).AddRoutes(r)
	api.NewWarningService(db, warning.NewScanner(db)).AddRoutes(r)
	api.NewChatService(orchestrator).AddRoutes(r)

	// Personnel management mutates accounts; it sits behind token auth.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(issuer))
		api.NewPersonnelService(db).AddRoutes(r)
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}
