package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/commhub/chatserver/internal/api"
	"github.com/commhub/chatserver/internal/chat"
	"github.com/commhub/chatserver/internal/config"
	"github.com/commhub/chatserver/internal/database"
	"github.com/commhub/chatserver/internal/gateway"
	"github.com/commhub/chatserver/internal/mail"
	"github.com/commhub/chatserver/internal/stats"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var (
	addr           string
	debugAddr      string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
	runMigrations  bool
	migrationsPath string
)

func main() {
	// a missing .env is fine; flags and real env vars still apply
	_ = godotenv.Load()

	flag.StringVar(&addr, "addr", envOr("SERVER_ADDR", "localhost:8000"), "server address")
	flag.StringVar(&debugAddr, "debug-addr", envOr("DEBUG_ADDR", "localhost:8001"), "debug server address for runtime stats")
	flag.StringVar(&dsn, "dsn", envOr("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"), "database connection string")
	flag.StringVar(&signingKey, "signing-key", os.Getenv("SIGNING_KEY"), "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.BoolVar(&runMigrations, "migrate", false, "run database migrations before starting")
	flag.StringVar(&migrationsPath, "migrations-path", "file://db/migrations", "migration source URL")
	flag.Parse()

	if len(allowedOrigins) == 0 {
		if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
			allowedOrigins = strings.Split(origins, ",")
		}
	}

	logger := log.New(os.Stderr, "[commhub] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	if host := os.Getenv("SMTP_HOST"); host != "" {
		port, err := strconv.Atoi(envOr("SMTP_PORT", "587"))
		if err != nil {
			logger.Fatal("invalid SMTP_PORT:", err)
		}
		cfg.SMTP = config.SMTPConfig{
			Host:     host,
			Port:     port,
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     envOr("SMTP_FROM", "no-reply@commhub.local"),
		}
	}

	if runMigrations {
		if err := database.Migrate(migrationsPath, cfg.DatabaseDSN); err != nil {
			logger.Fatal("migrate:", err)
		}
		logger.Println("migrations applied")
	}

	db, err := database.NewPgRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Println("db close:", err)
		}
	}()

	debugMux := http.NewServeMux()
	statsUpdater := stats.NewStatsUpdater(debugMux)

	chatService := chat.NewService(logger, db, statsUpdater)

	if cfg.SMTP.Enabled() {
		mailer := mail.NewMailer(logger, cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
		chatService.SetMailer(mailer)
	}

	gw := gateway.NewGateway(logger, chatService, statsUpdater)
	chatService.BindGateway(gw)

	srv := api.NewChatApp(logger, gw, chatService, db, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go gw.Run()

	go func() {
		logger.Printf("serving runtime stats on %s\n", debugAddr)
		if err := http.ListenAndServe(debugAddr, debugMux); err != nil {
			logger.Println("debug server:", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down gateway...")
	if err := gw.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("gateway shutdown:", err)
	}

	logger.Println("shutdown complete")
}
