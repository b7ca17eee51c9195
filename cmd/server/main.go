/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the LeaveDesk server. Handles configuration,
  dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Open the SQLite store
  3. Load the holiday calendar from the configured feed (fail-open)
  4. Wire the leave service and API handler
  5. Start the HTTP server with graceful shutdown

CONFIGURATION:
  Flags take their defaults from environment variables, so both
  `./server -port=3000` and `PORT=3000 ./server` work. A .env file in
  the working directory is loaded first.

  -port          HTTP server port            (PORT, default 8080)
  -db            SQLite database path        (DATABASE_PATH, default leavedesk.db;
                 use ":memory:" for an in-memory database)
  -holiday-feed  Holiday feed base URL       (HOLIDAY_FEED_URL, empty disables)
  -log-level     logrus level                (LOG_LEVEL, default info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the database
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/crewdesk/leavedesk/api"
	"github.com/crewdesk/leavedesk/holiday"
	"github.com/crewdesk/leavedesk/leave"
	"github.com/crewdesk/leavedesk/store/sqlite"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	port := flag.Int("port", envIntOr("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envOr("DATABASE_PATH", "leavedesk.db"), "SQLite database path")
	feedURL := flag.String("holiday-feed", envOr("HOLIDAY_FEED_URL", ""), "holiday feed base URL (empty disables)")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", *logLevel).Warn("unknown log level, using info")
	}

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer store.Close()

	// The calendar is a date-picker affordance; a dead feed must not
	// keep the server from starting.
	calendar := holiday.Empty()
	if *feedURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		calendar = holiday.Load(ctx, holiday.NewHTTPFeed(*feedURL), time.Now().UTC().Year(), log)
		cancel()
	}

	service := leave.NewService(store, nil, log)
	handler := api.NewHandler(service, calendar, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr": server.Addr,
			"db":   *dbPath,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("forced shutdown")
	}

	log.Info("server stopped")
}
