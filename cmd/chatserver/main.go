package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/parley/chat-server/internal/api"
	"github.com/parley/chat-server/internal/auth"
	"github.com/parley/chat-server/internal/ban"
	"github.com/parley/chat-server/internal/bus"
	"github.com/parley/chat-server/internal/config"
	"github.com/parley/chat-server/internal/gateway"
	"github.com/parley/chat-server/internal/message"
	"github.com/parley/chat-server/internal/metrics"
	"github.com/parley/chat-server/internal/moderation"
	"github.com/parley/chat-server/internal/presence"
	"github.com/parley/chat-server/internal/protocol"
	"github.com/parley/chat-server/internal/ratelimit"
	"github.com/parley/chat-server/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// --- Postgres ---
	db, err := openDatabase(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to open Postgres: %v", err)
	}

	// --- Redis ---
	presenceStore, err := presence.NewRedisStore(cfg.RedisAddr)
	if err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}

	// --- NATS ---
	natsConfig := bus.DefaultNATSConfig()
	natsConfig.URL = cfg.NATSURL
	eventBus, err := bus.NewNATSBus(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	tokens := auth.NewJWTService([]byte(cfg.JWTSecret))
	users := auth.NewUserStore(db)
	messages := message.NewPostgresStore(db)
	limiter := ratelimit.NewLimiter(presenceStore.Client())
	bans := ban.NewStore(presenceStore.Client())

	gw := gateway.New(gateway.Config{
		PresenceTTL: cfg.PresenceTTL,
		HistorySize: cfg.HistorySize,
		Filter:      moderation.NewFilter(),
	}, tokens, presenceStore, eventBus, messages, limiter, bans)

	if err := gw.Start(); err != nil {
		log.Fatalf("failed to start gateway: %v", err)
	}

	log.Printf("Parley chat server starting")
	log.Printf("  listen_addr:     %s", cfg.ListenAddr)
	log.Printf("  worker_pool:     %d", cfg.WorkerPoolSize)
	log.Printf("  max_connections: %d", cfg.MaxConnections)
	log.Printf("  read_timeout:    %s", cfg.ReadTimeout)
	log.Printf("  write_timeout:   %s", cfg.WriteTimeout)
	log.Printf("  nats_url:        %s", cfg.NATSURL)
	log.Printf("  redis_addr:      %s", cfg.RedisAddr)
	log.Printf("  presence_ttl:    %s", cfg.PresenceTTL)
	log.Printf("  history_size:    %d", cfg.HistorySize)

	dispatcher := ws.NewMessageDispatcher()
	dispatcher.Register(protocol.TypeMessage, func(conn *ws.Connection, msg interface{}) {
		chatMsg, ok := msg.(protocol.ChatMsg)
		if !ok {
			return
		}
		gw.HandleMessage(conn.ID, chatMsg.Text)
	})

	server := ws.NewServer(ws.ServerConfig{
		ListenAddr:     cfg.ListenAddr,
		WorkerPoolSize: cfg.WorkerPoolSize,
		MaxConnections: cfg.MaxConnections,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
	}, func(conn *ws.Connection, token string) error {
		_, err := gw.Connect(conn.ID, token, conn)
		return err
	}, dispatcher.Dispatch)

	server.SetOnDisconnect(gw.Disconnect)

	apiHandler := api.NewHandler(users, tokens, messages)
	server.Handle("/register", http.HandlerFunc(apiHandler.Register))
	server.Handle("/login", http.HandlerFunc(apiHandler.Login))
	server.Handle("/messages/recent", http.HandlerFunc(apiHandler.RecentMessages))
	server.Handle("/metrics", metrics.Handler())

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, initiating graceful shutdown...", sig)
		if err := server.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		eventBus.Close()
		if err := presenceStore.Close(); err != nil {
			log.Printf("presence store close error: %v", err)
		}
		if err := db.Close(); err != nil {
			log.Printf("database close error: %v", err)
		}
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// openDatabase opens the Postgres connection, verifies it, and applies any
// pending schema migrations from the migrations directory.
func openDatabase(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return nil, fmt.Errorf("migrate driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migrate init: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, fmt.Errorf("migrate up: %w", err)
	}
	return db, nil
}
