// Command server is the chatcore entry point: it wires the store,
// the session, directory, friend, group and message services, the
// line-protocol ConnectionServer and the WebSocket RealtimeHub/
// RedisBridge pair together and runs them until signaled to stop.
// The top-level sequence is env load -> config -> datastore connect ->
// background services -> listeners, grounded on original_source's
// src/server/main.rs CLI flags and reaper startup.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ruggine/chatcore/internal/config"
	"github.com/ruggine/chatcore/internal/directory"
	"github.com/ruggine/chatcore/internal/friends"
	"github.com/ruggine/chatcore/internal/groups"
	"github.com/ruggine/chatcore/internal/messages"
	"github.com/ruggine/chatcore/internal/protocol"
	"github.com/ruggine/chatcore/internal/ratelimit"
	"github.com/ruggine/chatcore/internal/realtime"
	"github.com/ruggine/chatcore/internal/server"
	"github.com/ruggine/chatcore/internal/session"
	"github.com/ruggine/chatcore/internal/store"
)

// reaperInterval is the session reaper's tick period. It is not
// exposed as an environment variable.
const reaperInterval = time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, continuing with process environment")
	}

	host := flag.String("host", "0.0.0.0", "TCP host to bind the line-protocol listener on")
	port := flag.String("port", "5000", "TCP port to bind the line-protocol listener on")
	flag.Parse()

	cfg := config.Load()
	if *host != "0.0.0.0" {
		cfg.DefaultHost = *host
	}
	if *port != "5000" {
		cfg.DefaultPort = *port
	}

	st, err := store.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("server: connect store: %v", err)
	}
	defer st.Close()

	if err := st.Migrate(); err != nil {
		log.Fatalf("server: migrate store: %v", err)
	}
	log.Println("server: schema migrated")

	sessions := session.New(st, cfg.SessionTTL)
	sessions.StartReaper(reaperInterval)
	defer sessions.Stop()

	dir := directory.New(st)
	friendGraph := friends.New(st)
	groupService := groups.New(st)

	hub := realtime.New(sessions.Validate, st)

	var publisher messages.Publisher = hub
	var bridge *realtime.Bridge
	if cfg.RedisURL != "" {
		bridge, err = realtime.NewBridge(hub, cfg.RedisURL)
		if err != nil {
			log.Fatalf("server: build redis bridge: %v", err)
		}
		publisher = bridge
	}

	msgCfg := messages.Config{
		MasterKey:         []byte(cfg.EncryptionMasterKey),
		MaxMessageLength:  cfg.MaxMessageLength,
		EncryptionEnabled: cfg.EnableEncryption && cfg.EncryptionMasterKey != "",
	}
	msgService := messages.New(st, publisher, msgCfg)

	var limiter *ratelimit.Limiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("server: parse REDIS_URL: %v", err)
		}
		limiter = ratelimit.New(redis.NewClient(opts))
	}

	dispatcher := protocol.New(sessions, dir, friendGraph, groupService, msgService, limiter, cfg.MaxMessageLength)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if bridge != nil {
		go bridge.Run(ctx)
		defer bridge.Close()
	}

	tcpServer := server.New(dispatcher, buildTLSConfig(cfg))
	tcpAddr := cfg.DefaultHost + ":" + cfg.DefaultPort
	go func() {
		if err := tcpServer.ListenAndServe(ctx, tcpAddr); err != nil {
			log.Fatalf("server: line-protocol listener: %v", err)
		}
	}()
	log.Printf("server: line protocol listening on %s (public host %s)", tcpAddr, cfg.PublicHost)

	wsAddr := cfg.DefaultHost + ":" + cfg.RealtimePort
	wsServer := &http.Server{Addr: wsAddr, Handler: realtime.NewServer(hub, allowedOrigins(cfg))}
	go func() {
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: realtime listener: %v", err)
		}
	}()
	log.Printf("server: realtime websocket listening on %s", wsAddr)

	waitForShutdown()

	log.Println("server: shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	wsServer.Shutdown(shutdownCtx)
}

// waitForShutdown blocks until SIGINT or SIGTERM arrives.
func waitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

// allowedOrigins is the CORS allow-list for the /ws upgrade endpoint:
// the public host the operator configured, over both schemes, plus
// localhost for development.
func allowedOrigins(cfg *config.Config) []string {
	return []string{
		"http://" + cfg.PublicHost,
		"https://" + cfg.PublicHost,
		"http://localhost:3000",
	}
}

// buildTLSConfig resolves a *tls.Config from TLS_CERT_PATH/TLS_KEY_PATH
// when ENABLE_ENCRYPTION is set and both files are present. It returns
// nil (plain TCP) otherwise.
func buildTLSConfig(cfg *config.Config) *tls.Config {
	if !cfg.EnableEncryption || cfg.TLSCertPath == "" || cfg.TLSKeyPath == "" {
		return nil
	}
	tlsCfg, err := server.LoadTLSConfig(cfg.TLSCertPath, cfg.TLSKeyPath)
	if err != nil {
		log.Printf("server: TLS material unavailable (%v), falling back to plain TCP", err)
		return nil
	}
	return tlsCfg
}
