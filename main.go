package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"vehicle-tracker/config"
)

var (
	configPath      = flag.String("config", "", "path to config.yml (default: ./config.yml if present)")
	httpPort        = flag.Int("port", 0, "HTTP port (overrides config and PORT)")
	shutdownTimeout = flag.Duration("shutdown_timeout", 0, "HTTP server shutdown timeout (overrides config)")
)

func main() {
	flag.Parse()
	InitLogging()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *httpPort != 0 {
		cfg.Server.Port = *httpPort
	}
	if *shutdownTimeout != 0 {
		cfg.Server.ShutdownTimeout = *shutdownTimeout
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := openStore(startCtx, cfg.Store)
	startCancel()
	if err != nil {
		log.Fatalf("store %s: %v", cfg.Store.Driver, err)
	}
	log.Printf("vehicle document %s/%s via %s store", cfg.Store.Collection, cfg.Store.DocumentID, cfg.Store.Driver)

	source, err := selectLocationSource(cfg.Vehicle, store)
	if err != nil {
		log.Fatalf("vehicle source: %v", err)
	}

	var notifier AlarmNotifier = noopNotifier{}
	if cfg.Notify.AMQPURL != "" {
		n, err := NewAMQPNotifier(cfg.Notify.AMQPURL, cfg.Notify.Exchange, cfg.Notify.RoutingKey)
		if err != nil {
			log.Printf("alarm notifications disabled: %v", err)
		} else {
			defer n.Close()
			notifier = n
		}
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	a := &app{
		ctx:      rootCtx,
		cfg:      cfg,
		hub:      newHub(),
		store:    store,
		source:   source,
		router:   NewOSRMRouter(cfg.Routing.OSRMURL, cfg.Routing.Profile, cfg.Routing.Timeout),
		notifier: notifier,
	}

	mux := http.NewServeMux()
	a.registerRoutes(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("server starting on http://localhost:%d/", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Printf("shutdown initiated...")

	rootCancel()
	a.hub.closeAll()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	} else {
		log.Printf("HTTP server shut down successfully")
	}
	if err := store.Close(ctx); err != nil {
		log.Printf("store close error: %v", err)
	}
}
