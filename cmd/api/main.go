package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hrcore.io/internal/auth"
	"hrcore.io/internal/authz"
	"hrcore.io/internal/config"
	"hrcore.io/internal/credential"
	"hrcore.io/internal/docs"
	"hrcore.io/internal/httpapi"
	"hrcore.io/internal/obs"
	"hrcore.io/internal/store/pg"
)

var version = "0.3.1"

func main() {
	// Local setups keep secrets in .env; absence is fine in production.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()

	store, err := pg.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	creds := credential.NewService(credential.WithMaxConcurrent(cfg.HashWorkers))
	authSvc, err := auth.NewService(store.Users(), creds, cfg.AuthSecret,
		auth.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	guard := authz.NewGuard()
	resolver, err := authz.NewResolver(guard, store.Companies(), store.Employees())
	if err != nil {
		log.Fatalf("resolver: %v", err)
	}

	storage, err := docs.NewStorage(cfg.DocumentRoot)
	if err != nil {
		log.Fatalf("document storage: %v", err)
	}
	docCtrl, err := docs.NewController(guard, store.Employees(), store.Documents(), storage)
	if err != nil {
		log.Fatalf("document controller: %v", err)
	}

	api := httpapi.New(httpapi.Deps{
		Ready:       httpapi.ReadyProbe{Check: store.Ping},
		Version:     version,
		Auth:        authSvc,
		Guard:       guard,
		Resolver:    resolver,
		Docs:        docCtrl,
		Companies:   store.Companies(),
		Employees:   store.Employees(),
		Departments: store.Departments(),
		RateBurst:   cfg.RateBurst,
		RatePerSec:  cfg.RatePerSec,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting hrcore-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = store.Close()
	log.Println("Stopped")
}
