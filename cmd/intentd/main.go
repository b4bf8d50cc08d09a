package main

import (
	"log"

	"intentd/internal/config"
	"intentd/internal/infra/db"
	httpinfra "intentd/internal/infra/http"
)

func main() {
	cfg := config.FromEnv()

	store, err := db.NewStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	if err := store.Migrate(); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	srv := httpinfra.NewServer(cfg, store)
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
