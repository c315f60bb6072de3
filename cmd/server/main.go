package main

import (
	"log"
	"net/http"
	"os"

	"lucky-seven/internal/config"
	"lucky-seven/internal/db"
	"lucky-seven/internal/server"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}

	conn, err := db.Open()
	if err != nil {
		log.Printf("running with in-memory ledger: %v", err)
		conn = nil
	} else if err := db.Configure(conn, cfg); err != nil {
		log.Fatalf("db pool configuration failed: %v", err)
	}

	srv := server.New(conn, cfg)
	srv.Start()
	log.Printf("lucky-seven server listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}
