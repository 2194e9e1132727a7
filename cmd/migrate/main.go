// Command migrate manages the audit archive schema via goose.
//
// The archive is optional; this tool is only needed when DATABASE_URL
// is configured for the server. Typical use:
//
//	go run ./cmd/migrate up
//	go run ./cmd/migrate status
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate <up|down|status|version|redo|up-to N|down-to N>")
		os.Exit(2)
	}
	command, args := os.Args[1], os.Args[2:]

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		log.Fatalf("connect to database: %v", err)
	}

	if err := goose.RunContext(context.Background(), command, db, "migrations", args...); err != nil {
		log.Fatalf("migrate %s: %v", command, err)
	}
}
