package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"opspanel.org/internal/migrate"
)

func main() {
	log.SetFlags(0)
	var (
		dsn        = flag.String("dsn", os.Getenv("PANEL_PG_DSN"), "PostgreSQL DSN")
		adminEmail = flag.String("admin-email", os.Getenv("PANEL_ADMIN_EMAIL"), "initial admin email for seed-admin")
		adminPass  = flag.String("admin-password", os.Getenv("PANEL_ADMIN_PASSWORD"), "initial admin password for seed-admin")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or PANEL_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|status|seed-admin]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	runner := migrate.NewRunner(db)

	switch flag.Arg(0) {
	case "up":
		applied, err := runner.Up(ctx)
		if err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		for _, name := range applied {
			fmt.Println("applied", name)
		}
		if len(applied) == 0 {
			fmt.Println("up to date")
		}
	case "down":
		name, err := runner.Down(ctx)
		if err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		fmt.Println("rolled back", name)
	case "status":
		history, err := runner.Applied(ctx)
		if err != nil {
			log.Fatalf("migrate status: %v", err)
		}
		for _, name := range history {
			fmt.Println(name)
		}
	case "seed-admin":
		if err := runner.SeedAdmin(ctx, *adminEmail, *adminPass); err != nil {
			log.Fatalf("seed-admin: %v", err)
		}
		fmt.Println("admin account ensured")
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
}
