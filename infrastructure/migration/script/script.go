package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/vfg2006/saas-metrics-api/infrastructure/database/postgres"
	"github.com/vfg2006/saas-metrics-api/infrastructure/migration"
	"github.com/vfg2006/saas-metrics-api/internal/config"
)

func setupLogger() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
}

func main() {
	setupLogger()

	direction := flag.String("direction", "up", "up, down or version")
	steps := flag.Int("steps", 1, "number of steps to roll back with -direction=down")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := postgres.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	start := time.Now()
	switch *direction {
	case "up":
		err = migration.Up(conn.DB)
	case "down":
		err = migration.Down(conn.DB, *steps)
	case "version":
		var (
			version uint
			dirty   bool
		)
		version, dirty, err = migration.Version(conn.DB)
		if err == nil {
			log.Printf("schema version %d (dirty=%t)", version, dirty)
		}
	default:
		log.Fatalf("unknown direction %q", *direction)
	}
	if err != nil {
		log.Fatalf("migration %s failed: %v", *direction, err)
	}

	log.Printf("migration %s finished in %v", *direction, time.Since(start))
}
