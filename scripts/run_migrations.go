package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/safar/go-cart-store/internal/config"
	"github.com/safar/go-cart-store/internal/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down] [dir]")
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		log.Fatal("Direction must be 'up' or 'down'")
	}

	migrationDir := "migrations"
	if len(os.Args) > 2 {
		migrationDir = os.Args[2]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}
	if err := cfg.Log.Apply(log.StandardLogger()); err != nil {
		log.Fatalf("Configure logging: %v", err)
	}

	db, err := database.NewConnection(context.Background(), &cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	files, err := os.ReadDir(migrationDir)
	if err != nil {
		log.Fatalf("Read migration directory: %v", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), fmt.Sprintf(".%s.sql", direction)) {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	slices.Sort(migrationFiles)
	if direction == "down" {
		slices.Reverse(migrationFiles)
	}

	for _, filename := range migrationFiles {
		content, err := os.ReadFile(filepath.Join(migrationDir, filename))
		if err != nil {
			log.Fatalf("Read migration file %s: %v", filename, err)
		}

		log.WithField("file", filename).Info("running migration")
		if _, err := db.Exec(string(content)); err != nil {
			log.Fatalf("Execute migration %s: %v", filename, err)
		}
	}

	log.WithFields(log.Fields{
		"count":     len(migrationFiles),
		"direction": direction,
	}).Info("migrations applied")
}
