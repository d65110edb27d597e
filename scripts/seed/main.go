package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"skirental/internal/config"
	"skirental/internal/database"
	"skirental/internal/service"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		catalogPath = flag.String("catalog", "configs/catalog.yaml", "path to catalog.yaml")
		configPath  = flag.String("config", "", "path to config.yaml; overrides -db")
		dbPath      = flag.String("db", "./data/rental.db", "path to sqlite db")
	)
	flag.Parse()

	catalog, err := config.LoadCatalog(*catalogPath)
	if err != nil {
		return err
	}

	var db *database.DB
	if *configPath != "" {
		cfg, loadErr := config.Load(*configPath)
		if loadErr != nil {
			return fmt.Errorf("load config: %w", loadErr)
		}
		db, err = database.Open(cfg.Database, &logger)
	} else {
		db, err = database.NewDB(*dbPath, &logger)
	}
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc := service.NewCatalogService(db, &logger)
	created, updated, err := svc.ImportEquipment(ctx, catalog.Equipment)
	if err != nil {
		return fmt.Errorf("import equipment: %w", err)
	}
	if err := svc.ImportEmployers(ctx, catalog.Employers); err != nil {
		return fmt.Errorf("import employers: %w", err)
	}

	fmt.Printf("done: equipment created=%d updated=%d, employers=%d\n", created, updated, len(catalog.Employers))
	return nil
}
