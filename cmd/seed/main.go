// Command seed applies database migrations and loads the crop definition
// catalog into Postgres. With -demo-farmer it also creates a farmer account
// for local testing.
//
// Usage:
//
//	DATABASE_URL=postgres://... go run ./cmd/seed \
//	  -catalog data/crop_definitions.yaml \
//	  -demo-farmer
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/couchcryptid/crop-risk-service/internal/adapter/postgres"
	"github.com/couchcryptid/crop-risk-service/internal/catalog"
	"github.com/couchcryptid/crop-risk-service/internal/config"
	"github.com/couchcryptid/crop-risk-service/internal/domain"
	"github.com/couchcryptid/crop-risk-service/internal/observability"
)

const demoFarmerID = "00000000-0000-0000-0000-00000000f001"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	catalogPath := flag.String("catalog", catalog.DefaultPath, "path to the crop definition catalog")
	demoFarmer := flag.Bool("demo-farmer", false, "create a demo farmer ("+demoFarmerID+")")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg)

	defs, err := catalog.LoadFile(*catalogPath)
	if err != nil {
		return err
	}
	report := catalog.Validate(defs)
	for _, w := range report.Warnings() {
		logger.Warn("catalog warning", "issue", w.String())
	}
	if report.HasErrors() {
		for _, e := range report.Errors() {
			logger.Error("catalog error", "issue", e.String())
		}
		return fmt.Errorf("catalog %s has %d errors", *catalogPath, len(report.Errors()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMaxConnIdle, cfg.DBMaxConnLife, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, logger); err != nil {
		return err
	}

	repo := postgres.NewDefinitionRepository(pool)
	for _, def := range defs {
		if err := repo.UpsertDefinition(ctx, def); err != nil {
			return fmt.Errorf("seed %s: %w", def.Code, err)
		}
	}
	log.Printf("seeded %d crop definitions", len(defs))

	if *demoFarmer {
		err := postgres.NewFarmerRepository(pool).UpsertFarmer(ctx, domain.Farmer{
			ID:                demoFarmerID,
			Name:              "Demo Farmer",
			PreferredLanguage: "bn",
			CreatedAt:         time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("seed demo farmer: %w", err)
		}
		log.Printf("seeded demo farmer %s", demoFarmerID)
	}
	return nil
}
