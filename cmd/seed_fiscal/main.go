// seed_fiscal carga tablas fiscales (INSS/IRRF) y el catálogo básico desde un YAML.
//
// Uso: go run ./cmd/seed_fiscal [ruta/tablas.yaml]
// Por defecto lee cmd/seed_fiscal/tables_2024.yaml. Las tablas son inmutables: volver a
// cargar un id existente falla con duplicado; los profesionales y entidades se actualizan.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jhoicas/medprod-fiscal/internal/domain"
	"github.com/jhoicas/medprod-fiscal/internal/infrastructure/postgres"
	"github.com/jhoicas/medprod-fiscal/pkg/config"
	"github.com/jhoicas/medprod-fiscal/pkg/logger"
)

func main() {
	path := "cmd/seed_fiscal/tables_2024.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}).Component("seed_fiscal")

	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("abrir YAML")
	}
	defer f.Close()

	data, err := parseSeed(f)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("YAML inválido")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.ApplyMigrations(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	err = postgres.NewTxRunner(pool).RunSeed(ctx, func(catalog *postgres.CatalogRepo, tables *postgres.FiscalTableRepo) error {
		for _, p := range data.Professionals {
			if err := catalog.UpsertProfessional(ctx, p); err != nil {
				return fmt.Errorf("profesional %s: %w", p.ID, err)
			}
		}
		for _, e := range data.Entities {
			if err := catalog.UpsertEntity(ctx, e); err != nil {
				return fmt.Errorf("entidad %s: %w", e.ID, err)
			}
		}
		for _, t := range data.Tables {
			if err := tables.Create(ctx, t); err != nil {
				if errors.Is(err, domain.ErrDuplicate) {
					return fmt.Errorf("tabla %s ya existe; publicar una nueva con otra vigencia: %w", t.ID, err)
				}
				return err
			}
			log.Info().Str("table_id", t.ID).Str("kind", string(t.Kind)).Int("brackets", len(t.Brackets)).Msg("tabla cargada")
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed")
	}
	log.Info().
		Int("tables", len(data.Tables)).
		Int("professionals", len(data.Professionals)).
		Int("entities", len(data.Entities)).
		Msg("seed completo")
}
