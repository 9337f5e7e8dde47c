package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/medprod-fiscal/internal/application/consolidation"
	"github.com/jhoicas/medprod-fiscal/internal/domain/repository"
	"github.com/jhoicas/medprod-fiscal/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Consolidation *consolidation.Service
	Catalog       repository.CatalogRepository
	Logger        *logger.Logger
	JWTSecret     string
}

// Router registra las rutas de la API. Todo /api requiere Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	consolidations := api.Group("/consolidations")
	ch := NewConsolidationHandler(deps.Consolidation, deps.Logger)
	consolidations.Post("/simulate", ch.Simulate)
	// worklist antes de /:id
	consolidations.Get("/worklist", ch.Worklist)
	consolidations.Post("/", ch.Commit)
	consolidations.Get("/", ch.List)
	consolidations.Get("/:id", ch.GetByID)
	consolidations.Post("/:id/repair", ch.Repair)

	catalog := api.Group("/catalog")
	cat := NewCatalogHandler(deps.Catalog, deps.Logger)
	catalog.Get("/professionals", cat.Professionals)
	catalog.Get("/entities", cat.Entities)
	catalog.Get("/contracts/:id", cat.Contract)
}
