package repository

import (
	"context"

	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
)

// CatalogRepository lectura del catálogo (profesionales, entidades, contratos).
// El CRUD vive en otro sistema; el motor solo consulta.
type CatalogRepository interface {
	ListActiveProfessionals(ctx context.Context) ([]*entity.Professional, error)
	ListActiveEntities(ctx context.Context) ([]*entity.PayingEntity, error)
	GetProfessional(ctx context.Context, id string) (*entity.Professional, error)
	GetContract(ctx context.Context, id string) (*entity.Contract, error)
}
