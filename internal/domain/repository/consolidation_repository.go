package repository

import (
	"context"

	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
)

// ResultFilter filtros del historial de consolidaciones.
type ResultFilter struct {
	ProfessionalID string
	PayingEntityID string
	Competence     *entity.Competence
	Limit          int
	Offset         int
}

// ConsolidationRepository resultados consolidados e ítems. Sin Update ni Delete.
type ConsolidationRepository interface {
	// CreateResult devuelve domain.ErrDuplicate si ya existe un consolidado para la clave
	// o el mismo ID.
	CreateResult(ctx context.Context, r *entity.ConsolidatedResult) error
	// CreateItem devuelve domain.ErrDuplicate si el ID ya existe.
	CreateItem(ctx context.Context, item *entity.CalculatedItem) error
	GetResult(ctx context.Context, id string) (*entity.ConsolidatedResult, error)
	// FindConsolidated resultado consolidado de la clave; nil, ErrNotFound si no hay.
	FindConsolidated(ctx context.Context, key entity.ConsolidationKey) (*entity.ConsolidatedResult, error)
	ListResults(ctx context.Context, f ResultFilter) ([]*entity.ConsolidatedResult, error)
	ListItems(ctx context.Context, resultID string) ([]*entity.CalculatedItem, error)
}
