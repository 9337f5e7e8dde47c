package repository

import (
	"context"

	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
)

// EarningsFilter criterios para buscar lanzamientos confirmados no consumidos.
type EarningsFilter struct {
	ProfessionalID string // vacío = todos
	PayingEntityID string // vacío = todas
	Competence     entity.Competence
	// IncludeRecurringBefore además trae créditos/débitos recurrentes no consumidos
	// de competencias anteriores.
	IncludeRecurringBefore bool
}

// EarningsRepository puerto de los lanzamientos de producción.
type EarningsRepository interface {
	// QueryUnconsolidated devuelve registros confirmados con ConsolidatedResultID vacío.
	QueryUnconsolidated(ctx context.Context, f EarningsFilter) ([]entity.EarningsRecord, error)
	GetByIDs(ctx context.Context, ids []string) ([]entity.EarningsRecord, error)
	// MarkConsolidated marca el registro con resultID solo si está libre o ya es de resultID.
	// Devuelve domain.ErrConflict si otro resultado lo consumió.
	MarkConsolidated(ctx context.Context, recordID, resultID string) error
}
