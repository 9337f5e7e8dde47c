package repository

import (
	"context"
	"time"

	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
)

// FiscalTableRepository tablas publicadas; no hay Update: una tabla nueva reemplaza por vigencia.
type FiscalTableRepository interface {
	// ListEffective todas las tablas del tipo cuya vigencia contiene date.
	ListEffective(ctx context.Context, kind entity.TaxKind, date time.Time) ([]*entity.FiscalBracketTable, error)
	Create(ctx context.Context, t *entity.FiscalBracketTable) error
}
