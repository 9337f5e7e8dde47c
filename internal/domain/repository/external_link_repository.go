package repository

import (
	"context"

	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
)

// ExternalLinkRepository vínculos fiscales externos declarados por el profesional.
type ExternalLinkRepository interface {
	ListActive(ctx context.Context, professionalID string, c entity.Competence) ([]*entity.ExternalFiscalLink, error)
}
