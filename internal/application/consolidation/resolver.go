package consolidation

import (
	"context"
	"fmt"

	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/medprod-fiscal/internal/domain/repository"
)

// Resolver suma lo ya retenido en la competencia fuera de la entidad que se calcula.
type Resolver struct {
	links   repository.ExternalLinkRepository
	results repository.ConsolidationRepository
}

// NewResolver construye el resolver.
func NewResolver(links repository.ExternalLinkRepository, results repository.ConsolidationRepository) *Resolver {
	return &Resolver{links: links, results: results}
}

// ComputeResidualCapacity vínculos externos activos en la competencia más resultados
// consolidados de las otras entidades. Sin datos devuelve ceros.
func (r *Resolver) ComputeResidualCapacity(ctx context.Context, professionalID string, c entity.Competence, excludeEntityID string) (fiscal.PriorCapacity, error) {
	var prior fiscal.PriorCapacity

	links, err := r.links.ListActive(ctx, professionalID, c)
	if err != nil {
		return fiscal.PriorCapacity{}, fmt.Errorf("vínculos externos: %w", err)
	}
	for _, l := range links {
		if l.ProfessionalID != professionalID || !l.ActiveIn(c) {
			continue
		}
		prior.PriorINSSWithheld = prior.PriorINSSWithheld.Add(l.WithheldINSS)
		prior.PriorIRRFBase = prior.PriorIRRFBase.Add(l.BaseIRRF)
		prior.PriorIRRFWithheld = prior.PriorIRRFWithheld.Add(l.WithheldIRRF)
		prior.ExternalLinkIDs = append(prior.ExternalLinkIDs, l.ID)
	}

	siblings, err := r.results.ListResults(ctx, repository.ResultFilter{ProfessionalID: professionalID, Competence: &c})
	if err != nil {
		return fiscal.PriorCapacity{}, fmt.Errorf("resultados consolidados: %w", err)
	}
	for _, s := range siblings {
		if s.Status != entity.ResultStatusConsolidated || s.PayingEntityID == excludeEntityID || s.Competence != c {
			continue
		}
		prior.PriorINSSWithheld = prior.PriorINSSWithheld.Add(s.INSSWithheld)
		prior.PriorIRRFBase = prior.PriorIRRFBase.Add(s.IRRFBase())
		prior.PriorIRRFWithheld = prior.PriorIRRFWithheld.Add(s.IRRFWithheld)
		prior.SiblingResultIDs = append(prior.SiblingResultIDs, s.ID)
	}
	return prior, nil
}
