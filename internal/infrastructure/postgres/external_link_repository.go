package postgres

import (
	"context"
	"time"

	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/repository"
)

var _ repository.ExternalLinkRepository = (*ExternalLinkRepo)(nil)

type ExternalLinkRepo struct {
	q Querier
}

func NewExternalLinkRepository(q Querier) *ExternalLinkRepo {
	return &ExternalLinkRepo{q: q}
}

// ListActive vínculos activos cuya ventana [start, end] contiene la competencia.
func (r *ExternalLinkRepo) ListActive(ctx context.Context, professionalID string, c entity.Competence) ([]*entity.ExternalFiscalLink, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, professional_id, link_type, start_competence, end_competence,
		       base_inss, withheld_inss, base_irrf, withheld_irrf, active
		FROM external_fiscal_links
		WHERE professional_id = $1 AND active
		  AND start_competence <= $2 AND (end_competence IS NULL OR end_competence >= $2)
		ORDER BY id`, professionalID, c.FirstDay())
	if err != nil {
		return nil, mapErr("list external links", err)
	}
	defer rows.Close()

	var out []*entity.ExternalFiscalLink
	for rows.Next() {
		var (
			l     entity.ExternalFiscalLink
			start time.Time
			end   *time.Time
		)
		if err := rows.Scan(&l.ID, &l.ProfessionalID, &l.LinkType, &start, &end,
			&l.BaseINSS, &l.WithheldINSS, &l.BaseIRRF, &l.WithheldIRRF, &l.Active); err != nil {
			return nil, mapErr("scan external link", err)
		}
		l.StartCompetence = entity.CompetenceOf(start)
		if end != nil {
			ec := entity.CompetenceOf(*end)
			l.EndCompetence = &ec
		}
		out = append(out, &l)
	}
	return out, mapErr("scan external link", rows.Err())
}

// Upsert alta o reemplazo de un vínculo (seed y tests).
func (r *ExternalLinkRepo) Upsert(ctx context.Context, l *entity.ExternalFiscalLink) error {
	var end *time.Time
	if l.EndCompetence != nil {
		d := l.EndCompetence.FirstDay()
		end = &d
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO external_fiscal_links (id, professional_id, link_type, start_competence, end_competence,
			base_inss, withheld_inss, base_irrf, withheld_irrf, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			link_type = EXCLUDED.link_type, start_competence = EXCLUDED.start_competence,
			end_competence = EXCLUDED.end_competence, base_inss = EXCLUDED.base_inss,
			withheld_inss = EXCLUDED.withheld_inss, base_irrf = EXCLUDED.base_irrf,
			withheld_irrf = EXCLUDED.withheld_irrf, active = EXCLUDED.active`,
		l.ID, l.ProfessionalID, l.LinkType, l.StartCompetence.FirstDay(), end,
		l.BaseINSS, l.WithheldINSS, l.BaseIRRF, l.WithheldIRRF, l.Active)
	return mapErr("upsert external link", err)
}
