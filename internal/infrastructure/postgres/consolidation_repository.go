package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/repository"
)

var _ repository.ConsolidationRepository = (*ConsolidationRepo)(nil)

// ConsolidationRepo resultados consolidados e ítems calculados. Solo inserciones y lecturas.
type ConsolidationRepo struct {
	q Querier
}

func NewConsolidationRepository(q Querier) *ConsolidationRepo {
	return &ConsolidationRepo{q: q}
}

const resultColumns = `id, professional_id, paying_entity_id, competence, gross_base, non_taxable_net,
	inss_withheld, irrf_withheld, net_amount, status, parameters, source_record_ids, responsible_user_id, created_at`

func scanResult(row pgx.Row) (*entity.ConsolidatedResult, error) {
	var (
		res        entity.ConsolidatedResult
		competence time.Time
		status     string
		params     []byte
	)
	err := row.Scan(&res.ID, &res.ProfessionalID, &res.PayingEntityID, &competence, &res.GrossBase, &res.NonTaxableNet,
		&res.INSSWithheld, &res.IRRFWithheld, &res.NetAmount, &status, &params, &res.SourceRecordIDs,
		&res.ResponsibleUserID, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	res.Competence = entity.CompetenceOf(competence)
	res.Status = entity.ResultStatus(status)
	if err := json.Unmarshal(params, &res.Parameters); err != nil {
		return nil, fmt.Errorf("resultado %s: parámetros ilegibles: %w", res.ID, err)
	}
	return &res, nil
}

// CreateResult inserta el resultado; el índice único parcial garantiza un consolidado por clave.
func (r *ConsolidationRepo) CreateResult(ctx context.Context, res *entity.ConsolidatedResult) error {
	params, err := json.Marshal(res.Parameters)
	if err != nil {
		return fmt.Errorf("resultado %s: serializar parámetros: %w", res.ID, err)
	}
	sourceIDs := res.SourceRecordIDs
	if sourceIDs == nil {
		sourceIDs = []string{}
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO consolidated_results (`+resultColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		res.ID, res.ProfessionalID, res.PayingEntityID, res.Competence.FirstDay(), res.GrossBase, res.NonTaxableNet,
		res.INSSWithheld, res.IRRFWithheld, res.NetAmount, string(res.Status), params, sourceIDs,
		res.ResponsibleUserID, res.CreatedAt)
	return mapErr("create result", err)
}

func (r *ConsolidationRepo) CreateItem(ctx context.Context, it *entity.CalculatedItem) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO calculated_items (id, result_id, source_record_id, category, taxable, gross_share,
			withholding_base_share, inss_share, irrf_share, net_share, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		it.ID, it.ResultID, it.SourceRecordID, string(it.Category), it.Taxable, it.GrossShare,
		it.WithholdingBaseShare, it.INSSShare, it.IRRFShare, it.NetShare, it.CreatedAt)
	return mapErr("create item", err)
}

func (r *ConsolidationRepo) GetResult(ctx context.Context, id string) (*entity.ConsolidatedResult, error) {
	res, err := scanResult(r.q.QueryRow(ctx, `SELECT `+resultColumns+` FROM consolidated_results WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("get result", err)
	}
	return res, nil
}

func (r *ConsolidationRepo) FindConsolidated(ctx context.Context, key entity.ConsolidationKey) (*entity.ConsolidatedResult, error) {
	res, err := scanResult(r.q.QueryRow(ctx, `
		SELECT `+resultColumns+` FROM consolidated_results
		WHERE professional_id = $1 AND paying_entity_id = $2 AND competence = $3 AND status = 'consolidated'`,
		key.ProfessionalID, key.PayingEntityID, key.Competence.FirstDay()))
	if err != nil {
		return nil, mapErr("find consolidated", err)
	}
	return res, nil
}

// ListResults historial más reciente primero. Limit <= 0 no limita.
func (r *ConsolidationRepo) ListResults(ctx context.Context, f repository.ResultFilter) ([]*entity.ConsolidatedResult, error) {
	var competence *time.Time
	if f.Competence != nil {
		d := f.Competence.FirstDay()
		competence = &d
	}
	var limit *int
	if f.Limit > 0 {
		limit = &f.Limit
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+resultColumns+` FROM consolidated_results
		WHERE ($1::text = '' OR professional_id = $1)
		  AND ($2::text = '' OR paying_entity_id = $2)
		  AND ($3::date IS NULL OR competence = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5`,
		f.ProfessionalID, f.PayingEntityID, competence, limit, max(f.Offset, 0))
	if err != nil {
		return nil, mapErr("list results", err)
	}
	defer rows.Close()

	var out []*entity.ConsolidatedResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, mapErr("scan result", err)
		}
		out = append(out, res)
	}
	return out, mapErr("scan result", rows.Err())
}

func (r *ConsolidationRepo) ListItems(ctx context.Context, resultID string) ([]*entity.CalculatedItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, result_id, source_record_id, category, taxable, gross_share,
		       withholding_base_share, inss_share, irrf_share, net_share, created_at
		FROM calculated_items WHERE result_id = $1 ORDER BY source_record_id`, resultID)
	if err != nil {
		return nil, mapErr("list items", err)
	}
	defer rows.Close()

	var out []*entity.CalculatedItem
	for rows.Next() {
		var (
			it       entity.CalculatedItem
			category string
		)
		if err := rows.Scan(&it.ID, &it.ResultID, &it.SourceRecordID, &category, &it.Taxable, &it.GrossShare,
			&it.WithholdingBaseShare, &it.INSSShare, &it.IRRFShare, &it.NetShare, &it.CreatedAt); err != nil {
			return nil, mapErr("scan item", err)
		}
		it.Category = entity.EarningsCategory(category)
		out = append(out, &it)
	}
	return out, mapErr("scan item", rows.Err())
}
