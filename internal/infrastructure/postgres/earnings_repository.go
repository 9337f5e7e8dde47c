package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/medprod-fiscal/internal/domain"
	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/repository"
)

var _ repository.EarningsRepository = (*EarningsRepo)(nil)

// EarningsRepo lanzamientos de producción en una tabla única con columnas por variante.
type EarningsRepo struct {
	q Querier
}

// NewEarningsRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEarningsRepository(q Querier) *EarningsRepo {
	return &EarningsRepo{q: q}
}

const earningsColumns = `id, category, professional_id, paying_entity_id, competence, gross_amount, taxable, confirmed,
	COALESCE(consolidated_result_id, ''), description, occurred_on, hospital_id, shift_type_id, hours,
	materials, entity_taxes, administrative_fee, activity_type, beneficiary_entity_id, recurring`

// earningsRow fila plana; toRecord arma la variante según category.
type earningsRow struct {
	h                 entity.EarningsHeader
	category          string
	competence        time.Time
	occurredOn        *time.Time
	hospitalID        string
	shiftTypeID       string
	hours             decimal.Decimal
	materials         decimal.Decimal
	entityTaxes       decimal.Decimal
	administrativeFee decimal.Decimal
	activityType      string
	beneficiaryID     string
	recurring         bool
}

func scanEarnings(row pgx.Row) (entity.EarningsRecord, error) {
	var r earningsRow
	err := row.Scan(&r.h.ID, &r.category, &r.h.ProfessionalID, &r.h.PayingEntityID, &r.competence,
		&r.h.GrossAmount, &r.h.Taxable, &r.h.Confirmed, &r.h.ConsolidatedResultID, &r.h.Description,
		&r.occurredOn, &r.hospitalID, &r.shiftTypeID, &r.hours, &r.materials, &r.entityTaxes,
		&r.administrativeFee, &r.activityType, &r.beneficiaryID, &r.recurring)
	if err != nil {
		return nil, err
	}
	return r.toRecord()
}

func (r earningsRow) toRecord() (entity.EarningsRecord, error) {
	h := r.h
	h.Competence = entity.CompetenceOf(r.competence)
	if r.occurredOn != nil {
		h.OccurredOn = *r.occurredOn
	}
	switch entity.EarningsCategory(r.category) {
	case entity.CategoryShift:
		return entity.Shift{EarningsHeader: h, HospitalID: r.hospitalID, ShiftTypeID: r.shiftTypeID, Hours: r.hours}, nil
	case entity.CategoryPrivateProcedureShare:
		return entity.PrivateProcedureShare{
			EarningsHeader:    h,
			HospitalID:        r.hospitalID,
			Materials:         r.materials,
			EntityTaxes:       r.entityTaxes,
			AdministrativeFee: r.administrativeFee,
		}, nil
	case entity.CategoryAdministrativeProduction:
		return entity.AdministrativeProduction{EarningsHeader: h, ActivityType: r.activityType}, nil
	case entity.CategoryProLabore:
		return entity.ProLabore{EarningsHeader: h, BeneficiaryEntityID: r.beneficiaryID}, nil
	case entity.CategoryCredit:
		return entity.Credit{EarningsHeader: h, Recurring: r.recurring}, nil
	case entity.CategoryDebit:
		return entity.Debit{EarningsHeader: h, Recurring: r.recurring}, nil
	default:
		return nil, fmt.Errorf("lanzamiento %s: categoría desconocida %q: %w", h.ID, r.category, domain.ErrInvalidInput)
	}
}

// QueryUnconsolidated registros confirmados sin resultado, de la competencia (y recurrentes anteriores si se pide).
func (r *EarningsRepo) QueryUnconsolidated(ctx context.Context, f repository.EarningsFilter) ([]entity.EarningsRecord, error) {
	query := `SELECT ` + earningsColumns + `
		FROM earnings_records
		WHERE confirmed AND consolidated_result_id IS NULL
		  AND ($1::text = '' OR professional_id = $1)
		  AND ($2::text = '' OR paying_entity_id = $2)
		  AND (competence = $3::date OR ($4::boolean AND recurring AND competence < $3))
		ORDER BY id`
	rows, err := r.q.Query(ctx, query, f.ProfessionalID, f.PayingEntityID, f.Competence.FirstDay(), f.IncludeRecurringBefore)
	if err != nil {
		return nil, mapErr("query earnings", err)
	}
	defer rows.Close()
	return collectEarnings(rows)
}

func (r *EarningsRepo) GetByIDs(ctx context.Context, ids []string) ([]entity.EarningsRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `SELECT `+earningsColumns+` FROM earnings_records WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, mapErr("get earnings", err)
	}
	defer rows.Close()
	return collectEarnings(rows)
}

func collectEarnings(rows pgx.Rows) ([]entity.EarningsRecord, error) {
	var out []entity.EarningsRecord
	for rows.Next() {
		rec, err := scanEarnings(rows)
		if err != nil {
			return nil, mapErr("scan earnings", err)
		}
		out = append(out, rec)
	}
	return out, mapErr("scan earnings", rows.Err())
}

// MarkConsolidated compare-and-set: solo marca si está libre o ya apunta a resultID.
func (r *EarningsRepo) MarkConsolidated(ctx context.Context, recordID, resultID string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE earnings_records SET consolidated_result_id = $2
		WHERE id = $1 AND (consolidated_result_id IS NULL OR consolidated_result_id = $2)`,
		recordID, resultID)
	if err != nil {
		return mapErr("mark earnings", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var current string
	err = r.q.QueryRow(ctx, `SELECT COALESCE(consolidated_result_id, '') FROM earnings_records WHERE id = $1`, recordID).Scan(&current)
	if err != nil {
		return mapErr("mark earnings", err)
	}
	return fmt.Errorf("lanzamiento %s consumido por %s: %w", recordID, current, domain.ErrConflict)
}

// Insert alta de un lanzamiento (seed y tests; la carga real vive en otro sistema).
func (r *EarningsRepo) Insert(ctx context.Context, rec entity.EarningsRecord) error {
	h := rec.Header()
	var (
		hospitalID, shiftTypeID, activityType, beneficiaryID string
		hours, materials, entityTaxes, adminFee             decimal.Decimal
		recurring                                           bool
	)
	switch v := rec.(type) {
	case entity.Shift:
		hospitalID, shiftTypeID, hours = v.HospitalID, v.ShiftTypeID, v.Hours
	case entity.PrivateProcedureShare:
		hospitalID, materials, entityTaxes, adminFee = v.HospitalID, v.Materials, v.EntityTaxes, v.AdministrativeFee
	case entity.AdministrativeProduction:
		activityType = v.ActivityType
	case entity.ProLabore:
		beneficiaryID = v.BeneficiaryEntityID
	case entity.Credit:
		recurring = v.Recurring
	case entity.Debit:
		recurring = v.Recurring
	}
	var occurred *time.Time
	if !h.OccurredOn.IsZero() {
		occurred = &h.OccurredOn
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO earnings_records (id, category, professional_id, paying_entity_id, competence, gross_amount,
			taxable, confirmed, consolidated_result_id, description, occurred_on, hospital_id, shift_type_id, hours,
			materials, entity_taxes, administrative_fee, activity_type, beneficiary_entity_id, recurring)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		h.ID, string(rec.Category()), h.ProfessionalID, h.PayingEntityID, h.Competence.FirstDay(), h.GrossAmount,
		h.Taxable, h.Confirmed, nullIfEmpty(h.ConsolidatedResultID), h.Description, occurred, hospitalID, shiftTypeID,
		hours, materials, entityTaxes, adminFee, activityType, beneficiaryID, recurring)
	return mapErr("insert earnings", err)
}
